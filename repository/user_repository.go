package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"watchtrail/model"
)

// ErrDuplicateUser is returned when a username or email is already taken.
var ErrDuplicateUser = errors.New("username or email already exists")

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	CreateUser(user *model.User) error
	GetUserByID(id string) (*model.User, error)
	GetUserByUsername(username string) (*model.User, error)
	GetUserByEmail(email string) (*model.User, error)
}

// mysqlUserRepository implements UserRepository for MySQL.
type mysqlUserRepository struct {
	db *sql.DB
}

// NewMySQLUserRepository creates a new mysqlUserRepository.
func NewMySQLUserRepository(db *sql.DB) UserRepository {
	return &mysqlUserRepository{db: db}
}

// CreateUser adds a new user to the database. The caller assigns the id.
func (r *mysqlUserRepository) CreateUser(user *model.User) error {
	query := "INSERT INTO users (id, username, email, password_hash) VALUES (?, ?, ?, ?)"
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare create user statement: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(user.ID, nullable(user.Username), nullable(user.Email), nullable(user.PasswordHash))
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return ErrDuplicateUser
		}
		return fmt.Errorf("failed to execute create user statement: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by their ID.
func (r *mysqlUserRepository) GetUserByID(id string) (*model.User, error) {
	return r.getUserBy("id", id)
}

// GetUserByUsername retrieves a user by their username.
func (r *mysqlUserRepository) GetUserByUsername(username string) (*model.User, error) {
	return r.getUserBy("username", username)
}

// GetUserByEmail retrieves a user by their email address.
func (r *mysqlUserRepository) GetUserByEmail(email string) (*model.User, error) {
	return r.getUserBy("email", email)
}

func (r *mysqlUserRepository) getUserBy(column, value string) (*model.User, error) {
	query := fmt.Sprintf("SELECT id, username, email, password_hash, created_at, updated_at FROM users WHERE %s = ?", column)
	row := r.db.QueryRow(query, value)

	user := &model.User{}
	var username, email, passwordHash sql.NullString
	err := row.Scan(&user.ID, &username, &email, &passwordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to scan user row for %s %s: %w", column, value, err)
	}
	user.Username = username.String
	user.Email = email.String
	user.PasswordHash = passwordHash.String
	return user, nil
}

// nullable maps empty strings to NULL so unique indexes ignore them
// (mock-login users have no username or email).
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
