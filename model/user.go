package model

import "time"

// User represents a backend account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Not exposed in API responses
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Credentials is the token/user pair held by an authenticated agent
// session. Both fields are always set or cleared together.
type Credentials struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// SyncRequest is the batched flush body sent to POST /sync.
type SyncRequest struct {
	Items []ProgressEntry `json:"items"`
}

// SyncResponse is the backend's acknowledgement of a flush.
type SyncResponse struct {
	OK     bool `json:"ok"`
	Stored int  `json:"stored"`
}
