package trail

import (
	"errors"
	"sync"

	"watchtrail/model"
)

// ErrPartialCredentials is returned when a caller tries to set a token
// without a user id or vice versa.
var ErrPartialCredentials = errors.New("token and userId must be set together")

// Session holds the bearer credentials for the current user. Token and
// user id are always set or cleared as a pair; partial auth state is not
// a valid state.
type Session struct {
	mu    sync.Mutex
	creds *model.Credentials
}

// NewSession creates an empty (unauthenticated) session.
func NewSession() *Session {
	return &Session{}
}

// Set stores a credential pair. Both fields must be non-empty.
func (s *Session) Set(token, userID string) error {
	if token == "" || userID == "" {
		return ErrPartialCredentials
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = &model.Credentials{Token: token, UserID: userID}
	return nil
}

// Clear drops the credentials. Called on logout and on a 401 flush
// response.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = nil
}

// Get returns the current credentials, if any.
func (s *Session) Get() (model.Credentials, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds == nil {
		return model.Credentials{}, false
	}
	return *s.creds, true
}

// UserID returns the session's user id, or the given fallback when
// unauthenticated.
func (s *Session) UserID(fallback string) string {
	if creds, ok := s.Get(); ok {
		return creds.UserID
	}
	return fallback
}
