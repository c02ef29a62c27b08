package common

import (
	"errors"
	"time"
)

var (
	// ErrUserNotFound is returned by a UserStore when no user matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned by CreateUser when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
)

// Auth event types.
const (
	EventUserRegistered = "user.registered"
	EventUserLoggedIn   = "user.logged_in"
)

// User is a registered account.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// AuthEvent records a successful registration or login.
type AuthEvent struct {
	Type      string `json:"type"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Timestamp int64  `json:"timestamp"`
}
