package common

import "context"

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id string) (*User, error)
}

// EventPublisher delivers auth events to downstream consumers.
type EventPublisher interface {
	PublishAuthEvent(ctx context.Context, event AuthEvent) error
}
