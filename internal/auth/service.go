// Package auth implements account registration, login and token
// verification on top of a common.UserStore.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"github.com/supermancell/cinebuddy/internal/common"
	"github.com/supermancell/cinebuddy/internal/config"
	"github.com/supermancell/cinebuddy/internal/logging"
)

// ErrInvalidCredentials is returned by Login for an unknown email or a wrong
// password alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrPasswordTooLong is returned by Register for passwords bcrypt cannot hash.
var ErrPasswordTooLong = errors.New("password too long")

// Session is the result of a successful register or login.
type Session struct {
	Token string
	User  *common.User
}

// Service implements the auth operations.
type Service struct {
	store     common.UserStore
	publisher common.EventPublisher
	tokens    *TokenIssuer
	clock     clockwork.Clock
	hashCost  int
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets where auth events are sent. Without it events are dropped.
func WithPublisher(p common.EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock replaces the real clock.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithHashCost sets the bcrypt cost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

// NewService creates an auth Service.
func NewService(store common.UserStore, cfg config.AuthConfig, opts ...Option) *Service {
	s := &Service{
		store:    store,
		clock:    clockwork.NewRealClock(),
		hashCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tokens = NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL, s.clock)
	return s
}

// Register creates an account and returns a session for it.
// A duplicate email returns common.ErrEmailTaken.
func (s *Service) Register(ctx context.Context, name, email, password string) (*Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, ErrPasswordTooLong
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &common.User{
		Name:         strings.TrimSpace(name),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return s.startSession(ctx, user, common.EventUserRegistered)
}

// Login checks credentials and returns a session.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.store.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, common.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, user, common.EventUserLoggedIn)
}

// CurrentUser resolves the user a token was issued to.
func (s *Service) CurrentUser(ctx context.Context, token string) (*common.User, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	return s.store.FindUserByID(ctx, userID)
}

func (s *Service) startSession(ctx context.Context, user *common.User, eventType string) (*Session, error) {
	token, _, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		event := common.AuthEvent{
			Type:      eventType,
			UserID:    user.ID,
			Email:     user.Email,
			Timestamp: s.clock.Now().Unix(),
		}
		if err := s.publisher.PublishAuthEvent(ctx, event); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("event", eventType).Msg("Failed to publish auth event")
		}
	}

	return &Session{Token: token, User: user}, nil
}
