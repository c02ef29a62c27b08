// Package authtest provides in-memory auth collaborators for tests.
package authtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/supermancell/cinebuddy/internal/common"
)

// MemoryStore is an in-memory common.UserStore.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int
	byID   map[string]*common.User
	// Err, when set, is returned by every method.
	Err error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*common.User)}
}

func (s *MemoryStore) CreateUser(_ context.Context, user *common.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range s.byID {
		if u.Email == user.Email {
			return common.ErrEmailTaken
		}
	}

	s.nextID++
	user.ID = fmt.Sprintf("%024x", s.nextID)
	stored := *user
	s.byID[user.ID] = &stored
	return nil
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*common.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.byID {
		if u.Email == email {
			found := *u
			return &found, nil
		}
	}
	return nil, common.ErrUserNotFound
}

func (s *MemoryStore) FindUserByID(_ context.Context, id string) (*common.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	u, ok := s.byID[id]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	found := *u
	return &found, nil
}

// Delete removes a user by ID.
func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
}

// Close lets MemoryStore stand in for the app database handle.
func (s *MemoryStore) Close() error {
	return nil
}

// RecordingPublisher records published auth events.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []common.AuthEvent
	// Err, when set, is returned by PublishAuthEvent after recording.
	Err error
}

func (p *RecordingPublisher) PublishAuthEvent(_ context.Context, event common.AuthEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.Err
}

// Events returns a copy of the recorded events.
func (p *RecordingPublisher) Events() []common.AuthEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]common.AuthEvent(nil), p.events...)
}
