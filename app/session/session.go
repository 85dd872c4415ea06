// Package session holds the authenticated user of each browser session.
//
// A Session starts with no user, is set by Login and cleared by Logout.
// Sessions live in memory for the lifetime of the process and are never
// persisted, so a restart logs everybody out.
package session

import (
	"context"
	"sync"

	"animehub/app/models"

	"github.com/google/uuid"
)

// Session is one client's authentication state.
type Session struct {
	id    string
	mutex sync.RWMutex
	user  *models.User
}

// New returns an anonymous session with a fresh random id.
func New() *Session {
	return &Session{id: uuid.NewString()}
}

func (s *Session) ID() string { return s.id }

// Login sets the current user. Only the username is retained.
func (s *Session) Login(user *models.User) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if user == nil {
		s.user = nil
		return
	}
	s.user = &models.User{Username: user.Username}
}

// Logout clears the current user.
func (s *Session) Logout() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.user = nil
}

// Current returns the logged in user, or nil.
func (s *Session) Current() *models.User {
	if s == nil {
		return nil
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.user == nil {
		return nil
	}
	cp := *s.user
	return &cp
}

// Username is Current().Username, or "" when anonymous.
func (s *Session) Username() string {
	if u := s.Current(); u != nil {
		return u.Username
	}
	return ""
}

// Authenticated reports whether a user is logged in.
func (s *Session) Authenticated() bool {
	return s.Current() != nil
}

type ctxKey struct{}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session attached to ctx, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}
