package ledger

import (
	"context"
	"fmt"
	"strings"

	"busticket/internal/core"
)

// Login records email as the signed-in user. Any value is accepted.
func (s *Store) Login(ctx context.Context, email string) (core.User, error) {
	user := core.User{Email: strings.TrimSpace(email), IsLoggedIn: true}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist(ctx, KeyUser, user); err != nil {
		return core.User{}, err
	}
	s.user = &user

	s.logger.InfoContext(ctx, "User signed in", "email", user.Email)
	return user, nil
}

// Logout clears the session record.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Delete(ctx, KeyUser); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPersist, KeyUser, err)
	}
	s.user = nil
	return nil
}

// CurrentUser returns the signed-in user, if any.
func (s *Store) CurrentUser() (core.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || !s.user.IsLoggedIn {
		return core.User{}, false
	}
	return *s.user, true
}
