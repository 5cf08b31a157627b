package flow

import (
	"context"
	"slices"

	"github.com/google/uuid"
)

// Session is the state of one pass through the wizard. It is created when an
// identity token is submitted and discarded on restart.
type Session struct {
	ID        uuid.UUID
	Token     string
	Addresses []string

	ctx    context.Context
	cancel context.CancelFunc
}

func newSession(parent context.Context, token string) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{ID: uuid.New(), Token: token, ctx: ctx, cancel: cancel}
}

// HasAddress reports whether a was in the last fetched address list.
func (s *Session) HasAddress(a string) bool {
	return slices.Contains(s.Addresses, a)
}

func (s *Session) close() {
	if s != nil && s.cancel != nil {
		s.cancel()
	}
}
