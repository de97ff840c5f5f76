// Package session runs the per-conversation build workflow.
package session

import (
	"time"

	"github.com/ashureev/dashgenie/internal/domain"
)

// Session is one conversation. It is only mutated by the Manager while the
// session's lock is held.
type Session struct {
	History      []domain.Turn
	State        domain.State
	Identity     *domain.VerifiedIdentity
	DashboardURL string
	LastActive   time.Time

	// ClaimRejected records that an identity claim was presented and could
	// not be verified.
	ClaimRejected bool
}

func newSession() *Session {
	return &Session{State: domain.StateNew}
}

// Clone returns a copy whose history can be modified independently. The
// verified identity is shared since it is never mutated.
func (s *Session) Clone() *Session {
	c := *s
	c.History = make([]domain.Turn, len(s.History))
	copy(c.History, s.History)
	return &c
}
