package session

import (
	"testing"
	"time"

	"github.com/ashureev/dashgenie/internal/domain"
)

func TestMemoryStoreReturnsCopies(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(time.Minute)
	sess := newSession()
	sess.History = []domain.Turn{{Role: domain.RoleUser, Content: "hi"}}
	s.Put("k", sess)

	sess.History[0].Content = "changed"
	got, ok := s.Get("k")
	if !ok || got.History[0].Content != "hi" {
		t.Fatalf("store should hold its own copy, got %+v", got)
	}
	got.History = append(got.History, domain.Turn{Role: domain.RoleAssistant, Content: "x"})
	again, _ := s.Get("k")
	if len(again.History) != 1 {
		t.Fatal("Get should return an independent copy")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	t.Parallel()

	c := &clock{now: time.Unix(0, 0)}
	s := NewMemoryStore(30*time.Minute, WithClock(c.Now))
	s.Put("a", newSession())
	c.Advance(20 * time.Minute)
	s.Put("b", newSession())

	c.Advance(15 * time.Minute)
	if _, ok := s.Get("a"); ok {
		t.Fatal("a should be expired")
	}
	if s.Len() != 1 {
		t.Fatalf("expired session should be deleted on read, len=%d", s.Len())
	}

	c.Advance(20 * time.Minute)
	if n := s.Sweep(); n != 1 || s.Len() != 0 {
		t.Fatalf("expected sweep to remove b, removed %d", n)
	}
}
