package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "superset.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLinkCharts(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if err := s.LinkCharts(ctx, 9, []int{12, 11}); err != nil {
		t.Fatalf("LinkCharts: %v", err)
	}
	got, err := s.LinkedCharts(ctx, 9)
	if err != nil {
		t.Fatalf("LinkedCharts: %v", err)
	}
	if len(got) != 2 || got[0] != 11 || got[1] != 12 {
		t.Fatalf("expected [11 12], got %v", got)
	}
}

func TestLinkChartsIsIdempotent(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	for range 2 {
		if err := s.LinkCharts(ctx, 3, []int{1, 2}); err != nil {
			t.Fatalf("LinkCharts: %v", err)
		}
	}
	if err := s.LinkCharts(ctx, 3, []int{2, 4}); err != nil {
		t.Fatalf("LinkCharts overlapping: %v", err)
	}
	got, _ := s.LinkedCharts(ctx, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 distinct links, got %v", got)
	}

	other, _ := s.LinkedCharts(ctx, 4)
	if len(other) != 0 {
		t.Fatalf("expected no links for dashboard 4, got %v", other)
	}
}

func TestLinkChartsEmpty(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if err := s.LinkCharts(context.Background(), 1, nil); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestLinkChartsClosedDatabase(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	s.Close()
	if err := s.LinkCharts(context.Background(), 1, []int{1}); err == nil {
		t.Fatal("expected error on closed database")
	}
}

func TestIsConflictError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("SQLITE_BUSY: database busy"), true},
		{errors.New("database is locked"), true},
		{errors.New("no such table"), false},
		{context.Canceled, false},
	}
	for _, tt := range tests {
		if got := isConflictError(tt.err); got != tt.want {
			t.Errorf("isConflictError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestPlaceholder(t *testing.T) {
	t.Parallel()

	pg := &SQLStore{dialect: dialectPostgres}
	lite := &SQLStore{dialect: dialectSQLite}
	if pg.placeholder(2) != "$2" || lite.placeholder(2) != "?" {
		t.Fatalf("unexpected placeholders %q %q", pg.placeholder(2), lite.placeholder(2))
	}
}
