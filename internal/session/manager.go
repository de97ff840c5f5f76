package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/dashgenie/internal/conversation"
	"github.com/ashureev/dashgenie/internal/domain"
	"github.com/ashureev/dashgenie/internal/plan"
)

// ErrEmptyMessage is returned for blank input.
var ErrEmptyMessage = errors.New("empty message")

// Conversation produces model replies.
type Conversation interface {
	Converse(ctx context.Context, history []domain.Turn, scope conversation.Scope, budget int) (string, error)
}

// Verifier confirms identity claims.
type Verifier interface {
	Verify(ctx context.Context, claim *domain.UserContext) (*domain.VerifiedIdentity, error)
}

// Builder creates dashboards from validated plans.
type Builder interface {
	Build(ctx context.Context, p domain.BuildPlan, ownerID *int) (string, error)
}

// CatalogView exposes the administrator's catalog.
type CatalogView interface {
	Snapshot() domain.Catalog
}

// Fallback values for Config.UnverifiedFallback.
const (
	FallbackNone  = "none"
	FallbackAdmin = "admin"
)

// Config tunes the Manager.
type Config struct {
	ProposalMaxTokens int
	PlanMaxTokens     int
	// UnverifiedFallback is the dataset view for callers whose claim was
	// rejected: FallbackNone or FallbackAdmin.
	UnverifiedFallback string
}

// Reply is the outcome of one message.
type Reply struct {
	Reply        string       `json:"reply"`
	State        domain.State `json:"state"`
	DashboardURL string       `json:"dashboard_url,omitempty"`
}

// Manager drives every session through the propose, confirm, build cycle.
type Manager struct {
	store        Store
	conversation Conversation
	verifier     Verifier
	builder      Builder
	catalog      CatalogView
	cfg          Config
	locks        *keyedMutex
	logger       *slog.Logger
}

// NewManager creates a Manager. verifier may be nil, in which case claims
// are ignored and every session sees the administrator's catalog.
func NewManager(store Store, conv Conversation, verifier Verifier, builder Builder, catalog CatalogView, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ProposalMaxTokens <= 0 {
		cfg.ProposalMaxTokens = 512
	}
	if cfg.PlanMaxTokens <= 0 {
		cfg.PlanMaxTokens = 1024
	}
	if cfg.UnverifiedFallback == "" {
		cfg.UnverifiedFallback = FallbackAdmin
	}
	return &Manager{
		store:        store,
		conversation: conv,
		verifier:     verifier,
		builder:      builder,
		catalog:      catalog,
		cfg:          cfg,
		locks:        newKeyedMutex(),
		logger:       logger,
	}
}

// HandleMessage applies one user message to the session stored under key.
// Messages for the same key are processed one at a time. A failed model call
// leaves the session as it was before the message and returns the error.
func (m *Manager) HandleMessage(ctx context.Context, key, text string, claim *domain.UserContext) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrEmptyMessage
	}

	unlock := m.locks.Lock(key)
	defer unlock()

	sess, ok := m.store.Get(key)
	if !ok {
		sess = newSession()
		m.logger.Info("Session created", "session_id", key)
	}
	if sess.Identity == nil && claim != nil {
		m.verify(ctx, key, sess, claim, ok)
	}

	before := sess.Clone()
	reply, err := m.advance(ctx, key, sess, text)
	if err != nil {
		m.logger.Error("Message handling failed", "session_id", key, "state", before.State, "error", err)
		m.store.Put(key, before)
		return Reply{}, err
	}
	m.store.Put(key, sess)
	return reply, nil
}

func (m *Manager) verify(ctx context.Context, key string, sess *Session, claim *domain.UserContext, existing bool) {
	if m.verifier == nil {
		return
	}
	identity, err := m.verifier.Verify(ctx, claim)
	if err != nil {
		if !sess.ClaimRejected {
			m.logger.Warn("User verification failed", "session_id", key, "fallback", m.cfg.UnverifiedFallback, "error", err)
		}
		sess.ClaimRejected = true
		return
	}
	sess.Identity = identity
	sess.ClaimRejected = false
	if existing {
		m.logger.Info("Late user context verified", "session_id", key, "username", identity.Username)
		return
	}
	m.logger.Info("Verified user", "session_id", key, "username", identity.Username, "datasets", len(identity.Datasets))
}

func (m *Manager) advance(ctx context.Context, key string, sess *Session, text string) (Reply, error) {
	switch sess.State {
	case domain.StateDone:
		sess.History = nil
		sess.State = domain.StateProposing
		return m.propose(ctx, sess, text)
	case domain.StateNew, domain.StateProposing:
		return m.propose(ctx, sess, text)
	case domain.StateWaitingConfirm:
		if IsConfirmation(text) {
			return m.build(ctx, key, sess, text)
		}
		return m.propose(ctx, sess, text)
	case domain.StateBuilding:
		m.logger.Warn("Session found mid-build, resuming at confirmation", "session_id", key)
		sess.State = domain.StateWaitingConfirm
		return m.advance(ctx, key, sess, text)
	default:
		return Reply{}, fmt.Errorf("session %s in unknown state %q", key, sess.State)
	}
}

// propose continues the free-text dialogue and waits for confirmation.
func (m *Manager) propose(ctx context.Context, sess *Session, text string) (Reply, error) {
	sess.History = append(sess.History, domain.Turn{Role: domain.RoleUser, Content: text})
	answer, err := m.conversation.Converse(ctx, sess.History, m.scope(sess), m.cfg.ProposalMaxTokens)
	if err != nil {
		return Reply{}, err
	}
	sess.History = append(sess.History, domain.Turn{Role: domain.RoleAssistant, Content: answer})
	sess.State = domain.StateWaitingConfirm
	return Reply{Reply: answer, State: sess.State}, nil
}

// build asks the model for a plan and executes it. Plan and build failures
// return the session to waiting_confirm with a retry prompt.
func (m *Manager) build(ctx context.Context, key string, sess *Session, text string) (Reply, error) {
	sess.History = append(sess.History,
		domain.Turn{Role: domain.RoleUser, Content: text},
		domain.Turn{Role: domain.RoleUser, Content: planDirective},
	)
	sess.State = domain.StateBuilding

	scope := m.scope(sess)
	answer, err := m.conversation.Converse(ctx, sess.History, scope, m.cfg.PlanMaxTokens)
	if err != nil {
		return Reply{}, err
	}
	sess.History = append(sess.History, domain.Turn{Role: domain.RoleAssistant, Content: answer})

	fail := func(err error) (Reply, error) {
		m.logger.Error("Dashboard build failed", "session_id", key, "error", err)
		sess.State = domain.StateWaitingConfirm
		return Reply{
			Reply: fmt.Sprintf("Sorry, the build failed (%v). Could you rephrase your request?", err),
			State: sess.State,
		}, nil
	}

	p, err := plan.Parse(answer, scope.Datasets.IDs())
	if err != nil {
		return fail(err)
	}

	var owner *int
	if sess.Identity != nil {
		id := sess.Identity.ID
		owner = &id
	}
	url, err := m.builder.Build(ctx, p, owner)
	if err != nil {
		return fail(err)
	}

	sess.State = domain.StateDone
	sess.DashboardURL = url
	m.logger.Info("Dashboard built", "session_id", key, "charts", len(p.Charts), "url", url)
	return Reply{
		Reply:        doneMessage(len(p.Charts), url),
		State:        sess.State,
		DashboardURL: url,
	}, nil
}

func doneMessage(n int, url string) string {
	noun := "chart"
	if n > 1 {
		noun = "charts"
	}
	return fmt.Sprintf("Done! I created %d %s in your dashboard: %s", n, noun, url)
}

// scope picks the datasets the model may see and plans may reference.
func (m *Manager) scope(sess *Session) conversation.Scope {
	switch {
	case sess.Identity != nil:
		return conversation.Scope{Greeting: sess.Identity.DisplayName(), Datasets: sess.Identity.Datasets}
	case sess.ClaimRejected && m.cfg.UnverifiedFallback == FallbackNone:
		return conversation.Scope{Datasets: domain.Catalog{}}
	default:
		return conversation.Scope{Datasets: m.catalog.Snapshot()}
	}
}

// History returns the visible turns of the session, or an empty slice when
// the session is absent or expired.
func (m *Manager) History(key string) []domain.Turn {
	sess, ok := m.store.Get(key)
	if !ok {
		return []domain.Turn{}
	}
	return domain.VisibleTurns(sess.History)
}

// State returns the session's current state, StateNew when absent.
func (m *Manager) State(key string) domain.State {
	sess, ok := m.store.Get(key)
	if !ok {
		return domain.StateNew
	}
	return sess.State
}

// Reset removes the session. A message in flight for the same key finishes
// first.
func (m *Manager) Reset(key string) {
	unlock := m.locks.Lock(key)
	defer unlock()
	m.store.Delete(key)
	m.logger.Info("Session reset", "session_id", key)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	return m.store.Len()
}

// StartSweeper periodically removes idle sessions until ctx is cancelled.
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		m.logger.Info("Session sweeper started", "interval", interval)

		for {
			select {
			case <-ticker.C:
				if n := m.store.Sweep(); n > 0 {
					m.logger.Info("Expired idle sessions", "count", n)
				}
			case <-ctx.Done():
				m.logger.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
