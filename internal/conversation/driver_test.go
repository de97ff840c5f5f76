package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ashureev/dashgenie/internal/domain"
	"github.com/ashureev/dashgenie/internal/llm"
)

type fakeProvider struct {
	reply string
	err   error
	reqs  []llm.Request
}

func (f *fakeProvider) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.reply}, nil
}

// wordCounter counts whitespace-separated words.
type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(strings.Fields(text)) }

func TestSystemPromptEmbedsScope(t *testing.T) {
	t.Parallel()

	prompt, err := SystemPrompt(Scope{
		Greeting: "Alice",
		Datasets: domain.Catalog{"sales": domain.NewDatasetInfo(4, []string{"region", "amount"})},
	})
	if err != nil {
		t.Fatalf("SystemPrompt: %v", err)
	}
	for _, want := range []string{"chatting with Alice", `"sales"`, `"id": 4`, `"amount"`, "up to 6 charts", "date column"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "No datasets are available") {
		t.Error("non-empty scope must not be described as empty")
	}
}

func TestSystemPromptDefaults(t *testing.T) {
	t.Parallel()

	prompt, err := SystemPrompt(Scope{})
	if err != nil {
		t.Fatalf("SystemPrompt: %v", err)
	}
	if !strings.Contains(prompt, "chatting with there") || !strings.Contains(prompt, "{}") {
		t.Fatalf("unexpected default prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "No datasets are available") {
		t.Error("empty scope should be called out")
	}
}

func TestConverseReturnsReplyVerbatim(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{reply: "  I'll create a bar chart.\n"}
	d := NewDriver(provider, nil)
	history := []domain.Turn{{Role: domain.RoleUser, Content: "sales by region"}}

	got, err := d.Converse(context.Background(), history, Scope{Greeting: "Bob"}, 512)
	if err != nil {
		t.Fatalf("Converse: %v", err)
	}
	if got != "  I'll create a bar chart.\n" {
		t.Fatalf("reply was altered: %q", got)
	}
	req := provider.reqs[0]
	if req.MaxTokens != 512 || len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if !strings.Contains(req.System, "chatting with Bob") {
		t.Fatal("system prompt not sent")
	}
}

func TestConversePropagatesErrors(t *testing.T) {
	t.Parallel()

	apiErr := &llm.APIError{Status: 500, Body: "boom"}
	d := NewDriver(&fakeProvider{err: apiErr}, nil)
	_, err := d.Converse(context.Background(), []domain.Turn{{Role: domain.RoleUser, Content: "hi"}}, Scope{}, 512)

	var target *llm.APIError
	if !errors.As(err, &target) {
		t.Fatalf("expected wrapped APIError, got %v", err)
	}
	if _, err := d.Converse(context.Background(), nil, Scope{}, 512); !errors.Is(err, ErrEmptyHistory) {
		t.Fatalf("expected ErrEmptyHistory, got %v", err)
	}
}

func TestConverseTrimsOldestTurns(t *testing.T) {
	t.Parallel()

	system, _ := SystemPrompt(Scope{})
	base := wordCounter{}.Count(system)

	provider := &fakeProvider{reply: "ok"}
	d := NewDriver(provider, nil, WithTokenCounter(wordCounter{}), WithPromptTokenLimit(base+6))
	history := []domain.Turn{
		{Role: domain.RoleUser, Content: "one two three"},
		{Role: domain.RoleAssistant, Content: "four five six"},
		{Role: domain.RoleUser, Content: domain.DirectivePrefix + " keep"},
		{Role: domain.RoleUser, Content: "seven eight"},
	}

	if _, err := d.Converse(context.Background(), history, Scope{}, 1024); err != nil {
		t.Fatalf("Converse: %v", err)
	}
	sent := provider.reqs[0].Messages
	if len(sent) != 2 {
		t.Fatalf("expected 2 turns after trimming, got %+v", sent)
	}
	if sent[0].Content != domain.DirectivePrefix+" keep" || sent[1].Content != "seven eight" {
		t.Fatalf("directive and latest turn must survive, got %+v", sent)
	}
	if len(history) != 4 || history[0].Content != "one two three" {
		t.Fatal("caller history must not be modified")
	}
}

func TestEstimateCounter(t *testing.T) {
	t.Parallel()

	if got := (EstimateCounter{}).Count("abcdefgh"); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := (EstimateCounter{}).Count("abc"); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}
