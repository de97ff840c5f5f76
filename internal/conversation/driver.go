// Package conversation produces model replies for a session's history.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashureev/dashgenie/internal/domain"
	"github.com/ashureev/dashgenie/internal/llm"
)

// ErrEmptyHistory is returned when there is nothing to send.
var ErrEmptyHistory = errors.New("empty conversation history")

// Driver sends a session's history to the language model.
type Driver struct {
	provider llm.Provider
	counter  TokenCounter
	limit    int
	logger   *slog.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithTokenCounter sets the counter used for prompt sizing.
func WithTokenCounter(c TokenCounter) Option {
	return func(d *Driver) { d.counter = c }
}

// WithPromptTokenLimit trims the oldest turns once the prompt exceeds limit
// tokens. Zero disables trimming.
func WithPromptTokenLimit(limit int) Option {
	return func(d *Driver) { d.limit = limit }
}

// NewDriver creates a Driver.
func NewDriver(provider llm.Provider, logger *slog.Logger, opts ...Option) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Driver{provider: provider, counter: EstimateCounter{}, logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Converse returns the model's raw reply to history under scope. budget caps
// the reply length in tokens. The reply is returned verbatim.
func (d *Driver) Converse(ctx context.Context, history []domain.Turn, scope Scope, budget int) (string, error) {
	if len(history) == 0 {
		return "", ErrEmptyHistory
	}
	system, err := SystemPrompt(scope)
	if err != nil {
		return "", err
	}

	messages := toMessages(history)
	tokens := d.promptTokens(system, messages)
	if d.limit > 0 && tokens > d.limit {
		var dropped int
		messages, dropped = d.trim(system, messages)
		d.logger.Info("Trimmed conversation history", "dropped_turns", dropped, "limit", d.limit)
		tokens = d.promptTokens(system, messages)
	}

	d.logger.Debug("Calling language model", "turns", len(messages), "prompt_tokens", tokens, "max_tokens", budget)

	resp, err := d.provider.Complete(ctx, llm.Request{
		System:    system,
		Messages:  messages,
		MaxTokens: budget,
	})
	if err != nil {
		return "", fmt.Errorf("model call: %w", err)
	}
	return resp.Content, nil
}

// trim drops the oldest non-directive turns until the prompt fits. The
// latest turn is always kept.
func (d *Driver) trim(system string, messages []llm.Message) ([]llm.Message, int) {
	dropped := 0
	for d.promptTokens(system, messages) > d.limit {
		idx := -1
		for i := 0; i < len(messages)-1; i++ {
			if !(domain.Turn{Content: messages[i].Content}).IsDirective() {
				idx = i
				break
			}
		}
		if idx < 0 {
			break
		}
		messages = append(messages[:idx:idx], messages[idx+1:]...)
		dropped++
	}
	return messages, dropped
}

func (d *Driver) promptTokens(system string, messages []llm.Message) int {
	total := d.counter.Count(system)
	for _, m := range messages {
		total += d.counter.Count(m.Content)
	}
	return total
}

func toMessages(history []domain.Turn) []llm.Message {
	out := make([]llm.Message, len(history))
	for i, t := range history {
		out[i] = llm.Message{Role: string(t.Role), Content: t.Content}
	}
	return out
}
