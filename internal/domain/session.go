package domain

import "strings"

// State is a conversation's position in the build workflow.
type State string

const (
	StateNew            State = "new"
	StateProposing      State = "proposing"
	StateWaitingConfirm State = "waiting_confirm"
	StateBuilding       State = "building"
	StateDone           State = "done"
)

// Valid reports whether s is one of the defined states.
func (s State) Valid() bool {
	switch s {
	case StateNew, StateProposing, StateWaitingConfirm, StateBuilding, StateDone:
		return true
	}
	return false
}

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DirectivePrefix marks turns injected by the backend to steer the model.
// They are sent to the model but never shown to the user.
const DirectivePrefix = "SYSTEM:"

// Turn is a single conversation entry.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// IsDirective returns true if the turn was injected by the backend.
func (t Turn) IsDirective() bool {
	return strings.HasPrefix(t.Content, DirectivePrefix)
}

// VisibleTurns returns history without directive turns.
func VisibleTurns(history []Turn) []Turn {
	out := make([]Turn, 0, len(history))
	for _, t := range history {
		if t.IsDirective() {
			continue
		}
		out = append(out, t)
	}
	return out
}
