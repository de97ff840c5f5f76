package session

import (
	"strings"

	"github.com/ashureev/dashgenie/internal/domain"
)

// confirmations are matched as case-insensitive substrings, so "no, don't
// build it" also counts as a confirmation.
var confirmations = []string{
	"yes", "yep", "ok", "okay", "sure", "correct", "right",
	"looks good", "build it", "go ahead", "do it", "proceed",
}

// IsConfirmation reports whether text approves the pending proposal.
func IsConfirmation(text string) bool {
	m := strings.ToLower(strings.TrimSpace(text))
	for _, phrase := range confirmations {
		if strings.Contains(m, phrase) {
			return true
		}
	}
	return false
}

// planDirective asks the model for the machine-readable plan after the user
// confirmed.
const planDirective = domain.DirectivePrefix + " The user confirmed. The backend will now automatically create the dashboard. " +
	"Your ONLY job is to output a single JSON object so the backend knows what to build. " +
	"Output ONLY raw JSON with no explanation, no markdown and no code fences. " +
	"Use this exact format:\n" +
	`{"dashboard_title": "<str>", "charts": [` +
	`{"dataset_id": <int>, "metric_column": "<str>", "dimension_column": "<str>", ` +
	`"chart_type": "<bar|line|table|pie>", "chart_title": "<str>"}` +
	"]}\n" +
	"Include ALL charts you proposed in the charts array."
