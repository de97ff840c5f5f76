// Package plan turns a free-text model response into a validated build plan.
//
// The pipeline has three stages that can be used independently:
// Extract pulls a JSON object out of the text, Normalize rewrites legacy
// shapes, and Validate checks required keys and dataset authorization.
package plan

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/ashureev/dashgenie/internal/domain"
)

const fence = "```"

// DefaultDashboardTitle is used when a legacy single-chart plan has no title.
const DefaultDashboardTitle = "Dashboard"

// Raw is a plan object as emitted by the model, keyed by top-level field.
type Raw map[string]json.RawMessage

// Extract locates and parses the plan object in text.
func Extract(text string) (Raw, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, fence) {
		if i := strings.Index(text, "\n"); i >= 0 {
			text = text[i+1:]
		} else {
			text = ""
		}
		if j := strings.LastIndex(text, fence); j >= 0 {
			text = text[:j]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, malformed("no JSON object found in response")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(text[start : end+1])))
	dec.UseNumber()
	var raw Raw
	if err := dec.Decode(&raw); err != nil {
		return nil, &Error{Kind: ErrMalformedPlan, Chart: -1, Err: err}
	}
	if raw == nil {
		return nil, malformed("plan is null")
	}
	return raw, nil
}

// Parse runs Extract, Normalize and Validate in order.
func Parse(text string, authorized map[int]struct{}) (domain.BuildPlan, error) {
	raw, err := Extract(text)
	if err != nil {
		return domain.BuildPlan{}, err
	}
	raw, err = Normalize(raw)
	if err != nil {
		return domain.BuildPlan{}, err
	}
	return Validate(raw, authorized)
}
