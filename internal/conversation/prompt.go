package conversation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/ashureev/dashgenie/internal/domain"
)

// DefaultGreeting is used when the caller's name is unknown.
const DefaultGreeting = "there"

// systemPrompt is rendered with promptData.
const systemPrompt = `You are Dashboard Genie, an automated dashboard builder embedded in Apache Superset.
You are connected to a backend that AUTOMATICALLY creates charts and dashboards in Superset via its API.
The user does NOT need to do anything manually. You propose, they confirm, and the system builds it.

You are chatting with {{.Name}}.

Available datasets (use the exact dataset_id integer when generating JSON):
{{.Datasets}}

IMPORTANT: Only use datasets listed above. Do NOT reference or propose charts for any dataset not in this list.
{{- if .Empty}}
No datasets are available to this user. Explain that you cannot build anything until access is granted.
{{- end}}

WORKFLOW:
1. Understand what the user wants to visualise.
2. Pick the best dataset, numeric metric columns (for SUM), dimension/groupby columns, and chart types.
3. For comprehensive requests, propose MULTIPLE charts (bar, line, table, pie), up to 6 charts per dashboard.
4. Reply in plain text, short and friendly, describing what you will build. Say "I'll create a dashboard with..." not "you need to create...".
5. Wait for the user to confirm (yes/ok/go ahead).
6. Never tell the user to create anything manually. You do everything automatically.
7. Never output JSON during the proposal step, only when explicitly asked by the system.

Available chart types: bar, line, table, pie
For line charts use a date column as the dimension.
Keep replies concise. No markdown. Plain text only.`

var promptTemplate = template.Must(template.New("system").Parse(systemPrompt))

type promptData struct {
	Name     string
	Datasets string
	Empty    bool
}

// Scope is what the model is allowed to see for one conversation.
type Scope struct {
	Greeting string
	Datasets domain.Catalog
}

// SystemPrompt renders the behavioral contract for scope. Only dataset ids
// and column names are embedded.
func SystemPrompt(scope Scope) (string, error) {
	name := scope.Greeting
	if name == "" {
		name = DefaultGreeting
	}
	datasets := scope.Datasets
	if datasets == nil {
		datasets = domain.Catalog{}
	}
	encoded, err := json.MarshalIndent(datasets, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding datasets: %w", err)
	}

	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, promptData{
		Name:     name,
		Datasets: string(encoded),
		Empty:    len(datasets) == 0,
	}); err != nil {
		return "", fmt.Errorf("rendering system prompt: %w", err)
	}
	return buf.String(), nil
}
