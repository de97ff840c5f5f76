package domain

// ChartType is a chart family the builder knows how to render.
type ChartType string

const (
	ChartBar   ChartType = "bar"
	ChartLine  ChartType = "line"
	ChartTable ChartType = "table"
	ChartPie   ChartType = "pie"
)

// ChartSpec describes one chart of a build plan.
type ChartSpec struct {
	DatasetID       int       `json:"dataset_id" yaml:"dataset_id"`
	MetricColumn    string    `json:"metric_column" yaml:"metric_column"`
	DimensionColumn string    `json:"dimension_column" yaml:"dimension_column"`
	ChartType       ChartType `json:"chart_type" yaml:"chart_type"`
	ChartTitle      string    `json:"chart_title" yaml:"chart_title"`
}

// BuildPlan is a validated description of a dashboard ready to be created.
type BuildPlan struct {
	DashboardTitle string      `json:"dashboard_title" yaml:"dashboard_title"`
	Charts         []ChartSpec `json:"charts" yaml:"charts"`
}
