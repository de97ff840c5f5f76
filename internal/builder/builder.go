// Package builder creates charts and a dashboard from a validated plan.
package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/dashgenie/internal/domain"
)

// ChartRequest is the payload for creating a chart.
type ChartRequest struct {
	SliceName      string `json:"slice_name"`
	VizType        string `json:"viz_type"`
	DatasourceID   int    `json:"datasource_id"`
	DatasourceType string `json:"datasource_type"`
	Params         string `json:"params"`
	Owners         []int  `json:"owners,omitempty"`
}

// DashboardRequest is the payload for creating a dashboard.
type DashboardRequest struct {
	DashboardTitle string `json:"dashboard_title"`
	Published      bool   `json:"published"`
	PositionJSON   string `json:"position_json"`
	Owners         []int  `json:"owners,omitempty"`
}

// Platform creates resources on the analytics platform.
type Platform interface {
	CreateChart(ctx context.Context, req ChartRequest) (int, error)
	CreateDashboard(ctx context.Context, req DashboardRequest) (int, error)
}

// Linker associates charts with a dashboard. Re-linking an existing pair
// must be a no-op.
type Linker interface {
	LinkCharts(ctx context.Context, dashboardID int, chartIDs []int) error
}

// Builder turns build plans into dashboards.
type Builder struct {
	platform  Platform
	linker    Linker
	publicURL string
	logger    *slog.Logger
}

// New creates a Builder. publicURL is the externally reachable platform
// address used in returned dashboard links.
func New(platform Platform, linker Linker, publicURL string, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		platform:  platform,
		linker:    linker,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
	}
}

// Build creates every chart in order, then the dashboard, then links them.
// A failing step aborts the rest; already created resources are not deleted.
func (b *Builder) Build(ctx context.Context, plan domain.BuildPlan, ownerID *int) (string, error) {
	var owners []int
	owner := "admin"
	if ownerID != nil {
		owners = []int{*ownerID}
		owner = fmt.Sprint(*ownerID)
	}

	chartIDs := make([]int, 0, len(plan.Charts))
	titles := make([]string, 0, len(plan.Charts))
	for _, c := range plan.Charts {
		viz := VizType(c.ChartType)
		params, err := json.Marshal(ChartParams(viz, c.MetricColumn, c.DimensionColumn))
		if err != nil {
			return "", &BuildError{Step: StepCreateChart, ChartIDs: chartIDs, Err: err}
		}
		id, err := b.platform.CreateChart(ctx, ChartRequest{
			SliceName:      c.ChartTitle,
			VizType:        viz,
			DatasourceID:   c.DatasetID,
			DatasourceType: "table",
			Params:         string(params),
			Owners:         owners,
		})
		if err != nil {
			return "", &BuildError{Step: StepCreateChart, ChartIDs: chartIDs, Err: err}
		}
		chartIDs = append(chartIDs, id)
		titles = append(titles, c.ChartTitle)
		b.logger.Info("Created chart", "chart_id", id, "title", c.ChartTitle, "owner", owner)
	}

	position, err := json.Marshal(Layout(chartIDs, titles))
	if err != nil {
		return "", &BuildError{Step: StepLayout, ChartIDs: chartIDs, Err: err}
	}

	dashID, err := b.platform.CreateDashboard(ctx, DashboardRequest{
		DashboardTitle: plan.DashboardTitle,
		Published:      true,
		PositionJSON:   string(position),
		Owners:         owners,
	})
	if err != nil {
		return "", &BuildError{Step: StepCreateDashboard, ChartIDs: chartIDs, Err: err}
	}
	b.logger.Info("Created dashboard", "dashboard_id", dashID, "title", plan.DashboardTitle, "owner", owner)

	if err := b.linker.LinkCharts(ctx, dashID, chartIDs); err != nil {
		return "", &BuildError{Step: StepLinkCharts, ChartIDs: chartIDs, DashboardID: dashID, Err: err}
	}
	b.logger.Info("Linked charts to dashboard", "dashboard_id", dashID, "charts", len(chartIDs))

	return b.DashboardURL(dashID), nil
}

// DashboardURL returns the public link for a dashboard id.
func (b *Builder) DashboardURL(id int) string {
	return fmt.Sprintf("%s/superset/dashboard/%d/", b.publicURL, id)
}
