package builder

import (
	"log/slog"

	"github.com/ashureev/dashgenie/internal/domain"
)

// Visualization identifiers understood by the analytics platform.
const (
	VizTimeseriesBar  = "echarts_timeseries_bar"
	VizTimeseriesLine = "echarts_timeseries_line"
	VizTable          = "table"
	VizPie            = "pie"
)

const (
	timeseriesRowLimit = 10000
	pieRowLimit        = 25
	tableRowLimit      = 100
)

var vizTypes = map[domain.ChartType]string{
	domain.ChartBar:   VizTimeseriesBar,
	domain.ChartLine:  VizTimeseriesLine,
	domain.ChartTable: VizTable,
	domain.ChartPie:   VizPie,
}

// VizType maps a chart type to the platform's visualization id.
// Unknown types render as bar charts.
func VizType(t domain.ChartType) string {
	if viz, ok := vizTypes[t]; ok {
		return viz
	}
	slog.Warn("Unknown chart type, using bar", "chart_type", t)
	return VizTimeseriesBar
}

// ChartParams builds the rendering parameters for a chart: a SUM over the
// metric column split by the dimension column.
func ChartParams(viz, metricColumn, dimensionColumn string) map[string]any {
	metric := map[string]any{
		"expressionType": "SIMPLE",
		"column":         map[string]any{"column_name": metricColumn},
		"aggregate":      "SUM",
		"label":          metricColumn,
		"hasCustomLabel": false,
	}
	params := map[string]any{
		"viz_type":   viz,
		"time_range": "No filter",
	}

	switch viz {
	case VizTimeseriesBar, VizTimeseriesLine:
		params["x_axis"] = dimensionColumn
		params["metrics"] = []any{metric}
		params["groupby"] = []string{}
		params["row_limit"] = timeseriesRowLimit
		params["order_desc"] = true
		params["truncate_metric"] = true
	case VizPie:
		params["metric"] = metric
		params["groupby"] = []string{dimensionColumn}
		params["row_limit"] = pieRowLimit
	default:
		params["metrics"] = []any{metric}
		params["groupby"] = []string{dimensionColumn}
		params["row_limit"] = tableRowLimit
		params["order_desc"] = true
	}
	return params
}
