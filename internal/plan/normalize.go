package plan

import (
	"encoding/json"
	"strings"
)

const (
	keyDashboardTitle = "dashboard_title"
	keyCharts         = "charts"
	keyDatasetID      = "dataset_id"
	keyMetricColumn   = "metric_column"
	keyDimension      = "dimension_column"
	keyChartType      = "chart_type"
	keyChartTitle     = "chart_title"
)

// chartKeys lists the required chart keys in reporting order.
var chartKeys = []string{keyDatasetID, keyMetricColumn, keyDimension, keyChartType, keyChartTitle}

// Normalize converts the legacy single-chart shape into the charts form and
// cleans up chart types. The input is not modified.
func Normalize(raw Raw) (Raw, error) {
	out := make(Raw, len(raw))
	for k, v := range raw {
		out[k] = v
	}

	charts, hasCharts := out[keyCharts]
	if !hasCharts {
		// Legacy single-chart plan: wrap it and clean it like any other.
		legacy := make(map[string]json.RawMessage)
		for _, k := range chartKeys {
			if v, ok := out[k]; ok {
				legacy[k] = v
				delete(out, k)
			}
		}
		if len(legacy) == 0 {
			return out, nil
		}
		if _, ok := out[keyDashboardTitle]; !ok {
			out[keyDashboardTitle] = mustMarshal(DefaultDashboardTitle)
		}
		charts = mustMarshal([]map[string]json.RawMessage{legacy})
	}

	var list []map[string]json.RawMessage
	if err := json.Unmarshal(charts, &list); err != nil {
		return nil, malformed("charts must be an array of objects: %v", err)
	}
	for _, c := range list {
		if v, ok := c[keyChartType]; ok {
			var s string
			if err := json.Unmarshal(v, &s); err == nil {
				c[keyChartType] = mustMarshal(strings.ToLower(strings.TrimSpace(s)))
			}
		}
	}
	out[keyCharts] = mustMarshal(list)
	return out, nil
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("plan: marshal of plain value failed: " + err.Error())
	}
	return data
}
