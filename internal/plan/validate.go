package plan

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ashureev/dashgenie/internal/domain"
)

// Validate checks a normalized plan. All structural checks run before any
// authorization check, so a malformed plan is reported first.
func Validate(raw Raw, authorized map[int]struct{}) (domain.BuildPlan, error) {
	var p domain.BuildPlan

	title, ok := raw[keyDashboardTitle]
	if !ok {
		return p, &Error{Kind: ErrMissingField, Chart: -1, Fields: []string{keyDashboardTitle}}
	}
	if err := json.Unmarshal(title, &p.DashboardTitle); err != nil {
		return p, malformed("dashboard_title must be a string: %v", err)
	}

	var charts []map[string]json.RawMessage
	if v, ok := raw[keyCharts]; ok {
		if err := json.Unmarshal(v, &charts); err != nil {
			return p, malformed("charts must be an array of objects: %v", err)
		}
	}
	if len(charts) == 0 {
		return p, &Error{Kind: ErrMissingField, Chart: -1, Fields: []string{keyCharts}}
	}

	specs := make([]domain.ChartSpec, 0, len(charts))
	for i, c := range charts {
		var missing []string
		for _, k := range chartKeys {
			if _, ok := c[k]; !ok {
				missing = append(missing, k)
			}
		}
		if len(missing) > 0 {
			return p, &Error{Kind: ErrMissingField, Chart: i, Fields: missing}
		}
		spec, err := decodeChart(c)
		if err != nil {
			return p, &Error{Kind: ErrMalformedPlan, Chart: i, Err: err}
		}
		specs = append(specs, spec)
	}

	for i, spec := range specs {
		if _, ok := authorized[spec.DatasetID]; !ok {
			return p, &Error{Kind: ErrUnauthorizedDataset, Chart: i, DatasetID: spec.DatasetID}
		}
	}

	p.Charts = specs
	return p, nil
}

func decodeChart(c map[string]json.RawMessage) (domain.ChartSpec, error) {
	var spec domain.ChartSpec
	id, err := decodeID(c[keyDatasetID])
	if err != nil {
		return spec, err
	}
	spec.DatasetID = id

	var chartType string
	fields := []struct {
		key string
		dst *string
	}{
		{keyMetricColumn, &spec.MetricColumn},
		{keyDimension, &spec.DimensionColumn},
		{keyChartType, &chartType},
		{keyChartTitle, &spec.ChartTitle},
	}
	for _, f := range fields {
		if err := json.Unmarshal(c[f.key], f.dst); err != nil {
			return spec, fmt.Errorf("%s must be a string", f.key)
		}
	}
	spec.ChartType = domain.ChartType(chartType)
	return spec, nil
}

// decodeID accepts integer numbers and numeric strings.
func decodeID(v json.RawMessage) (int, error) {
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		if id, err := strconv.Atoi(n.String()); err == nil {
			return id, nil
		}
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		if id, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return id, nil
		}
	}
	return 0, fmt.Errorf("dataset_id must be an integer, got %s", string(v))
}
