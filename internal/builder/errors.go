package builder

import (
	"errors"
	"fmt"
)

// ErrBuildFailed matches every error returned by Builder.Build.
var ErrBuildFailed = errors.New("build failed")

// Build steps reported in BuildError.Step.
const (
	StepCreateChart     = "create_chart"
	StepLayout          = "layout"
	StepCreateDashboard = "create_dashboard"
	StepLinkCharts      = "link_charts"
)

// BuildError carries the resources created before a step failed.
// Those resources are left in place.
type BuildError struct {
	Step        string
	ChartIDs    []int
	DashboardID int
	Err         error
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("build failed at %s (charts created: %v", e.Step, e.ChartIDs)
	if e.DashboardID != 0 {
		msg += fmt.Sprintf(", dashboard %d", e.DashboardID)
	}
	return msg + fmt.Sprintf("): %v", e.Err)
}

func (e *BuildError) Is(target error) bool {
	return target == ErrBuildFailed
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
