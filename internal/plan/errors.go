package plan

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedPlan means no plan object could be parsed out of the text.
	ErrMalformedPlan = errors.New("malformed plan")
	// ErrMissingField means a required key is absent.
	ErrMissingField = errors.New("missing field")
	// ErrUnauthorizedDataset means a chart references a dataset outside the caller's scope.
	ErrUnauthorizedDataset = errors.New("unauthorized dataset")
)

// Error reports the first problem found in a plan.
type Error struct {
	Kind      error    // one of the package sentinels
	Chart     int      // chart index, -1 for plan-level problems
	Fields    []string // missing keys
	DatasetID int
	Err       error // underlying parse error, if any
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Chart >= 0 {
		fmt.Fprintf(&b, "chart %d: ", e.Chart)
	}
	switch e.Kind {
	case ErrMissingField:
		fmt.Fprintf(&b, "missing %s", strings.Join(e.Fields, ", "))
	case ErrUnauthorizedDataset:
		fmt.Fprintf(&b, "dataset_id %d is not accessible", e.DatasetID)
	default:
		b.WriteString(e.Kind.Error())
		if e.Err != nil {
			fmt.Fprintf(&b, ": %v", e.Err)
		}
	}
	return b.String()
}

// Is lets errors.Is match the error against its Kind sentinel.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func malformed(format string, args ...any) *Error {
	return &Error{Kind: ErrMalformedPlan, Chart: -1, Err: fmt.Errorf(format, args...)}
}
