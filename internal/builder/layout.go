package builder

import "fmt"

const (
	rootID        = "ROOT_ID"
	gridID        = "GRID_ID"
	chartHeight   = 50
	fullWidth     = 12
	halfWidth     = 6
	chartsPerRow  = 2
	layoutVersion = "v2"
)

// LayoutNode is one component of a dashboard position document.
type LayoutNode struct {
	Children []string       `json:"children" yaml:"children"`
	ID       string         `json:"id" yaml:"id"`
	Type     string         `json:"type" yaml:"type"`
	Meta     map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
	Parents  []string       `json:"parents,omitempty" yaml:"parents,omitempty"`
}

// Position is the dashboard position document keyed by component id.
// Values are *LayoutNode except for the version marker.
type Position map[string]any

// Rows returns the column widths of each row for n charts laid out in order:
// two charts per row, with an odd tail taking a full-width row of its own.
func Rows(n int) [][]int {
	var rows [][]int
	for i := 0; i < n; {
		if n-i >= chartsPerRow {
			rows = append(rows, []int{halfWidth, halfWidth})
			i += chartsPerRow
			continue
		}
		rows = append(rows, []int{fullWidth})
		i++
	}
	return rows
}

// Layout builds the position document for the given charts. chartIDs and
// titles are parallel slices in display order.
func Layout(chartIDs []int, titles []string) Position {
	pos := Position{
		"DASHBOARD_VERSION_KEY": layoutVersion,
		rootID: &LayoutNode{
			Children: []string{gridID},
			ID:       rootID,
			Type:     "ROOT",
		},
	}

	grid := &LayoutNode{
		Children: []string{},
		ID:       gridID,
		Type:     "GRID",
		Parents:  []string{rootID},
	}

	next := 0
	for r, widths := range Rows(len(chartIDs)) {
		rowID := fmt.Sprintf("ROW-%d", r+1)
		row := &LayoutNode{
			Children: make([]string, 0, len(widths)),
			ID:       rowID,
			Type:     "ROW",
			Meta:     map[string]any{"background": "BACKGROUND_TRANSPARENT"},
			Parents:  []string{rootID, gridID},
		}
		for _, width := range widths {
			chartKey := fmt.Sprintf("CHART-%d", next+1)
			title := ""
			if next < len(titles) {
				title = titles[next]
			}
			pos[chartKey] = &LayoutNode{
				Children: []string{},
				ID:       chartKey,
				Type:     "CHART",
				Meta: map[string]any{
					"chartId":   chartIDs[next],
					"height":    chartHeight,
					"sliceName": title,
					"width":     width,
				},
				Parents: []string{rootID, gridID, rowID},
			}
			row.Children = append(row.Children, chartKey)
			next++
		}
		pos[rowID] = row
		grid.Children = append(grid.Children, rowID)
	}

	pos[gridID] = grid
	return pos
}
