package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	linkMaxRetries = 5
	linkBaseDelay  = 50 * time.Millisecond
)

// LinkCharts associates every chart with the dashboard in one transaction.
// Pairs that already exist are left alone.
func (s *SQLStore) LinkCharts(ctx context.Context, dashboardID int, chartIDs []int) error {
	if len(chartIDs) == 0 {
		return nil
	}

	var err error
	for i := range linkMaxRetries {
		err = s.linkOnce(ctx, dashboardID, chartIDs)
		if err == nil {
			s.logger.Info("Linked charts to dashboard", "dashboard_id", dashboardID, "charts", len(chartIDs))
			return nil
		}
		if !isConflictError(err) || i == linkMaxRetries-1 {
			break
		}
		delay := linkBaseDelay * time.Duration(1<<i)
		s.logger.Debug("Database locked while linking charts, retrying",
			"dashboard_id", dashboardID,
			"attempt", i+1,
			"delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("link charts to dashboard %d: %w", dashboardID, err)
}

func (s *SQLStore) linkOnce(ctx context.Context, dashboardID int, chartIDs []int) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := fmt.Sprintf(
		"INSERT INTO dashboard_slices (dashboard_id, slice_id) VALUES (%s, %s) ON CONFLICT DO NOTHING",
		s.placeholder(1), s.placeholder(2))
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, chartID := range chartIDs {
		if _, err = stmt.ExecContext(ctx, dashboardID, chartID); err != nil {
			return fmt.Errorf("insert slice %d: %w", chartID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LinkedCharts returns the chart ids linked to a dashboard in ascending order.
func (s *SQLStore) LinkedCharts(ctx context.Context, dashboardID int) ([]int, error) {
	query := fmt.Sprintf("SELECT slice_id FROM dashboard_slices WHERE dashboard_id = %s ORDER BY slice_id", s.placeholder(1))
	rows, err := s.db.QueryContext(ctx, query, dashboardID)
	if err != nil {
		return nil, fmt.Errorf("query slices: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan slice row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// isConflictError reports SQLITE_BUSY and "database is locked" errors, both
// of which are safe to retry.
func isConflictError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
