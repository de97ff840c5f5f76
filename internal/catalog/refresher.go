package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/dashgenie/internal/domain"
)

// ErrEmptyCatalog is returned when the platform reports no datasets.
var ErrEmptyCatalog = errors.New("catalog is empty")

// Loader fetches the full dataset catalog from the analytics platform.
type Loader interface {
	FetchCatalog(ctx context.Context) (domain.Catalog, error)
}

// Refresher keeps a Cache in sync with a Loader.
type Refresher struct {
	cache  *Cache
	loader Loader
	logger *slog.Logger
}

// NewRefresher creates a refresher writing into cache.
func NewRefresher(cache *Cache, loader Loader, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{cache: cache, loader: loader, logger: logger}
}

// Refresh loads the catalog once and swaps it into the cache. On failure
// the previous catalog is kept.
func (r *Refresher) Refresh(ctx context.Context) error {
	datasets, err := r.loader.FetchCatalog(ctx)
	if err != nil {
		return fmt.Errorf("fetch catalog: %w", err)
	}
	if !r.cache.Replace(datasets) {
		return ErrEmptyCatalog
	}
	names := make([]string, 0, len(datasets))
	for name := range datasets {
		names = append(names, name)
	}
	r.logger.Info("Refreshed datasets", "count", len(datasets), "datasets", names)
	return nil
}

// Startup populates the cache, retrying per policy until the platform
// answers with at least one dataset.
func (r *Refresher) Startup(ctx context.Context, policy RetryPolicy) error {
	err := policy.Execute(ctx, func(attempt int) error {
		err := r.Refresh(ctx)
		if err != nil {
			r.logger.Warn("Catalog not loaded yet, retrying",
				"attempt", attempt,
				"max_attempts", policy.MaxAttempts,
				"error", err)
		}
		return err
	})
	if err != nil {
		r.logger.Error("Could not load datasets", "error", err)
		return err
	}
	return nil
}

// Start runs the periodic refresh loop until ctx is cancelled.
func (r *Refresher) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		r.logger.Info("Catalog refresher started", "interval", interval)

		for {
			select {
			case <-ticker.C:
				if err := r.Refresh(ctx); err != nil {
					r.logger.Warn("Dataset refresh failed", "error", err)
				}
			case <-ctx.Done():
				r.logger.Info("Catalog refresher shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
