package sequence

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/geethasandesh/articket/internal/config"
	"github.com/geethasandesh/articket/internal/repository"
	apperrors "github.com/geethasandesh/articket/pkg/util"
)

// Generator mints unique, monotonically increasing, category-prefixed ticket
// numbers. The critical section is per category: concurrent requests for
// different categories never contend.
type Generator struct {
	counters   repository.CounterRepository
	specs      map[string]config.CategorySpec
	fallback   config.CategorySpec
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewGenerator constructs the generator from sequence configuration. An
// unrecognized category falls back to the Incident sequence.
func NewGenerator(counters repository.CounterRepository, cfg config.SequenceConfig, logger *zap.Logger) *Generator {
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	return &Generator{
		counters:   counters,
		specs:      cfg.Specs(),
		fallback:   cfg.Incident,
		maxRetries: retries,
		retryDelay: cfg.RetryDelay(),
		logger:     logger,
	}
}

// Next returns the next ticket number for the category, e.g. "IN100000".
// The committed counter value is permanent history: if the caller's ticket
// write fails afterwards the number stays consumed and a gap appears in the
// sequence. That matches the documented numbering guarantees.
func (g *Generator) Next(ctx context.Context, category string) (string, error) {
	spec, ok := g.specs[category]
	if !ok {
		spec = g.fallback
	}

	var lastErr error
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", apperrors.NewStoreUnavailable(ctx.Err())
			case <-time.After(g.retryDelay):
			}
		}
		value, err := g.counters.Next(ctx, spec.Key, spec.Start)
		if err == nil {
			return fmt.Sprintf("%s%d", spec.Prefix, value), nil
		}
		lastErr = err
		g.logger.Warn("sequence commit failed",
			zap.String("category", category),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return "", apperrors.NewSequenceExhausted(category, lastErr)
}
