package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/V4T54L/defect-lens/internal/domain"
)

const (
	defaultRetryCount   = 3
	defaultRetryBackoff = 1 * time.Second
)

// LoadDefectsUseCase reads the defect catalog from a repository at startup.
type LoadDefectsUseCase struct {
	repo    domain.DefectRepository
	logger  *slog.Logger
	retries int
	backoff time.Duration
}

// NewLoadDefectsUseCase creates a new use case for loading defects.
func NewLoadDefectsUseCase(repo domain.DefectRepository, logger *slog.Logger, retries int, backoff time.Duration) *LoadDefectsUseCase {
	if retries <= 0 {
		retries = defaultRetryCount
	}
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	return &LoadDefectsUseCase{
		repo:    repo,
		logger:  logger,
		retries: retries,
		backoff: backoff,
	}
}

// Load lists the catalog, retrying transient failures, and validates the result.
func (uc *LoadDefectsUseCase) Load(ctx context.Context) ([]domain.Defect, error) {
	defects, err := uc.listWithRetry(ctx)
	if err != nil {
		uc.logger.Error("failed to load defect catalog after retries", "error", err)
		return nil, err
	}
	if err := domain.ValidateDefects(defects); err != nil {
		return nil, fmt.Errorf("validate defect catalog: %w", err)
	}

	uc.logger.Info("loaded defect catalog", "count", len(defects))
	return defects, nil
}

func (uc *LoadDefectsUseCase) listWithRetry(ctx context.Context) ([]domain.Defect, error) {
	var lastErr error
	for i := 0; i < uc.retries; i++ {
		defects, err := uc.repo.List(ctx)
		if err == nil {
			return defects, nil
		}
		lastErr = err
		uc.logger.Warn("failed to list defects, retrying...", "attempt", i+1, "error", err)
		select {
		case <-time.After(uc.backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}
