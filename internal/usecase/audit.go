package usecase

import (
	"context"

	"github.com/V4T54L/defect-lens/internal/domain"
)

const (
	defaultAuditLimit = 100
	// MaxAuditLimit bounds a single Recent call.
	MaxAuditLimit = 1000
)

// AuditUseCase exposes the safety journal for review.
type AuditUseCase struct {
	journal domain.JournalRepository
}

// NewAuditUseCase creates a new AuditUseCase.
func NewAuditUseCase(journal domain.JournalRepository) *AuditUseCase {
	return &AuditUseCase{journal: journal}
}

// Recent returns up to limit journal entries, newest first. Limits above
// MaxAuditLimit are clamped to it.
func (uc *AuditUseCase) Recent(ctx context.Context, limit int) ([]domain.SafetyLog, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	limit = min(limit, MaxAuditLimit)
	out := []domain.SafetyLog{}
	if uc.journal == nil {
		return out, nil
	}

	ring := make([]domain.SafetyLog, 0, min(limit, defaultAuditLimit))
	next := 0
	err := uc.journal.Replay(ctx, func(entry domain.SafetyLog) error {
		if len(ring) < limit {
			ring = append(ring, entry)
			return nil
		}
		ring[next] = entry
		next = (next + 1) % limit
		return nil
	})
	if err != nil {
		return nil, err
	}

	// next is the slot after the newest entry, wrapped or not.
	n := len(ring)
	for i := 1; i <= n; i++ {
		out = append(out, ring[(next-i+n)%n])
	}
	return out, nil
}

// Clear drops every journal entry.
func (uc *AuditUseCase) Clear(ctx context.Context) error {
	if uc.journal == nil {
		return nil
	}
	return uc.journal.Truncate(ctx)
}
