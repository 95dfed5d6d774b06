package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/defect-lens/internal/adapter/metrics"
	"github.com/V4T54L/defect-lens/internal/domain"
	"github.com/V4T54L/defect-lens/internal/textdiff"
)

// RedactReportResult is the outcome of one redaction request.
type RedactReportResult struct {
	RedactedText string             `json:"redacted_text"`
	Actions      []domain.SafetyLog `json:"actions"`
}

// RedactReportUseCase serves redaction requests: trusted roles pass through,
// everyone else goes through the cache and the configured backend. Every
// decision is recorded in the safety journal.
type RedactReportUseCase struct {
	redactor domain.Redactor
	cache    domain.RedactionCache
	journal  domain.JournalRepository
	metrics  *metrics.RedactorMetrics
	backend  string
	logger   *slog.Logger
	now      func() time.Time
}

// NewRedactReportUseCase creates a new RedactReportUseCase. cache and journal may be nil.
func NewRedactReportUseCase(redactor domain.Redactor, cache domain.RedactionCache, journal domain.JournalRepository, m *metrics.RedactorMetrics, backend string, logger *slog.Logger) *RedactReportUseCase {
	return &RedactReportUseCase{
		redactor: redactor,
		cache:    cache,
		journal:  journal,
		metrics:  m,
		backend:  backend,
		logger:   logger.With("component", "redact_report"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Redact returns text as the given role may see it.
// Backend failures are journaled as FLAGGED and returned wrapped.
func (uc *RedactReportUseCase) Redact(ctx context.Context, text string, role domain.UserRole) (*RedactReportResult, error) {
	// 1. Trusted roles see the original
	if role.Trusted() {
		uc.countRequest(role, "passthrough")
		return &RedactReportResult{RedactedText: text, Actions: []domain.SafetyLog{}}, nil
	}

	// 2. Cache
	key := uc.cacheKey(role, text)
	if out, ok := uc.lookup(ctx, key); ok {
		uc.countRequest(role, "cache")
		return &RedactReportResult{RedactedText: out, Actions: []domain.SafetyLog{uc.record(ctx, text, out, role)}}, nil
	}

	// 3. Backend
	start := time.Now()
	out, err := uc.redactor.Redact(ctx, text, role)
	if uc.metrics != nil {
		uc.metrics.UpstreamDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		uc.countRequest(role, "error")
		uc.logger.Error("redaction backend failed", "error", err, "backend", uc.backend, "role", role)
		uc.append(ctx, uc.newLog(domain.ActionFlagged, fmt.Sprintf("Redaction via %s failed for %s: %v", uc.backend, role, err)))
		return nil, fmt.Errorf("redact via %s: %w", uc.backend, err)
	}
	uc.countRequest(role, "upstream")

	// 4. Populate cache
	if uc.cache != nil {
		if err := uc.cache.Set(ctx, key, out); err != nil {
			uc.logger.Warn("failed to cache redaction result", "error", err)
		}
	}

	return &RedactReportResult{RedactedText: out, Actions: []domain.SafetyLog{uc.record(ctx, text, out, role)}}, nil
}

func (uc *RedactReportUseCase) lookup(ctx context.Context, key string) (string, bool) {
	if uc.cache == nil {
		return "", false
	}
	out, ok, err := uc.cache.Get(ctx, key)
	if err != nil {
		uc.logger.Warn("redaction cache lookup failed", "error", err)
		ok = false
	}
	if uc.metrics != nil {
		if ok {
			uc.metrics.CacheHits.Inc()
		} else {
			uc.metrics.CacheMisses.Inc()
		}
	}
	return out, ok
}

// record journals the decision for one successful redaction and returns it.
func (uc *RedactReportUseCase) record(ctx context.Context, text, out string, role domain.UserRole) domain.SafetyLog {
	var entry domain.SafetyLog
	if out == text {
		entry = uc.newLog(domain.ActionPassed, fmt.Sprintf("No sensitive content found for %s", role))
	} else {
		stats := textdiff.Stats(textdiff.Diff(text, out))
		entry = uc.newLog(domain.ActionFiltered, fmt.Sprintf("Masked %d word(s) in %d place(s) for %s", stats.RemovedWords, stats.Changes, role))
	}
	uc.append(ctx, entry)
	return entry
}

func (uc *RedactReportUseCase) newLog(action domain.SafetyAction, details string) domain.SafetyLog {
	return domain.SafetyLog{
		ID:        uuid.NewString(),
		Timestamp: uc.now(),
		Action:    action,
		Details:   details,
	}
}

func (uc *RedactReportUseCase) append(ctx context.Context, entry domain.SafetyLog) {
	if uc.journal == nil {
		return
	}
	if err := uc.journal.Append(ctx, entry); err != nil {
		uc.logger.Error("failed to append safety log", "error", err, "log_id", entry.ID)
		if uc.metrics != nil {
			uc.metrics.JournalErrors.Inc()
		}
	}
}

func (uc *RedactReportUseCase) countRequest(role domain.UserRole, source string) {
	if uc.metrics != nil {
		uc.metrics.Requests.WithLabelValues(role.String(), source).Inc()
	}
}

func (uc *RedactReportUseCase) cacheKey(role domain.UserRole, text string) string {
	sum := sha256.Sum256([]byte(uc.backend + "\x00" + role.String() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
