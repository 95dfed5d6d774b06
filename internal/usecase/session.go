package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/V4T54L/defect-lens/internal/adapter/metrics"
	"github.com/V4T54L/defect-lens/internal/domain"
)

const defaultRedactionTimeout = 10 * time.Second

// SessionSnapshot is a consistent copy of the session state.
type SessionSnapshot struct {
	Defect       domain.Defect
	HasSelection bool
	Role         domain.UserRole
	State        RedactionState
	Generation   uint64
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithRedactionTimeout bounds each redaction call. A call that exceeds it
// resolves as failed.
func WithRedactionTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithChangeHook registers fn to run after every applied state transition.
// fn runs outside the session lock and may call back into the session.
func WithChangeHook(fn func()) SessionOption {
	return func(s *Session) { s.onChange = fn }
}

// WithMetrics records redaction outcomes on m.
func WithMetrics(m *metrics.LensMetrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// Session holds the defect list, the current selection and viewer role, and
// the lifecycle of the redaction call for the selected defect.
//
// Every selection change bumps a generation counter and cancels the previous
// call; a result is applied only if its generation is still current.
type Session struct {
	defects  []domain.Defect
	index    map[string]int
	redactor domain.Redactor
	logger   *slog.Logger
	metrics  *metrics.LensMetrics
	timeout  time.Duration
	onChange func()

	baseCtx context.Context
	stop    context.CancelFunc

	mu         sync.Mutex
	selectedID string
	hasSel     bool
	role       domain.UserRole
	state      RedactionState
	generation uint64
	cancel     context.CancelFunc
	inflight   sync.WaitGroup
}

// NewSession creates a session over defects. The first defect, if any, is
// selected and the role starts as domain.DefaultRole. No call is issued until
// Start or SelectDefect.
func NewSession(defects []domain.Defect, redactor domain.Redactor, logger *slog.Logger, opts ...SessionOption) *Session {
	s := &Session{
		defects:  append([]domain.Defect(nil), defects...),
		index:    make(map[string]int, len(defects)),
		redactor: redactor,
		logger:   logger.With("component", "session"),
		timeout:  defaultRedactionTimeout,
		role:     domain.DefaultRole,
		state:    IdleState(),
	}
	for i, d := range s.defects {
		if _, dup := s.index[d.ID]; !dup {
			s.index[d.ID] = i
		}
	}
	if len(s.defects) > 0 {
		s.selectedID = s.defects[0].ID
		s.hasSel = true
	}
	for _, opt := range opts {
		opt(s)
	}
	s.baseCtx, s.stop = context.WithCancel(context.Background())
	return s
}

// Start issues the redaction call for the initial selection.
func (s *Session) Start() {
	s.mu.Lock()
	started := s.hasSel && s.state.Phase == PhaseIdle
	if started {
		s.fetchLocked()
	}
	s.mu.Unlock()

	if started {
		s.notify()
	}
}

// SelectDefect makes id the current selection and starts a new redaction call.
// An unknown id leaves the selection untouched and returns false. Selecting
// the defect that is already selected is a no-op.
func (s *Session) SelectDefect(id string) bool {
	s.mu.Lock()
	if _, ok := s.index[id]; !ok {
		s.mu.Unlock()
		s.logger.Debug("ignoring selection of unknown defect", "defect_id", id)
		return false
	}
	if s.hasSel && s.selectedID == id {
		s.mu.Unlock()
		return true
	}
	s.selectedID = id
	s.hasSel = true
	s.state = IdleState()
	s.fetchLocked()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.Selections.Inc()
	}
	s.notify()
	return true
}

// SetRole changes the viewer role. It never triggers a redaction call.
func (s *Session) SetRole(role domain.UserRole) {
	s.mu.Lock()
	changed := s.role != role
	s.role = role
	s.mu.Unlock()

	if changed {
		if s.metrics != nil {
			s.metrics.RoleChanges.WithLabelValues(role.String()).Inc()
		}
		s.notify()
	}
}

// Role returns the current viewer role.
func (s *Session) Role() domain.UserRole {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// Selected returns the selected defect, if any.
func (s *Session) Selected() (domain.Defect, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedLocked()
}

// Defects returns the defects in display order.
func (s *Session) Defects() []domain.Defect {
	return append([]domain.Defect(nil), s.defects...)
}

// Snapshot returns the current selection, role and redaction state together.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.selectedLocked()
	return SessionSnapshot{
		Defect:       d,
		HasSelection: ok,
		Role:         s.role,
		State:        s.state,
		Generation:   s.generation,
	}
}

// Wait blocks until no redaction call is in flight.
func (s *Session) Wait() {
	s.inflight.Wait()
}

// Close cancels any in-flight call and waits for it to finish.
func (s *Session) Close() {
	s.stop()
	s.inflight.Wait()
}

func (s *Session) selectedLocked() (domain.Defect, bool) {
	if !s.hasSel {
		return domain.Defect{}, false
	}
	i, ok := s.index[s.selectedID]
	if !ok {
		return domain.Defect{}, false
	}
	return s.defects[i], true
}

// fetchLocked must be called with s.mu held.
func (s *Session) fetchLocked() {
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	defect, _ := s.selectedLocked()

	ctx, cancel := context.WithTimeout(s.baseCtx, s.timeout)
	s.cancel = cancel
	s.state = PendingState()

	s.inflight.Add(1)
	go s.fetch(ctx, cancel, gen, defect)
}

func (s *Session) fetch(ctx context.Context, cancel context.CancelFunc, gen uint64, defect domain.Defect) {
	defer s.inflight.Done()
	defer cancel()

	start := time.Now()
	text, err := s.redact(ctx, defect.SafetyReport.OriginalContent)
	elapsed := time.Since(start)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("discarding stale redaction result", "defect_id", defect.ID, "generation", gen)
		if s.metrics != nil {
			s.metrics.StaleDiscards.Inc()
		}
		return
	}
	if err != nil {
		s.state = FailedState(err)
	} else {
		s.state = SucceededState(text)
	}
	s.cancel = nil
	s.mu.Unlock()

	outcome := "succeeded"
	if err != nil {
		outcome = "failed"
		s.logger.Warn("redaction failed, using static fallback", "defect_id", defect.ID, "error", err)
	}
	if s.metrics != nil {
		s.metrics.RedactionCalls.WithLabelValues(outcome).Inc()
		s.metrics.RedactionDuration.Observe(elapsed.Seconds())
	}
	s.notify()
}

// redact always asks for the restricted variant; what the viewer actually
// sees is decided later by Resolve.
func (s *Session) redact(ctx context.Context, text string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: redactor panicked: %v", domain.ErrRedactionUnavailable, r)
		}
	}()
	if s.redactor == nil {
		return "", fmt.Errorf("%w: no redactor configured", domain.ErrRedactionUnavailable)
	}
	out, err = s.redactor.Redact(ctx, text, domain.RoleYieldEng)
	if err == nil && out == "" {
		err = fmt.Errorf("%w: empty redacted text", domain.ErrMalformedResponse)
	}
	return out, err
}

func (s *Session) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}
