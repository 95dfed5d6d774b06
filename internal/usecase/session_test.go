package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/V4T54L/defect-lens/internal/adapter/metrics"
	"github.com/V4T54L/defect-lens/internal/domain"
	"github.com/V4T54L/defect-lens/internal/domain/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDefects() []domain.Defect {
	return []domain.Defect{
		{
			ID:     "A",
			Name:   "CMP Scratch",
			Status: domain.StatusReviewing,
			SafetyReport: domain.SafetyReport{
				OriginalContent: "Machine CMP-X09 failed",
				RedactedContent: "Machine [REDACTED] failed",
				Logs: []domain.SafetyLog{
					{ID: "log-1", Action: domain.ActionFiltered, Details: "Masked Machine ID"},
				},
			},
		},
		{
			ID:     "B",
			Name:   "Edge Particle",
			Status: domain.StatusNew,
			SafetyReport: domain.SafetyReport{
				OriginalContent: "Source: Photo-Bay 3",
				RedactedContent: "Source: Litho Area",
			},
		},
	}
}

func TestSession_Defaults(t *testing.T) {
	s := NewSession(testDefects(), &mocks.MockRedactor{}, testLogger())
	defer s.Close()

	d, ok := s.Selected()
	if !ok || d.ID != "A" {
		t.Fatalf("expected first defect to be selected, got %q (ok=%v)", d.ID, ok)
	}
	if s.Role() != domain.RoleEquipmentEng {
		t.Errorf("expected default role EQUIPMENT_ENG, got %s", s.Role())
	}
	if got := s.Snapshot().State.Phase; got != PhaseIdle {
		t.Errorf("expected idle state before Start, got %s", got)
	}

	empty := NewSession(nil, &mocks.MockRedactor{}, testLogger())
	defer empty.Close()
	if _, ok := empty.Selected(); ok {
		t.Error("expected no selection for an empty defect list")
	}
	empty.Start()
	if got := empty.Snapshot().State.Phase; got != PhaseIdle {
		t.Errorf("expected Start without selection to stay idle, got %s", got)
	}
}

func TestSession_StartFetchesRestrictedVariant(t *testing.T) {
	redactor := &mocks.MockRedactor{Result: "Machine [MASKED] failed"}
	s := NewSession(testDefects(), redactor, testLogger())
	defer s.Close()

	s.Start()
	s.Wait()

	if redactor.CallCount() != 1 {
		t.Fatalf("expected 1 redaction call, got %d", redactor.CallCount())
	}
	call := redactor.Calls[0]
	if call.Text != "Machine CMP-X09 failed" || call.Role != domain.RoleYieldEng {
		t.Errorf("unexpected call %+v", call)
	}
	snap := s.Snapshot()
	if snap.State.Phase != PhaseSucceeded || snap.State.RemoteText != "Machine [MASKED] failed" {
		t.Errorf("unexpected state after fetch: %+v", snap.State)
	}
}

func TestSession_SelectUnknownDefectIsNoop(t *testing.T) {
	redactor := &mocks.MockRedactor{Result: "x"}
	s := NewSession(testDefects(), redactor, testLogger())
	defer s.Close()

	before := s.Snapshot()
	if s.SelectDefect("does-not-exist") {
		t.Error("expected SelectDefect to report the id as not applied")
	}
	after := s.Snapshot()

	if after.Defect.ID != "A" || after.Generation != before.Generation {
		t.Errorf("selection changed after unknown id: %+v", after)
	}
	if redactor.CallCount() != 0 {
		t.Errorf("expected no redaction call, got %d", redactor.CallCount())
	}
}

func TestSession_RoleChangeDoesNotRefetch(t *testing.T) {
	redactor := &mocks.MockRedactor{Result: "masked"}
	s := NewSession(testDefects(), redactor, testLogger())
	defer s.Close()

	s.Start()
	s.Wait()
	for i := 0; i < 5; i++ {
		s.SetRole(domain.RoleYieldEng)
		s.SetRole(domain.RoleEquipmentEng)
	}
	s.Wait()

	if redactor.CallCount() != 1 {
		t.Errorf("expected exactly one call for one selection, got %d", redactor.CallCount())
	}
}

func TestSession_ReselectingCurrentDefectIsNoop(t *testing.T) {
	redactor := &mocks.MockRedactor{Result: "masked"}
	s := NewSession(testDefects(), redactor, testLogger())
	defer s.Close()

	s.Start()
	s.Wait()
	if !s.SelectDefect("A") {
		t.Fatal("expected known id to be accepted")
	}
	s.Wait()

	if redactor.CallCount() != 1 {
		t.Errorf("expected no refetch for the current defect, got %d calls", redactor.CallCount())
	}
}

func TestSession_StaleResultIsDiscarded(t *testing.T) {
	releaseA := make(chan struct{})
	redactor := &mocks.MockRedactor{
		RedactFunc: func(ctx context.Context, text string, role domain.UserRole) (string, error) {
			if text == "Machine CMP-X09 failed" {
				// Ignore cancellation so the stale result really arrives late.
				select {
				case <-releaseA:
				case <-time.After(5 * time.Second):
				}
				return "stale result for A", nil
			}
			return "Source: [MASKED]", nil
		},
	}
	reg := prometheus.NewRegistry()
	m := metrics.NewLensMetrics(reg)
	s := NewSession(testDefects(), redactor, testLogger(), WithMetrics(m))
	defer s.Close()

	s.Start()
	if got := s.Snapshot().State.Phase; got != PhasePending {
		t.Fatalf("expected pending state after Start, got %s", got)
	}

	if !s.SelectDefect("B") {
		t.Fatal("expected selection of B to apply")
	}
	waitFor(t, func() bool { return s.Snapshot().State.Phase == PhaseSucceeded })

	close(releaseA)
	s.Wait()

	snap := s.Snapshot()
	if snap.Defect.ID != "B" {
		t.Fatalf("expected B to stay selected, got %q", snap.Defect.ID)
	}
	if snap.State.RemoteText != "Source: [MASKED]" {
		t.Errorf("stale result overwrote the current report: %q", snap.State.RemoteText)
	}
	if got := testutil.ToFloat64(m.StaleDiscards); got != 1 {
		t.Errorf("expected 1 stale discard, got %v", got)
	}
	if got := testutil.ToFloat64(m.RedactionCalls.WithLabelValues("succeeded")); got != 1 {
		t.Errorf("expected 1 applied success, got %v", got)
	}
}

func TestSession_SelectionCancelsInFlightCall(t *testing.T) {
	cancelled := make(chan struct{})
	redactor := &mocks.MockRedactor{
		RedactFunc: func(ctx context.Context, text string, role domain.UserRole) (string, error) {
			if text == "Machine CMP-X09 failed" {
				<-ctx.Done()
				close(cancelled)
				return "", ctx.Err()
			}
			return "ok", nil
		},
	}
	s := NewSession(testDefects(), redactor, testLogger())
	defer s.Close()

	s.Start()
	s.SelectDefect("B")

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("expected the previous call to be cancelled")
	}
	s.Wait()
	if got := s.Snapshot().State; got.Phase != PhaseSucceeded || got.RemoteText != "ok" {
		t.Errorf("unexpected state %+v", got)
	}
}

func TestSession_FailureAndTimeout(t *testing.T) {
	t.Run("service error", func(t *testing.T) {
		redactor := &mocks.MockRedactor{Err: fmt.Errorf("%w: status 500", domain.ErrRedactionUnavailable)}
		s := NewSession(testDefects(), redactor, testLogger())
		defer s.Close()

		s.Start()
		s.Wait()
		st := s.Snapshot().State
		if st.Phase != PhaseFailed || !errors.Is(st.Err, domain.ErrRedactionUnavailable) {
			t.Errorf("unexpected state %+v", st)
		}
	})

	t.Run("empty result", func(t *testing.T) {
		s := NewSession(testDefects(), &mocks.MockRedactor{Result: ""}, testLogger())
		defer s.Close()

		s.Start()
		s.Wait()
		if st := s.Snapshot().State; !errors.Is(st.Err, domain.ErrMalformedResponse) {
			t.Errorf("expected malformed response, got %+v", st)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		redactor := &mocks.MockRedactor{
			RedactFunc: func(ctx context.Context, text string, role domain.UserRole) (string, error) {
				<-ctx.Done()
				return "", fmt.Errorf("%w: %v", domain.ErrRedactionUnavailable, ctx.Err())
			},
		}
		s := NewSession(testDefects(), redactor, testLogger(), WithRedactionTimeout(20*time.Millisecond))
		defer s.Close()

		s.Start()
		s.Wait()
		if st := s.Snapshot().State; st.Phase != PhaseFailed {
			t.Errorf("expected timeout to fail the call, got %s", st.Phase)
		}
	})

	t.Run("panicking redactor", func(t *testing.T) {
		redactor := &mocks.MockRedactor{
			RedactFunc: func(ctx context.Context, text string, role domain.UserRole) (string, error) {
				panic("boom")
			},
		}
		s := NewSession(testDefects(), redactor, testLogger())
		defer s.Close()

		s.Start()
		s.Wait()
		if st := s.Snapshot().State; st.Phase != PhaseFailed {
			t.Errorf("expected panic to surface as failure, got %s", st.Phase)
		}
	})
}

func TestSession_ChangeHook(t *testing.T) {
	changes := make(chan struct{}, 16)
	s := NewSession(testDefects(), &mocks.MockRedactor{Result: "x"}, testLogger(),
		WithChangeHook(func() { changes <- struct{}{} }))
	defer s.Close()

	s.Start()
	s.Wait()
	s.SetRole(domain.RoleYieldEng)
	s.SetRole(domain.RoleYieldEng) // unchanged, no notification

	// Start, fetch resolution, one role change.
	if got := len(changes); got != 3 {
		t.Errorf("expected 3 change notifications, got %d", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
