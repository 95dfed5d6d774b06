package usecase

import (
	"errors"
	"fmt"

	"github.com/V4T54L/defect-lens/internal/domain"
)

// RedactionPhase is the lifecycle of the redaction call for the selected defect.
type RedactionPhase int

const (
	PhaseIdle RedactionPhase = iota
	PhasePending
	PhaseSucceeded
	PhaseFailed
)

func (p RedactionPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePending:
		return "pending"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	}
	return "unknown"
}

// MarshalText renders the phase by name in JSON views.
func (p RedactionPhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *RedactionPhase) UnmarshalText(text []byte) error {
	for _, candidate := range []RedactionPhase{PhaseIdle, PhasePending, PhaseSucceeded, PhaseFailed} {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown redaction phase %q", text)
}

// RedactionState is the outcome of the redaction call, as far as it is known.
type RedactionState struct {
	Phase      RedactionPhase
	RemoteText string
	Err        error
}

func IdleState() RedactionState    { return RedactionState{Phase: PhaseIdle} }
func PendingState() RedactionState { return RedactionState{Phase: PhasePending} }

func SucceededState(text string) RedactionState {
	return RedactionState{Phase: PhaseSucceeded, RemoteText: text}
}

func FailedState(err error) RedactionState {
	return RedactionState{Phase: PhaseFailed, Err: err}
}

const (
	// PlaceholderText is shown to restricted viewers until the redaction resolves.
	PlaceholderText = "Connecting to Safety Guard (Llama-3-Nemotron)..."

	NoticeGuardUnavailable = "Guard service unavailable. Showing redacted fallback."
	NoticeConnectionError  = "Connection error. Using offline fallback."
)

// DisplayContent is what the report and diff tabs should show.
type DisplayContent struct {
	// ReportText is the body of the report tab.
	ReportText string
	// DiffBefore and DiffAfter are the two sides of the safety diff.
	DiffBefore string
	DiffAfter  string
	// Loading is set while the redaction call is in flight.
	Loading bool
	// Fallback is set when the static redacted content stands in for a failed call.
	Fallback bool
	// Notice is a non-blocking warning for the viewer, empty when there is none.
	Notice string
	// Protected marks views rendered for a restricted role.
	Protected bool
}

// Resolve decides which text each tab shows for a role and redaction state.
// It is the only place where roles are interpreted.
func Resolve(role domain.UserRole, report domain.SafetyReport, state RedactionState) DisplayContent {
	if state.Phase == PhaseSucceeded && state.RemoteText == "" {
		state = FailedState(domain.ErrMalformedResponse)
	}

	out := DisplayContent{
		DiffBefore: report.OriginalContent,
		DiffAfter:  report.RedactedContent,
		Loading:    state.Phase == PhasePending,
		Protected:  !role.Trusted(),
	}

	switch state.Phase {
	case PhaseSucceeded:
		out.DiffAfter = state.RemoteText
	case PhaseFailed:
		out.Notice = failureNotice(state.Err)
	}

	if role.Trusted() {
		out.ReportText = report.OriginalContent
		return out
	}

	switch state.Phase {
	case PhaseSucceeded:
		out.ReportText = state.RemoteText
	case PhaseFailed:
		out.ReportText = report.RedactedContent
		out.Fallback = true
	default:
		out.ReportText = PlaceholderText
	}
	return out
}

func failureNotice(err error) string {
	if errors.Is(err, domain.ErrMalformedResponse) {
		return NoticeGuardUnavailable
	}
	return NoticeConnectionError
}
