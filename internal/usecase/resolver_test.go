package usecase

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/V4T54L/defect-lens/internal/domain"
)

var testReport = domain.SafetyReport{
	OriginalContent: "Machine CMP-X09 failed",
	RedactedContent: "Machine [REDACTED] failed",
}

func TestResolve(t *testing.T) {
	netErr := fmt.Errorf("%w: dial tcp: connection refused", domain.ErrRedactionUnavailable)
	badPayload := fmt.Errorf("%w: missing redacted_text", domain.ErrMalformedResponse)

	tests := []struct {
		name  string
		role  domain.UserRole
		state RedactionState
		want  DisplayContent
	}{
		{
			name:  "equipment idle",
			role:  domain.RoleEquipmentEng,
			state: IdleState(),
			want: DisplayContent{
				ReportText: testReport.OriginalContent,
				DiffBefore: testReport.OriginalContent,
				DiffAfter:  testReport.RedactedContent,
			},
		},
		{
			name:  "equipment pending",
			role:  domain.RoleEquipmentEng,
			state: PendingState(),
			want: DisplayContent{
				ReportText: testReport.OriginalContent,
				DiffBefore: testReport.OriginalContent,
				DiffAfter:  testReport.RedactedContent,
				Loading:    true,
			},
		},
		{
			name:  "equipment succeeded",
			role:  domain.RoleEquipmentEng,
			state: SucceededState("Machine [MASKED] failed"),
			want: DisplayContent{
				ReportText: testReport.OriginalContent,
				DiffBefore: testReport.OriginalContent,
				DiffAfter:  "Machine [MASKED] failed",
			},
		},
		{
			name:  "equipment failed",
			role:  domain.RoleEquipmentEng,
			state: FailedState(netErr),
			want: DisplayContent{
				ReportText: testReport.OriginalContent,
				DiffBefore: testReport.OriginalContent,
				DiffAfter:  testReport.RedactedContent,
				Notice:     NoticeConnectionError,
			},
		},
		{
			name:  "yield idle",
			role:  domain.RoleYieldEng,
			state: IdleState(),
			want: DisplayContent{
				ReportText: PlaceholderText,
				DiffBefore: testReport.OriginalContent,
				DiffAfter:  testReport.RedactedContent,
				Protected:  true,
			},
		},
		{
			name:  "yield pending",
			role:  domain.RoleYieldEng,
			state: PendingState(),
			want: DisplayContent{
				ReportText: PlaceholderText,
				DiffBefore: testReport.OriginalContent,
				DiffAfter:  testReport.RedactedContent,
				Loading:    true,
				Protected:  true,
			},
		},
		{
			name:  "yield succeeded",
			role:  domain.RoleYieldEng,
			state: SucceededState("X"),
			want: DisplayContent{
				ReportText: "X",
				DiffBefore: testReport.OriginalContent,
				DiffAfter:  "X",
				Protected:  true,
			},
		},
		{
			name:  "yield network failure",
			role:  domain.RoleYieldEng,
			state: FailedState(netErr),
			want: DisplayContent{
				ReportText: testReport.RedactedContent,
				DiffBefore: testReport.OriginalContent,
				DiffAfter:  testReport.RedactedContent,
				Fallback:   true,
				Notice:     NoticeConnectionError,
				Protected:  true,
			},
		},
		{
			name:  "yield malformed response",
			role:  domain.RoleYieldEng,
			state: FailedState(badPayload),
			want: DisplayContent{
				ReportText: testReport.RedactedContent,
				DiffBefore: testReport.OriginalContent,
				DiffAfter:  testReport.RedactedContent,
				Fallback:   true,
				Notice:     NoticeGuardUnavailable,
				Protected:  true,
			},
		},
		{
			name:  "empty success is a malformed response",
			role:  domain.RoleYieldEng,
			state: SucceededState(""),
			want: DisplayContent{
				ReportText: testReport.RedactedContent,
				DiffBefore: testReport.OriginalContent,
				DiffAfter:  testReport.RedactedContent,
				Fallback:   true,
				Notice:     NoticeGuardUnavailable,
				Protected:  true,
			},
		},
		{
			name:  "unknown role is restricted",
			role:  domain.UserRole("GUEST"),
			state: SucceededState("X"),
			want: DisplayContent{
				ReportText: "X",
				DiffBefore: testReport.OriginalContent,
				DiffAfter:  "X",
				Protected:  true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.role, testReport, tt.state)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolve_EquipmentAlwaysSeesOriginal(t *testing.T) {
	states := []RedactionState{
		IdleState(),
		PendingState(),
		SucceededState("anything"),
		FailedState(errors.New("boom")),
		FailedState(nil),
	}
	for _, s := range states {
		if got := Resolve(domain.RoleEquipmentEng, testReport, s).ReportText; got != testReport.OriginalContent {
			t.Errorf("phase %s: report text = %q, want original", s.Phase, got)
		}
	}
}

func TestRedactionPhase_Text(t *testing.T) {
	for _, p := range []RedactionPhase{PhaseIdle, PhasePending, PhaseSucceeded, PhaseFailed} {
		text, _ := p.MarshalText()
		var got RedactionPhase
		if err := got.UnmarshalText(text); err != nil || got != p {
			t.Errorf("phase %s did not survive text encoding: got %s, err %v", p, got, err)
		}
	}
	var p RedactionPhase
	if err := p.UnmarshalText([]byte("exploded")); err == nil {
		t.Error("expected an error for an unknown phase")
	}
}
