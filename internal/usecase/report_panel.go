package usecase

import (
	"sync"

	"github.com/V4T54L/defect-lens/internal/domain"
	"github.com/V4T54L/defect-lens/internal/textdiff"
)

// View is everything the view layer needs to draw the report panel.
type View struct {
	DefectID   string              `json:"defect_id,omitempty"`
	DefectName string              `json:"defect_name,omitempty"`
	Status     domain.DefectStatus `json:"status,omitempty"`
	Role       domain.UserRole     `json:"role"`
	Protected  bool                `json:"protected"`
	Phase      RedactionPhase      `json:"phase"`
	ReportText string              `json:"report_text"`
	Loading    bool                `json:"loading"`
	Fallback   bool                `json:"fallback"`
	Notice     string              `json:"notice,omitempty"`
	Diff       []textdiff.Segment  `json:"diff"`
	DiffStats  textdiff.Summary    `json:"diff_stats"`
	Logs       []domain.SafetyLog  `json:"logs"`
}

// ReportPanel renders the report and safety diff tabs for a session.
type ReportPanel struct {
	session *Session

	mu        sync.Mutex
	memoOld   string
	memoNew   string
	memoDiff  []textdiff.Segment
	memoValid bool
}

// NewReportPanel creates a panel bound to s.
func NewReportPanel(s *Session) *ReportPanel {
	return &ReportPanel{session: s}
}

// Render derives the current view from the session state.
func (p *ReportPanel) Render() View {
	snap := p.session.Snapshot()
	v := View{
		Role:      snap.Role,
		Protected: !snap.Role.Trusted(),
		Phase:     snap.State.Phase,
		Diff:      []textdiff.Segment{},
		Logs:      []domain.SafetyLog{},
	}
	if !snap.HasSelection {
		return v
	}

	d := snap.Defect
	content := Resolve(snap.Role, d.SafetyReport, snap.State)

	v.DefectID = d.ID
	v.DefectName = d.Name
	v.Status = d.Status
	v.Protected = content.Protected
	v.ReportText = content.ReportText
	v.Loading = content.Loading
	v.Fallback = content.Fallback
	v.Notice = content.Notice
	v.Diff = p.diff(content.DiffBefore, content.DiffAfter)
	v.DiffStats = textdiff.Stats(v.Diff)
	if len(d.SafetyReport.Logs) > 0 {
		v.Logs = append(v.Logs, d.SafetyReport.Logs...)
	}
	return v
}

// diff returns a copy of the segments for before/after, recomputing only when
// either side differs from the previous call.
func (p *ReportPanel) diff(before, after string) []textdiff.Segment {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.memoValid || p.memoOld != before || p.memoNew != after {
		p.memoOld, p.memoNew = before, after
		p.memoDiff = textdiff.Diff(before, after)
		p.memoValid = true
	}
	return append([]textdiff.Segment(nil), p.memoDiff...)
}
