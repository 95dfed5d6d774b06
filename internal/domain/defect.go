package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefectStatus is the review state of a defect.
type DefectStatus string

const (
	StatusNew       DefectStatus = "New"
	StatusReviewing DefectStatus = "Reviewing"
	StatusClosed    DefectStatus = "Closed"
)

// Valid reports whether s is one of the known statuses.
func (s DefectStatus) Valid() bool {
	switch s {
	case StatusNew, StatusReviewing, StatusClosed:
		return true
	}
	return false
}

// SafetyAction classifies an entry of the safety audit log.
type SafetyAction string

const (
	ActionFiltered SafetyAction = "FILTERED"
	ActionPassed   SafetyAction = "PASSED"
	ActionFlagged  SafetyAction = "FLAGGED"
)

// BoundingBox marks a region of the wafer image. Coordinates are in image pixels.
type BoundingBox struct {
	ID     string  `json:"id" yaml:"id"`
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
	Label  string  `json:"label" yaml:"label"`
	Color  string  `json:"color" yaml:"color"`
}

// Analysis is the vision model's assessment of a defect.
type Analysis struct {
	Confidence    float64       `json:"confidence" yaml:"confidence"`
	Pattern       string        `json:"pattern" yaml:"pattern"`
	Description   string        `json:"description" yaml:"description"`
	BoundingBoxes []BoundingBox `json:"bounding_boxes" yaml:"bounding_boxes"`
}

// SafetyLog is one append-only entry of a report's redaction audit trail.
type SafetyLog struct {
	ID        string       `json:"id" yaml:"id"`
	Timestamp time.Time    `json:"timestamp" yaml:"timestamp"`
	Action    SafetyAction `json:"action" yaml:"action"`
	Details   string       `json:"details" yaml:"details"`
}

// SafetyReport holds both variants of a defect's root-cause analysis.
// RedactedContent is the trusted fallback whenever the remote redaction
// service cannot produce a result.
type SafetyReport struct {
	OriginalContent string      `json:"original_content" yaml:"original_content"`
	RedactedContent string      `json:"redacted_content" yaml:"redacted_content"`
	Logs            []SafetyLog `json:"logs" yaml:"logs"`
}

// Defect is a detected anomaly on a wafer image.
type Defect struct {
	ID           string       `json:"id" yaml:"id"`
	Name         string       `json:"name" yaml:"name"`
	ImageURL     string       `json:"image_url,omitempty" yaml:"image_url"`
	ThumbnailURL string       `json:"thumbnail_url,omitempty" yaml:"thumbnail_url"`
	DetectedAt   time.Time    `json:"detected_at" yaml:"detected_at"`
	Status       DefectStatus `json:"status" yaml:"status"`
	Analysis     Analysis     `json:"analysis" yaml:"analysis"`
	SafetyReport SafetyReport `json:"safety_report" yaml:"safety_report"`
}

// Validate checks the invariants a defect must satisfy before it is served.
func (d Defect) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: defect id must be set", ErrInvalidDefect)
	}
	if !d.Status.Valid() {
		return fmt.Errorf("%w: defect %q has unknown status %q", ErrInvalidDefect, d.ID, d.Status)
	}
	if d.Analysis.Confidence < 0 || d.Analysis.Confidence > 1 {
		return fmt.Errorf("%w: defect %q confidence %v outside [0,1]", ErrInvalidDefect, d.ID, d.Analysis.Confidence)
	}
	return nil
}

// ValidateDefects validates every defect and rejects duplicate ids.
func ValidateDefects(defects []Defect) error {
	seen := make(map[string]struct{}, len(defects))
	for _, d := range defects {
		if err := d.Validate(); err != nil {
			return err
		}
		if _, ok := seen[d.ID]; ok {
			return fmt.Errorf("%w: duplicate defect id %q", ErrInvalidDefect, d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	return nil
}
