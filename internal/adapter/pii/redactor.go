package pii

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/V4T54L/defect-lens/internal/domain"
)

const RedactedPlaceholder = "[REDACTED]"

// Rule masks every match of Pattern. Keep, when set, names a submatch group
// that survives the replacement (a field label, for instance).
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Keep    string
}

// DefaultRules covers the fab parameters that must not leave the equipment group.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "recipe", Pattern: regexp.MustCompile(`\b[A-Z]{2,8}-\d{2,4}-REV\d+\b`)},
		{Name: "machine_id", Pattern: regexp.MustCompile(`\b[A-Z]{2,5}-[A-Z]{0,2}\d{2,4}\b`)},
		{Name: "fab", Pattern: regexp.MustCompile(`\bFab\s+\d+[A-Z]?\b`)},
		{Name: "bay", Pattern: regexp.MustCompile(`(?i)\b(?:photo|etch|litho|diff|implant)-bay\s*\d+\b`)},
		{Name: "track", Pattern: regexp.MustCompile(`\bTrack\s+\d+\b`)},
		{Name: "measurement", Pattern: regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s?(?:psi|ml/min|sccm|slm|m?torr|kpa|rpm)\b`)},
		{Name: "percentage", Pattern: regexp.MustCompile(`(?i)(?P<label>(?:pad|tool|chamber)\s+life\s*[:=]\s*)\d+(?:\.\d+)?%`), Keep: "label"},
	}
}

// Redactor masks sensitive process details in free-form report text. It
// implements domain.Redactor without any network dependency.
type Redactor struct {
	rules  []Rule
	logger *slog.Logger
}

// NewRedactor creates a Redactor. With no rules it uses DefaultRules.
func NewRedactor(logger *slog.Logger, rules ...Rule) *Redactor {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Redactor{
		rules:  rules,
		logger: logger.With("component", "rules_redactor"),
	}
}

// Redact applies every rule in order. The role does not change the rule set.
func (r *Redactor) Redact(ctx context.Context, text string, role domain.UserRole) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	out, matched := r.Apply(text)
	if len(matched) > 0 {
		r.logger.Debug("masked report text", "rules", matched, "role", role)
	}
	return out, nil
}

// Apply returns text with all rule matches masked and the names of the rules
// that matched at least once.
func (r *Redactor) Apply(text string) (string, []string) {
	if text == "" {
		return text, nil
	}

	var matched []string
	out := text
	for _, rule := range r.rules {
		if !rule.Pattern.MatchString(out) {
			continue
		}
		matched = append(matched, rule.Name)
		if rule.Keep == "" {
			out = rule.Pattern.ReplaceAllString(out, RedactedPlaceholder)
			continue
		}
		out = rule.Pattern.ReplaceAllString(out, "${"+rule.Keep+"}"+RedactedPlaceholder)
	}
	for strings.Contains(out, RedactedPlaceholder+RedactedPlaceholder) {
		out = strings.ReplaceAll(out, RedactedPlaceholder+RedactedPlaceholder, RedactedPlaceholder)
	}
	return out, matched
}
