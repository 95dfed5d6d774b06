package domain

import "context"

// DefectRepository supplies the ordered set of defects available to a session.
// Implementations range from the embedded mock catalog to PostgreSQL.
type DefectRepository interface {
	// List returns all defects in display order.
	List(ctx context.Context) ([]Defect, error)
}

// Redactor turns sensitive report text into its redacted variant for the given role.
// The remote redaction service, the LLM backend and the local rule masker all
// implement it.
type Redactor interface {
	Redact(ctx context.Context, text string, role UserRole) (string, error)
}

// RedactionCache stores redaction results keyed by a digest of role and text.
type RedactionCache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// JournalRepository is the append-only audit trail of redaction decisions.
type JournalRepository interface {
	// Append writes a single entry to the journal.
	Append(ctx context.Context, entry SafetyLog) error

	// Replay reads entries in write order and passes each to handler.
	Replay(ctx context.Context, handler func(entry SafetyLog) error) error

	// Truncate removes all journal segments.
	Truncate(ctx context.Context) error
}
