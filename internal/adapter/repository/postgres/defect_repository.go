package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/V4T54L/defect-lens/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS defects (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	image_url     TEXT NOT NULL DEFAULT '',
	thumbnail_url TEXT NOT NULL DEFAULT '',
	detected_at   TIMESTAMPTZ NOT NULL,
	status        TEXT NOT NULL,
	analysis      JSONB NOT NULL DEFAULT '{}',
	safety_report JSONB NOT NULL DEFAULT '{}'
)`

const selectDefects = `SELECT id, name, image_url, thumbnail_url, detected_at, status, analysis, safety_report FROM defects`

const upsertDefect = `
INSERT INTO defects (id, name, image_url, thumbnail_url, detected_at, status, analysis, safety_report)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	image_url = EXCLUDED.image_url,
	thumbnail_url = EXCLUDED.thumbnail_url,
	detected_at = EXCLUDED.detected_at,
	status = EXCLUDED.status,
	analysis = EXCLUDED.analysis,
	safety_report = EXCLUDED.safety_report`

// DefectRepository implements domain.DefectRepository for PostgreSQL.
type DefectRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDefectRepository creates a new PostgreSQL defect repository.
func NewDefectRepository(db *sql.DB, logger *slog.Logger) *DefectRepository {
	return &DefectRepository{db: db, logger: logger.With("component", "postgres_defects")}
}

// EnsureSchema creates the defects table if it does not exist.
func (r *DefectRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create defects table: %w", err)
	}
	return nil
}

// List returns every defect ordered by detection time.
func (r *DefectRepository) List(ctx context.Context) ([]domain.Defect, error) {
	return r.query(ctx, selectDefects+` ORDER BY detected_at, id`)
}

// ListByStatus returns the defects whose status is one of statuses.
func (r *DefectRepository) ListByStatus(ctx context.Context, statuses ...domain.DefectStatus) ([]domain.Defect, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return r.query(ctx, selectDefects+` WHERE status = ANY($1) ORDER BY detected_at, id`, pq.Array(names))
}

func (r *DefectRepository) query(ctx context.Context, query string, args ...any) ([]domain.Defect, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query defects: %w", err)
	}
	defer rows.Close()

	defects := []domain.Defect{}
	for rows.Next() {
		var (
			d                    domain.Defect
			status               string
			analysis, safetyJSON []byte
		)
		if err := rows.Scan(&d.ID, &d.Name, &d.ImageURL, &d.ThumbnailURL, &d.DetectedAt, &status, &analysis, &safetyJSON); err != nil {
			return nil, fmt.Errorf("failed to scan defect row: %w", err)
		}
		d.Status = domain.DefectStatus(status)
		if err := json.Unmarshal(analysis, &d.Analysis); err != nil {
			return nil, fmt.Errorf("failed to decode analysis of defect %s: %w", d.ID, err)
		}
		if err := json.Unmarshal(safetyJSON, &d.SafetyReport); err != nil {
			return nil, fmt.Errorf("failed to decode safety report of defect %s: %w", d.ID, err)
		}
		defects = append(defects, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate defect rows: %w", err)
	}
	return defects, nil
}

// Save upserts defects in a single transaction, keyed by id.
func (r *DefectRepository) Save(ctx context.Context, defects []domain.Defect) error {
	if len(defects) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback() // Rollback is a no-op if Commit() is called

	stmt, err := txn.PrepareContext(ctx, upsertDefect)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range defects {
		analysis, err := json.Marshal(d.Analysis)
		if err != nil {
			return fmt.Errorf("failed to encode analysis of defect %s: %w", d.ID, err)
		}
		report, err := json.Marshal(d.SafetyReport)
		if err != nil {
			return fmt.Errorf("failed to encode safety report of defect %s: %w", d.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, d.ID, d.Name, d.ImageURL, d.ThumbnailURL, d.DetectedAt, string(d.Status), analysis, report); err != nil {
			return fmt.Errorf("failed to upsert defect %s: %w", d.ID, err)
		}
	}

	if err := txn.Commit(); err != nil {
		return err
	}
	r.logger.Info("saved defects", "count", len(defects))
	return nil
}
