// Package sqlite is the reference RecordStore adapter, keeping extracted
// records queryable locally without external infrastructure.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/reglens/reglens/internal/extraction"
)

// Store persists gaps and amendments to a SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// OpenMemory creates an in-memory store (useful for testing).
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS gaps (
    gap_id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    regulatory_reference TEXT NOT NULL DEFAULT '',
    policy_reference TEXT NOT NULL DEFAULT '',
    gap_type TEXT NOT NULL,
    severity TEXT NOT NULL,
    risk_level TEXT NOT NULL,
    impact_description TEXT NOT NULL DEFAULT '',
    recommended_action TEXT NOT NULL DEFAULT '',
    identified_at DATETIME NOT NULL,
    status TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_gaps_severity ON gaps(severity);
CREATE INDEX IF NOT EXISTS idx_gaps_status ON gaps(status);

CREATE TABLE IF NOT EXISTS amendments (
    amendment_id TEXT PRIMARY KEY,
    gap_id TEXT NOT NULL,
    amendment_type TEXT NOT NULL,
    target_policy TEXT NOT NULL,
    amendment_title TEXT NOT NULL,
    amendment_text TEXT NOT NULL DEFAULT '',
    rationale TEXT NOT NULL DEFAULT '',
    implementation_notes TEXT NOT NULL DEFAULT '',
    compliance_monitoring TEXT NOT NULL DEFAULT '',
    effective_date_recommendation TEXT NOT NULL DEFAULT '',
    priority TEXT NOT NULL,
    drafted_at DATETIME NOT NULL,
    status TEXT NOT NULL,
    version TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_amendments_gap ON amendments(gap_id);
CREATE INDEX IF NOT EXISTS idx_amendments_status ON amendments(status);
`

// SaveGaps inserts gaps, replacing any previous record with the same id.
func (s *Store) SaveGaps(ctx context.Context, gaps []extraction.Gap) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, g := range gaps {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO gaps
				(gap_id, title, description, regulatory_reference, policy_reference,
				 gap_type, severity, risk_level, impact_description, recommended_action,
				 identified_at, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			g.GapID, g.Title, g.Description, g.RegulatoryReference, g.PolicyReference,
			string(g.GapType), string(g.Severity), string(g.RiskLevel),
			g.ImpactDescription, g.RecommendedAction, g.IdentifiedAt, g.Status,
		)
		if err != nil {
			return fmt.Errorf("inserting gap %s: %w", g.GapID, err)
		}
	}
	return tx.Commit()
}

// SaveAmendments inserts amendments, replacing any previous record with the
// same id.
func (s *Store) SaveAmendments(ctx context.Context, amendments []extraction.Amendment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, a := range amendments {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO amendments
				(amendment_id, gap_id, amendment_type, target_policy, amendment_title,
				 amendment_text, rationale, implementation_notes, compliance_monitoring,
				 effective_date_recommendation, priority, drafted_at, status, version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.AmendmentID, a.GapID, string(a.AmendmentType), a.TargetPolicy,
			a.AmendmentTitle, a.AmendmentText, a.Rationale, a.ImplementationNotes,
			a.ComplianceMonitoring, a.EffectiveDateRecommendation, string(a.Priority),
			a.DraftedAt, a.Status, a.Version,
		)
		if err != nil {
			return fmt.Errorf("inserting amendment %s: %w", a.AmendmentID, err)
		}
	}
	return tx.Commit()
}

// CountGaps returns the number of stored gaps.
func (s *Store) CountGaps(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM gaps`).Scan(&n)
	return n, err
}
