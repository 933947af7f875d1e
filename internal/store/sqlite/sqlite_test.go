package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/reglens/reglens/internal/extraction"
)

func mustOpen(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("opening in-memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleGap(id string) extraction.Gap {
	return extraction.Gap{
		GapID:               id,
		Title:               "Missing notification deadline",
		Description:         "No 72-hour breach notification requirement.",
		RegulatoryReference: "GDPR Article 33",
		GapType:             extraction.GapMissingRequirement,
		Severity:            extraction.SeverityHigh,
		RiskLevel:           extraction.RiskHigh,
		IdentifiedAt:        time.Now().UTC(),
		Status:              extraction.StatusIdentified,
	}
}

func sampleAmendment(id, gapID string) extraction.Amendment {
	return extraction.Amendment{
		AmendmentID:                 id,
		GapID:                       gapID,
		AmendmentType:               extraction.AmendmentPolicyUpdate,
		TargetPolicy:                "Incident Response Policy",
		AmendmentTitle:              "Add breach notification deadline",
		AmendmentText:               "Breaches must be reported within 72 hours.",
		EffectiveDateRecommendation: "30 days",
		Priority:                    extraction.PriorityHigh,
		DraftedAt:                   time.Now().UTC(),
		Status:                      extraction.StatusDraft,
		Version:                     "1.0",
	}
}

func TestSaveGaps(t *testing.T) {
	s := mustOpen(t)
	ctx := context.Background()

	gaps := []extraction.Gap{sampleGap("GAP-001"), sampleGap("GAP-002")}
	if err := s.SaveGaps(ctx, gaps); err != nil {
		t.Fatalf("save gaps: %v", err)
	}

	n, err := s.CountGaps(ctx)
	if err != nil {
		t.Fatalf("count gaps: %v", err)
	}
	if n != 2 {
		t.Errorf("CountGaps = %d, want 2", n)
	}
}

func TestSaveGaps_ReplacesByID(t *testing.T) {
	s := mustOpen(t)
	ctx := context.Background()

	original := sampleGap("GAP-001")
	if err := s.SaveGaps(ctx, []extraction.Gap{original}); err != nil {
		t.Fatalf("first save: %v", err)
	}

	updated := original
	updated.Title = "Updated title"
	if err := s.SaveGaps(ctx, []extraction.Gap{updated}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	n, err := s.CountGaps(ctx)
	if err != nil {
		t.Fatalf("count gaps: %v", err)
	}
	if n != 1 {
		t.Errorf("CountGaps = %d after re-save, want 1", n)
	}

	var title string
	if err := s.db.QueryRowContext(ctx, `SELECT title FROM gaps WHERE gap_id = ?`, "GAP-001").Scan(&title); err != nil {
		t.Fatalf("query: %v", err)
	}
	if title != "Updated title" {
		t.Errorf("title = %q, want replacement to win", title)
	}
}

func TestSaveGaps_Empty(t *testing.T) {
	s := mustOpen(t)
	if err := s.SaveGaps(context.Background(), nil); err != nil {
		t.Errorf("saving no gaps must be a no-op: %v", err)
	}
}

func TestSaveAmendments(t *testing.T) {
	s := mustOpen(t)
	ctx := context.Background()

	amendments := []extraction.Amendment{
		sampleAmendment("AMD-001", "GAP-001"),
		sampleAmendment("AMD-002", "GAP-002"),
	}
	if err := s.SaveAmendments(ctx, amendments); err != nil {
		t.Fatalf("save amendments: %v", err)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM amendments`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("amendment count = %d, want 2", n)
	}

	var gapID string
	if err := s.db.QueryRowContext(ctx, `SELECT gap_id FROM amendments WHERE amendment_id = ?`, "AMD-001").Scan(&gapID); err != nil {
		t.Fatalf("query: %v", err)
	}
	if gapID != "GAP-001" {
		t.Errorf("gap_id = %q, want GAP-001", gapID)
	}
}

func TestOpen_CreatesFileAndDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "records.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if err := s.SaveGaps(context.Background(), []extraction.Gap{sampleGap("GAP-001")}); err != nil {
		t.Fatalf("save after open: %v", err)
	}
}
