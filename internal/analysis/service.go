// Package analysis wires hybrid retrieval and the extraction pipeline into
// the read path: retrieve regulatory and policy context for a topic, run gap
// analysis, optionally draft amendments, and hand validated records to the
// store.
package analysis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/reglens/reglens/internal/extraction"
	"github.com/reglens/reglens/internal/index"
	"github.com/reglens/reglens/internal/search"
	"github.com/reglens/reglens/internal/store"
)

// Request describes one analysis run.
type Request struct {
	// Topic is the retrieval query, e.g. a regulation area or obligation.
	Topic string
	// Context is additional free-text guidance passed into the analysis
	// prompt.
	Context string
	// Size caps retrieved documents per corpus half.
	Size int
	// DraftAmendments also drafts remediation text for identified gaps.
	DraftAmendments bool
	// OrgContext is organization background for drafting.
	OrgContext string
}

// Report is the structured completion of an analysis run. Partial failures
// (fallback records) are embedded as counts rather than surfaced as errors.
type Report struct {
	Topic           string
	RegulatoryDocs  int
	PolicyDocs      int
	Gaps            []extraction.Gap
	Amendments      []extraction.Amendment
	GapErrors       int
	AmendmentErrors int
	Duration        time.Duration
}

// Service runs analysis requests against explicitly injected collaborators.
// records may be nil to skip persistence.
type Service struct {
	searcher *search.Searcher
	analyzer *extraction.Analyzer
	drafter  *extraction.Drafter
	records  store.RecordStore
}

// NewService creates an analysis Service.
func NewService(searcher *search.Searcher, analyzer *extraction.Analyzer, drafter *extraction.Drafter, records store.RecordStore) *Service {
	return &Service{searcher: searcher, analyzer: analyzer, drafter: drafter, records: records}
}

// Run retrieves context for the request topic and extracts gap (and
// optionally amendment) records. An empty retrieval result is a successful
// empty report, not an error.
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()
	if req.Topic == "" {
		return nil, fmt.Errorf("analysis topic is required")
	}

	regulatory, err := s.searcher.SearchByType(ctx, req.Topic, req.Size, index.DocTypeRegulatory)
	if err != nil {
		return nil, fmt.Errorf("retrieving regulatory documents: %w", err)
	}
	policies, err := s.searcher.SearchByType(ctx, req.Topic, req.Size, index.DocTypeInternalPolicy)
	if err != nil {
		return nil, fmt.Errorf("retrieving internal policies: %w", err)
	}

	report := &Report{
		Topic:          req.Topic,
		RegulatoryDocs: len(regulatory),
		PolicyDocs:     len(policies),
	}

	if len(regulatory) == 0 {
		report.Duration = time.Since(start)
		return report, nil
	}
	if len(policies) == 0 {
		log.Printf("analysis %q: no internal policies retrieved, analysis may be limited", req.Topic)
	}

	gaps, err := s.analyzer.AnalyzeGaps(ctx, toContextDocs(regulatory), toContextDocs(policies), req.Context)
	if err != nil {
		return nil, fmt.Errorf("gap analysis: %w", err)
	}
	report.Gaps = gaps
	report.GapErrors = countGapErrors(gaps)

	if req.DraftAmendments && len(gaps) > 0 {
		amendments, err := s.drafter.DraftAmendments(ctx, gaps, toContextDocs(policies), req.OrgContext)
		if err != nil {
			return nil, fmt.Errorf("amendment drafting: %w", err)
		}
		report.Amendments = amendments
		report.AmendmentErrors = countAmendmentErrors(amendments)
	}

	if s.records != nil {
		if err := s.records.SaveGaps(ctx, report.Gaps); err != nil {
			return nil, fmt.Errorf("persisting gaps: %w", err)
		}
		if len(report.Amendments) > 0 {
			if err := s.records.SaveAmendments(ctx, report.Amendments); err != nil {
				return nil, fmt.Errorf("persisting amendments: %w", err)
			}
		}
	}

	report.Duration = time.Since(start)
	return report, nil
}

func toContextDocs(docs []search.ScoredDocument) []extraction.ContextDocument {
	out := make([]extraction.ContextDocument, len(docs))
	for i, d := range docs {
		out[i] = extraction.ContextDocument{
			Title: d.Document.DocumentTitle,
			Type:  d.Document.DocumentType,
			Text:  d.Document.Text,
		}
	}
	return out
}

func countGapErrors(gaps []extraction.Gap) int {
	n := 0
	for _, g := range gaps {
		if g.Status == extraction.StatusError {
			n++
		}
	}
	return n
}

func countAmendmentErrors(amendments []extraction.Amendment) int {
	n := 0
	for _, a := range amendments {
		if a.Status == extraction.StatusError {
			n++
		}
	}
	return n
}
