package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/reglens/reglens/internal/llm"
)

// Drafter produces policy amendments addressing identified gaps.
type Drafter struct {
	provider llm.Provider
	model    string
	opts     Options
}

// NewDrafter creates a Drafter. Zero-valued option fields fall back to
// defaults.
func NewDrafter(provider llm.Provider, model string, opts Options) *Drafter {
	return &Drafter{provider: provider, model: model, opts: opts.withDefaults()}
}

// DraftAmendments drafts amendments for the given gaps. Gaps are processed
// in batches of DraftBatchSize, one model call per batch; this bounds prompt
// size and isolates a bad response to its batch. A model invocation failure
// propagates and aborts the run; a malformed response yields one error-status
// amendment per gap in that batch only.
func (d *Drafter) DraftAmendments(ctx context.Context, gaps []Gap, policies []ContextDocument, orgContext string) ([]Amendment, error) {
	if len(gaps) == 0 {
		return nil, fmt.Errorf("no gaps to draft amendments for")
	}

	var amendments []Amendment
	batchSize := d.opts.DraftBatchSize
	for i := 0; i < len(gaps); i += batchSize {
		end := i + batchSize
		if end > len(gaps) {
			end = len(gaps)
		}
		batch, err := d.draftBatch(ctx, gaps[i:end], policies, orgContext)
		if err != nil {
			return nil, fmt.Errorf("drafting batch starting at gap %d: %w", i, err)
		}
		amendments = append(amendments, batch...)
	}
	return amendments, nil
}

func (d *Drafter) draftBatch(ctx context.Context, gaps []Gap, policies []ContextDocument, orgContext string) ([]Amendment, error) {
	prompt := buildAmendmentPrompt(gaps, policies, orgContext, d.opts)

	resp, err := d.provider.Complete(ctx, llm.CompletionRequest{
		Model:       d.model,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens:   d.opts.MaxTokens,
		// Slightly above the analysis temperature for policy language.
		Temperature: d.opts.Temperature + 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("amendment completion: %w", err)
	}

	return parseAmendments(resp.Content, gaps), nil
}

// parseAmendments parses the model response into validated amendments. On
// total parse failure it synthesizes one fallback amendment per gap in the
// batch, each referencing its gap's id.
func parseAmendments(response string, gaps []Gap) []Amendment {
	now := time.Now().UTC()

	payload := extractJSONArray(response)
	objects, err := decodeObjects(payload)
	if err != nil {
		return fallbackAmendments(gaps, err, now)
	}

	amendments := make([]Amendment, 0, len(objects))
	for _, obj := range objects {
		var amendment Amendment
		if err := json.Unmarshal(obj, &amendment); err != nil {
			continue
		}
		normalizeAmendment(&amendment, now)
		amendments = append(amendments, amendment)
	}
	return amendments
}

// fallbackAmendments builds one error-flagged amendment per gap.
func fallbackAmendments(gaps []Gap, parseErr error, now time.Time) []Amendment {
	amendments := make([]Amendment, 0, len(gaps))
	for _, gap := range gaps {
		amendments = append(amendments, Amendment{
			AmendmentID:                 "AMD-PARSE-ERROR-" + shortID(),
			GapID:                       gap.GapID,
			AmendmentType:               AmendmentAnalysisError,
			TargetPolicy:                "Unknown",
			AmendmentTitle:              "Amendment Drafting Error",
			AmendmentText:               fmt.Sprintf("Unable to parse amendment response: %v", parseErr),
			Rationale:                   "Manual review required due to parsing error",
			ImplementationNotes:         "Review and re-draft manually",
			ComplianceMonitoring:        "Manual review required",
			EffectiveDateRecommendation: "TBD",
			Priority:                    PriorityMedium,
			DraftedAt:                   now,
			Status:                      StatusError,
			Version:                     "1.0",
		})
	}
	return amendments
}
