package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/reglens/reglens/internal/llm"
)

// Analyzer identifies compliance gaps by comparing regulatory documents with
// internal policies through an LLM.
type Analyzer struct {
	provider llm.Provider
	model    string
	opts     Options
}

// NewAnalyzer creates an Analyzer. Zero-valued option fields fall back to
// defaults.
func NewAnalyzer(provider llm.Provider, model string, opts Options) *Analyzer {
	return &Analyzer{provider: provider, model: model, opts: opts.withDefaults()}
}

// AnalyzeGaps compares regulatory documents against internal policies and
// returns the identified gaps. A model invocation failure propagates; a
// malformed response degrades to one error-status gap per regulatory
// document.
func (a *Analyzer) AnalyzeGaps(ctx context.Context, regulatory, policies []ContextDocument, extraContext string) ([]Gap, error) {
	if len(regulatory) == 0 {
		return nil, fmt.Errorf("no regulatory documents to analyze")
	}

	prompt := buildGapAnalysisPrompt(regulatory, policies, extraContext, a.opts)
	content, err := a.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return parseGaps(content, regulatory), nil
}

// AnalyzeRegulation runs a focused analysis of a single regulation against
// internal policies.
func (a *Analyzer) AnalyzeRegulation(ctx context.Context, regulationTitle, regulationText string, policies []ContextDocument) ([]Gap, error) {
	prompt := buildRegulationPrompt(regulationTitle, regulationText, policies, a.opts)
	content, err := a.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	fallbackSubject := []ContextDocument{{Title: regulationTitle, Text: regulationText}}
	return parseGaps(content, fallbackSubject), nil
}

func (a *Analyzer) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		Model:       a.model,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens:   a.opts.MaxTokens,
		Temperature: a.opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("gap analysis completion: %w", err)
	}
	return resp.Content, nil
}

// parseGaps parses the model response into validated gaps. On total parse
// failure it synthesizes one fallback gap per analyzed regulatory document so
// failures stay visible and individually reviewable.
func parseGaps(response string, regulatory []ContextDocument) []Gap {
	now := time.Now().UTC()

	payload := extractJSONArray(response)
	objects, err := decodeObjects(payload)
	if err != nil {
		return fallbackGaps(regulatory, err, now)
	}

	gaps := make([]Gap, 0, len(objects))
	for _, obj := range objects {
		var gap Gap
		if err := json.Unmarshal(obj, &gap); err != nil {
			continue
		}
		normalizeGap(&gap, now)
		gaps = append(gaps, gap)
	}
	return gaps
}

// fallbackGaps builds one error-flagged gap per input document.
func fallbackGaps(regulatory []ContextDocument, parseErr error, now time.Time) []Gap {
	gaps := make([]Gap, 0, len(regulatory))
	for _, doc := range regulatory {
		gaps = append(gaps, Gap{
			GapID:               "GAP-PARSE-ERROR-" + shortID(),
			Title:               "Gap Analysis Parsing Error",
			Description:         fmt.Sprintf("Unable to parse gap analysis response: %v", parseErr),
			RegulatoryReference: doc.Title,
			GapType:             GapAnalysisError,
			Severity:            SeverityMedium,
			RiskLevel:           RiskMedium,
			ImpactDescription:   "Manual review required due to parsing error",
			RecommendedAction:   "Review analysis manually and re-run if necessary",
			IdentifiedAt:        now,
			Status:              StatusError,
		})
	}
	return gaps
}
