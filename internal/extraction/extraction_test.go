package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/reglens/reglens/internal/llm"
)

// --- Mock LLM Provider ---

type mockProvider struct {
	responses []string
	err       error
	requests  []llm.CompletionRequest
}

func (m *mockProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	idx := len(m.requests) - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return &llm.CompletionResponse{Content: m.responses[idx]}, nil
}

func (m *mockProvider) Name() string { return "mock" }

func regulatoryDocs(n int) []ContextDocument {
	docs := make([]ContextDocument, n)
	for i := range docs {
		docs[i] = ContextDocument{
			Title: fmt.Sprintf("Regulation %d", i+1),
			Type:  "regulatory_document",
			Text:  "Controllers must notify the authority within 72 hours.",
		}
	}
	return docs
}

var policyDocs = []ContextDocument{
	{Title: "Incident Response Policy", Type: "internal_policy", Text: "Incidents are reported to the CISO."},
}

// --- JSON array isolation ---

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare array", `[{"a":1}]`, `[{"a":1}]`},
		{"prose wrapped", `Here are the results: [{"a":1}] Let me know!`, `[{"a":1}]`},
		{"leading whitespace", "\n\n  [1, 2]\n", `[1, 2]`},
		{"no brackets", `not json at all`, `not json at all`},
		{"only opening bracket", `[ broken`, `[ broken`},
		{"bracket order reversed", `] then [`, `] then [`},
		{"nested arrays", `text [[1], [2]] text`, `[[1], [2]]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSONArray(tt.raw); got != tt.want {
				t.Errorf("extractJSONArray(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDecodeObjects_DropsNonObjects(t *testing.T) {
	objects, err := decodeObjects(`[{"a":1}, "string", 42, null, {"b":2}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(objects) != 2 {
		t.Errorf("expected 2 objects, got %d", len(objects))
	}
}

func TestDecodeObjects_NotAnArray(t *testing.T) {
	if _, err := decodeObjects(`{"a":1}`); err == nil {
		t.Error("expected error for non-array payload")
	}
	if _, err := decodeObjects(`garbage`); err == nil {
		t.Error("expected error for non-JSON payload")
	}
}

// --- Gap analysis ---

func TestAnalyzeGaps_ProseWrappedResponse(t *testing.T) {
	provider := &mockProvider{responses: []string{
		`Based on my analysis, here are the gaps:
[
  {
    "gap_id": "GAP-001",
    "title": "Missing breach notification deadline",
    "gap_type": "missing_requirement",
    "severity": "high",
    "risk_level": "high"
  }
]
Let me know if you need more detail.`,
	}}
	analyzer := NewAnalyzer(provider, "test-model", Options{})

	gaps, err := analyzer.AnalyzeGaps(context.Background(), regulatoryDocs(1), policyDocs, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gaps) != 1 {
		t.Fatalf("expected 1 gap, got %d", len(gaps))
	}

	gap := gaps[0]
	if gap.GapID != "GAP-001" {
		t.Errorf("GapID = %q, want GAP-001", gap.GapID)
	}
	if gap.Severity != SeverityHigh {
		t.Errorf("Severity = %q, want high", gap.Severity)
	}
	if gap.Status != StatusIdentified {
		t.Errorf("Status = %q, want %q", gap.Status, StatusIdentified)
	}
	if gap.IdentifiedAt.IsZero() {
		t.Error("IdentifiedAt not stamped")
	}
}

func TestParseGaps_ProseWrappedEqualsBareArray(t *testing.T) {
	payload := `[{"gap_id": "GAP-X", "title": "Same Gap", "severity": "low"}]`
	wrapped := "Sure, here is the analysis:\n" + payload + "\nHope that helps."

	regs := regulatoryDocs(1)
	fromBare := parseGaps(payload, regs)
	fromWrapped := parseGaps(wrapped, regs)

	if len(fromBare) != 1 || len(fromWrapped) != 1 {
		t.Fatalf("expected 1 gap each, got %d and %d", len(fromBare), len(fromWrapped))
	}
	if fromBare[0].GapID != fromWrapped[0].GapID ||
		fromBare[0].Title != fromWrapped[0].Title ||
		fromBare[0].Severity != fromWrapped[0].Severity {
		t.Errorf("wrapped and bare payloads parsed differently:\n%+v\n%+v", fromBare[0], fromWrapped[0])
	}
}

func TestAnalyzeGaps_MinimalObjectGetsDefaults(t *testing.T) {
	provider := &mockProvider{responses: []string{`[{"title": "Some Gap"}]`}}
	analyzer := NewAnalyzer(provider, "test-model", Options{})

	gaps, err := analyzer.AnalyzeGaps(context.Background(), regulatoryDocs(1), policyDocs, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gaps) != 1 {
		t.Fatalf("expected 1 gap, got %d", len(gaps))
	}

	gap := gaps[0]
	if !strings.HasPrefix(gap.GapID, "GAP-") {
		t.Errorf("GapID = %q, want GAP- prefix", gap.GapID)
	}
	if gap.GapType != GapMissingRequirement {
		t.Errorf("GapType = %q, want %q", gap.GapType, GapMissingRequirement)
	}
	if gap.Severity != SeverityMedium {
		t.Errorf("Severity = %q, want %q", gap.Severity, SeverityMedium)
	}
	if gap.RiskLevel != RiskMedium {
		t.Errorf("RiskLevel = %q, want %q", gap.RiskLevel, RiskMedium)
	}
}

func TestAnalyzeGaps_InvalidEnumsDefaulted(t *testing.T) {
	provider := &mockProvider{responses: []string{
		`[{"title": "X", "gap_type": "made_up_type", "severity": "catastrophic", "risk_level": "extreme"}]`,
	}}
	analyzer := NewAnalyzer(provider, "test-model", Options{})

	gaps, err := analyzer.AnalyzeGaps(context.Background(), regulatoryDocs(1), policyDocs, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gap := gaps[0]
	if gap.GapType != GapMissingRequirement || gap.Severity != SeverityMedium || gap.RiskLevel != RiskMedium {
		t.Errorf("invalid enums not defaulted: %+v", gap)
	}
}

func TestAnalyzeGaps_ParseFailureFallbackPerDocument(t *testing.T) {
	provider := &mockProvider{responses: []string{`I could not produce structured output, sorry.`}}
	analyzer := NewAnalyzer(provider, "test-model", Options{})

	gaps, err := analyzer.AnalyzeGaps(context.Background(), regulatoryDocs(2), policyDocs, "")
	if err != nil {
		t.Fatalf("parse failure must not be an error: %v", err)
	}
	if len(gaps) != 2 {
		t.Fatalf("expected one fallback gap per regulatory document, got %d", len(gaps))
	}

	for i, gap := range gaps {
		if !strings.HasPrefix(gap.GapID, "GAP-PARSE-ERROR-") {
			t.Errorf("gap %d id = %q, want GAP-PARSE-ERROR- prefix", i, gap.GapID)
		}
		if gap.Status != StatusError {
			t.Errorf("gap %d status = %q, want %q", i, gap.Status, StatusError)
		}
		if gap.GapType != GapAnalysisError {
			t.Errorf("gap %d type = %q, want %q", i, gap.GapType, GapAnalysisError)
		}
		want := fmt.Sprintf("Regulation %d", i+1)
		if gap.RegulatoryReference != want {
			t.Errorf("gap %d reference = %q, want %q", i, gap.RegulatoryReference, want)
		}
	}
}

func TestAnalyzeGaps_InvocationErrorPropagates(t *testing.T) {
	invErr := &llm.InvocationError{Provider: "mock", Err: errors.New("rate limited")}
	provider := &mockProvider{err: invErr}
	analyzer := NewAnalyzer(provider, "test-model", Options{})

	_, err := analyzer.AnalyzeGaps(context.Background(), regulatoryDocs(1), policyDocs, "")
	if err == nil {
		t.Fatal("expected error")
	}
	var target *llm.InvocationError
	if !errors.As(err, &target) {
		t.Errorf("expected InvocationError in chain, got %v", err)
	}
}

func TestAnalyzeGaps_NoRegulatoryDocuments(t *testing.T) {
	analyzer := NewAnalyzer(&mockProvider{responses: []string{`[]`}}, "test-model", Options{})

	if _, err := analyzer.AnalyzeGaps(context.Background(), nil, policyDocs, ""); err == nil {
		t.Error("expected error for empty regulatory input")
	}
}

func TestAnalyzeRegulation_FallbackReferencesRegulation(t *testing.T) {
	provider := &mockProvider{responses: []string{`no structure here`}}
	analyzer := NewAnalyzer(provider, "test-model", Options{})

	gaps, err := analyzer.AnalyzeRegulation(context.Background(), "PSD2 Article 97", "Strong customer authentication is required.", policyDocs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gaps) != 1 {
		t.Fatalf("expected a single fallback gap, got %d", len(gaps))
	}
	if gaps[0].RegulatoryReference != "PSD2 Article 97" {
		t.Errorf("reference = %q, want the regulation title", gaps[0].RegulatoryReference)
	}
}

// --- Amendment drafting ---

func TestDraftAmendments_BatchPartitioning(t *testing.T) {
	provider := &mockProvider{responses: []string{`[{"amendment_title": "Update"}]`}}
	drafter := NewDrafter(provider, "test-model", Options{DraftBatchSize: 3})

	gaps := make([]Gap, 7)
	for i := range gaps {
		gaps[i] = Gap{GapID: fmt.Sprintf("GAP-%03d", i), Title: "gap"}
	}

	amendments, err := drafter.DraftAmendments(context.Background(), gaps, policyDocs, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(provider.requests); got != 3 {
		t.Errorf("expected 3 model calls for 7 gaps in batches of 3, got %d", got)
	}
	// One parsed amendment per batch response.
	if len(amendments) != 3 {
		t.Errorf("expected 3 amendments, got %d", len(amendments))
	}
}

func TestDraftAmendments_ParseFailureFallbackPerGap(t *testing.T) {
	provider := &mockProvider{responses: []string{`nope`}}
	drafter := NewDrafter(provider, "test-model", Options{DraftBatchSize: 5})

	gaps := []Gap{
		{GapID: "GAP-A", Title: "first"},
		{GapID: "GAP-B", Title: "second"},
	}

	amendments, err := drafter.DraftAmendments(context.Background(), gaps, policyDocs, "")
	if err != nil {
		t.Fatalf("parse failure must not be an error: %v", err)
	}
	if len(amendments) != 2 {
		t.Fatalf("expected one fallback per gap, got %d", len(amendments))
	}

	for i, amd := range amendments {
		if !strings.HasPrefix(amd.AmendmentID, "AMD-PARSE-ERROR-") {
			t.Errorf("amendment %d id = %q, want AMD-PARSE-ERROR- prefix", i, amd.AmendmentID)
		}
		if amd.GapID != gaps[i].GapID {
			t.Errorf("amendment %d gap id = %q, want %q", i, amd.GapID, gaps[i].GapID)
		}
		if amd.Status != StatusError {
			t.Errorf("amendment %d status = %q, want %q", i, amd.Status, StatusError)
		}
	}
}

func TestDraftAmendments_DefaultsApplied(t *testing.T) {
	provider := &mockProvider{responses: []string{`[{"gap_id": "GAP-A", "amendment_text": "New section 4.2."}]`}}
	drafter := NewDrafter(provider, "test-model", Options{})

	amendments, err := drafter.DraftAmendments(context.Background(), []Gap{{GapID: "GAP-A"}}, policyDocs, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	amd := amendments[0]
	if !strings.HasPrefix(amd.AmendmentID, "AMD-") {
		t.Errorf("AmendmentID = %q, want AMD- prefix", amd.AmendmentID)
	}
	if amd.AmendmentType != AmendmentPolicyUpdate {
		t.Errorf("AmendmentType = %q, want %q", amd.AmendmentType, AmendmentPolicyUpdate)
	}
	if amd.EffectiveDateRecommendation != "90 days" {
		t.Errorf("EffectiveDateRecommendation = %q, want 90 days", amd.EffectiveDateRecommendation)
	}
	if amd.Status != StatusDraft || amd.Version != "1.0" {
		t.Errorf("provenance not stamped: status=%q version=%q", amd.Status, amd.Version)
	}
}

func TestDraftAmendments_TemperatureBumped(t *testing.T) {
	provider := &mockProvider{responses: []string{`[]`}}
	drafter := NewDrafter(provider, "test-model", Options{Temperature: 0.2, DraftBatchSize: 3})

	_, err := drafter.DraftAmendments(context.Background(), []Gap{{GapID: "G"}}, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := provider.requests[0].Temperature; got < 0.29 || got > 0.31 {
		t.Errorf("drafting temperature = %v, want analysis temperature + 0.1", got)
	}
}

func TestDraftAmendments_NoGaps(t *testing.T) {
	drafter := NewDrafter(&mockProvider{responses: []string{`[]`}}, "test-model", Options{})

	if _, err := drafter.DraftAmendments(context.Background(), nil, policyDocs, ""); err == nil {
		t.Error("expected error for empty gap input")
	}
}

func TestDraftAmendments_InvocationErrorAborts(t *testing.T) {
	invErr := &llm.InvocationError{Provider: "mock", Err: errors.New("boom")}
	drafter := NewDrafter(&mockProvider{err: invErr}, "test-model", Options{DraftBatchSize: 2})

	_, err := drafter.DraftAmendments(context.Background(), []Gap{{GapID: "G1"}, {GapID: "G2"}, {GapID: "G3"}}, nil, "")
	if err == nil {
		t.Fatal("expected error")
	}
	var target *llm.InvocationError
	if !errors.As(err, &target) {
		t.Errorf("expected InvocationError in chain, got %v", err)
	}
}
