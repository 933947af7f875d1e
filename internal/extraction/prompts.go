package extraction

import (
	"fmt"
	"strings"
)

// Options bounds prompt construction and batching.
type Options struct {
	// MaxAnalysisDocs and AnalysisDocChars bound primary reference documents
	// in gap-analysis prompts.
	MaxAnalysisDocs  int
	AnalysisDocChars int
	// MaxDraftingDocs and DraftingDocChars bound comparison/reference
	// documents in focused-analysis and drafting prompts.
	MaxDraftingDocs  int
	DraftingDocChars int
	// DraftBatchSize is the number of gaps drafted per model call.
	DraftBatchSize int
	MaxTokens      int
	Temperature    float64
}

// DefaultOptions returns the budgets tuned for a ~200K-token context window.
func DefaultOptions() Options {
	return Options{
		MaxAnalysisDocs:  5,
		AnalysisDocChars: 2000,
		MaxDraftingDocs:  3,
		DraftingDocChars: 1500,
		DraftBatchSize:   3,
		MaxTokens:        4000,
		Temperature:      0.1,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxAnalysisDocs <= 0 {
		o.MaxAnalysisDocs = d.MaxAnalysisDocs
	}
	if o.AnalysisDocChars <= 0 {
		o.AnalysisDocChars = d.AnalysisDocChars
	}
	if o.MaxDraftingDocs <= 0 {
		o.MaxDraftingDocs = d.MaxDraftingDocs
	}
	if o.DraftingDocChars <= 0 {
		o.DraftingDocChars = d.DraftingDocChars
	}
	if o.DraftBatchSize <= 0 {
		o.DraftBatchSize = d.DraftBatchSize
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = d.MaxTokens
	}
	return o
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// writeDocs appends up to max documents under the given heading, each capped
// at chars characters. Documents beyond max are dropped, most relevant first
// retained.
func writeDocs(b *strings.Builder, label string, docs []ContextDocument, max, chars int) {
	if len(docs) > max {
		docs = docs[:max]
	}
	for i, doc := range docs {
		title := doc.Title
		if title == "" {
			title = "Unknown"
		}
		docType := doc.Type
		if docType == "" {
			docType = "Unknown"
		}
		fmt.Fprintf(b, "\n--- %s %d ---\n", label, i+1)
		fmt.Fprintf(b, "Title: %s\n", title)
		fmt.Fprintf(b, "Type: %s\n", docType)
		fmt.Fprintf(b, "Content: %s...\n", truncate(doc.Text, chars))
	}
}

func buildGapAnalysisPrompt(regulatory, policies []ContextDocument, extraContext string, opts Options) string {
	var b strings.Builder

	b.WriteString(`You are a compliance expert analyzing regulatory documents against internal policies to identify gaps and compliance issues.

TASK: Compare the provided regulatory requirements with internal policies and identify specific gaps, inconsistencies, or missing requirements.

REGULATORY DOCUMENTS:
`)
	writeDocs(&b, "REGULATORY DOCUMENT", regulatory, opts.MaxAnalysisDocs, opts.AnalysisDocChars)

	b.WriteString("\nINTERNAL POLICIES:\n")
	writeDocs(&b, "INTERNAL POLICY", policies, opts.MaxAnalysisDocs, opts.AnalysisDocChars)

	if extraContext != "" {
		fmt.Fprintf(&b, "\nADDITIONAL CONTEXT:\n%s\n", extraContext)
	}

	b.WriteString(`
ANALYSIS INSTRUCTIONS:
1. Carefully compare regulatory requirements with internal policies
2. Identify specific gaps where internal policies don't address regulatory requirements
3. Note inconsistencies between regulations and current policies
4. Highlight missing controls or procedures
5. Assess the severity and risk level of each gap

OUTPUT FORMAT:
Provide your analysis as a JSON array of gap objects. Each gap should have:
- gap_id: Unique identifier for the gap
- title: Brief descriptive title of the gap
- description: Detailed description of the gap
- regulatory_reference: Reference to the specific regulatory requirement
- policy_reference: Reference to the relevant internal policy (if any)
- gap_type: One of ["missing_requirement", "inconsistency", "insufficient_control", "outdated_policy"]
- severity: One of ["critical", "high", "medium", "low"]
- risk_level: One of ["high", "medium", "low"]
- impact_description: Description of potential impact if not addressed
- recommended_action: High-level recommendation for addressing the gap

IMPORTANT: Return ONLY the JSON array, no additional text or formatting.
`)

	return b.String()
}

func buildRegulationPrompt(regulationTitle, regulationText string, policies []ContextDocument, opts Options) string {
	var b strings.Builder

	b.WriteString("You are a compliance expert analyzing a specific regulation against internal policies.\n\n")
	b.WriteString("REGULATION TO ANALYZE:\n")
	fmt.Fprintf(&b, "Title: %s\n", regulationTitle)
	fmt.Fprintf(&b, "Content: %s\n", truncate(regulationText, 3000))

	b.WriteString("\nINTERNAL POLICIES:\n")
	writeDocs(&b, "POLICY", policies, opts.MaxDraftingDocs, opts.DraftingDocChars)

	b.WriteString(`
TASK: Identify specific requirements in the regulation that are not adequately addressed by the internal policies.

Focus on:
1. Specific regulatory requirements
2. Compliance obligations
3. Reporting requirements
4. Control requirements
5. Documentation requirements

Return your analysis as a JSON array of gap objects with fields gap_id, title,
description, regulatory_reference, policy_reference, gap_type, severity,
risk_level, impact_description and recommended_action.

IMPORTANT: Return ONLY the JSON array, no additional text or formatting.
`)

	return b.String()
}

func buildAmendmentPrompt(gaps []Gap, policies []ContextDocument, orgContext string, opts Options) string {
	var b strings.Builder

	b.WriteString(`You are a policy expert tasked with drafting specific amendments to address identified compliance gaps.

TASK: For each compliance gap provided, draft specific, actionable amendments to existing policies or create new policy sections.

COMPLIANCE GAPS TO ADDRESS:
`)

	for i, gap := range gaps {
		fmt.Fprintf(&b, "\n--- GAP %d ---\n", i+1)
		fmt.Fprintf(&b, "Gap ID: %s\n", gap.GapID)
		fmt.Fprintf(&b, "Title: %s\n", gap.Title)
		fmt.Fprintf(&b, "Description: %s\n", gap.Description)
		fmt.Fprintf(&b, "Regulatory Reference: %s\n", gap.RegulatoryReference)
		fmt.Fprintf(&b, "Policy Reference: %s\n", gap.PolicyReference)
		fmt.Fprintf(&b, "Severity: %s\n", gap.Severity)
		fmt.Fprintf(&b, "Recommended Action: %s\n", gap.RecommendedAction)
	}

	b.WriteString("\nEXISTING POLICIES FOR REFERENCE:\n")
	writeDocs(&b, "EXISTING POLICY", policies, opts.MaxDraftingDocs, opts.DraftingDocChars)

	if orgContext != "" {
		fmt.Fprintf(&b, "\nORGANIZATION CONTEXT:\n%s\n", orgContext)
	}

	b.WriteString(`
AMENDMENT DRAFTING INSTRUCTIONS:
1. For each gap, draft specific, actionable amendments
2. Use clear, professional policy language
3. Include specific requirements, procedures, and controls
4. Reference relevant regulatory requirements
5. Ensure amendments are practical and implementable
6. Include compliance monitoring and reporting requirements where appropriate

OUTPUT FORMAT:
Provide your amendments as a JSON array. Each amendment should have:
- amendment_id: Unique identifier for the amendment
- gap_id: ID of the gap this amendment addresses
- amendment_type: One of ["policy_update", "new_policy_section", "procedure_addition", "control_enhancement"]
- target_policy: Name/reference of the policy to be amended
- amendment_title: Brief title of the amendment
- amendment_text: Complete text of the proposed amendment
- rationale: Explanation of why this amendment addresses the gap
- implementation_notes: Practical notes for implementation
- compliance_monitoring: How compliance with this amendment will be monitored
- effective_date_recommendation: Recommended timeframe for implementation
- priority: One of ["immediate", "high", "medium", "low"]

IMPORTANT: Return ONLY the JSON array, no additional text or formatting.
`)

	return b.String()
}
