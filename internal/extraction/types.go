// Package extraction turns retrieved context plus an LLM call into validated,
// typed compliance records. Model output is treated as untrusted structured
// input: it is parsed defensively and degrades per item instead of failing a
// whole run.
package extraction

import (
	"time"

	"github.com/google/uuid"
)

// GapType classifies how an internal policy falls short of a regulation.
type GapType string

const (
	GapMissingRequirement   GapType = "missing_requirement"
	GapInconsistency        GapType = "inconsistency"
	GapInsufficientControl  GapType = "insufficient_control"
	GapOutdatedPolicy       GapType = "outdated_policy"
	GapAnalysisError        GapType = "analysis_error"
)

// Severity grades a compliance gap.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// RiskLevel grades the residual risk of leaving a gap unaddressed.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

// AmendmentType classifies a drafted policy change.
type AmendmentType string

const (
	AmendmentPolicyUpdate       AmendmentType = "policy_update"
	AmendmentNewPolicySection   AmendmentType = "new_policy_section"
	AmendmentProcedureAddition  AmendmentType = "procedure_addition"
	AmendmentControlEnhancement AmendmentType = "control_enhancement"
	AmendmentAnalysisError      AmendmentType = "analysis_error"
)

// Priority grades how urgently an amendment should be implemented.
type Priority string

const (
	PriorityImmediate Priority = "immediate"
	PriorityHigh      Priority = "high"
	PriorityMedium    Priority = "medium"
	PriorityLow       Priority = "low"
)

// Record statuses. Transitions past these initial values belong to the
// persistence layer, not here.
const (
	StatusIdentified = "identified"
	StatusDraft      = "draft"
	StatusError      = "error"
)

// Gap is one identified compliance gap between a regulatory requirement and
// internal policy.
type Gap struct {
	GapID               string    `json:"gap_id"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	RegulatoryReference string    `json:"regulatory_reference"`
	PolicyReference     string    `json:"policy_reference"`
	GapType             GapType   `json:"gap_type"`
	Severity            Severity  `json:"severity"`
	RiskLevel           RiskLevel `json:"risk_level"`
	ImpactDescription   string    `json:"impact_description"`
	RecommendedAction   string    `json:"recommended_action"`
	IdentifiedAt        time.Time `json:"identified_at"`
	Status              string    `json:"status"`
}

// Amendment is one drafted policy change addressing a gap.
type Amendment struct {
	AmendmentID                 string        `json:"amendment_id"`
	GapID                       string        `json:"gap_id"`
	AmendmentType               AmendmentType `json:"amendment_type"`
	TargetPolicy                string        `json:"target_policy"`
	AmendmentTitle              string        `json:"amendment_title"`
	AmendmentText               string        `json:"amendment_text"`
	Rationale                   string        `json:"rationale"`
	ImplementationNotes         string        `json:"implementation_notes"`
	ComplianceMonitoring        string        `json:"compliance_monitoring"`
	EffectiveDateRecommendation string        `json:"effective_date_recommendation"`
	Priority                    Priority      `json:"priority"`
	DraftedAt                   time.Time     `json:"drafted_at"`
	Status                      string        `json:"status"`
	Version                     string        `json:"version"`
}

// ContextDocument is a retrieved document passed into prompt construction.
type ContextDocument struct {
	Title string
	Type  string
	Text  string
}

var validGapTypes = map[GapType]bool{
	GapMissingRequirement:  true,
	GapInconsistency:       true,
	GapInsufficientControl: true,
	GapOutdatedPolicy:      true,
}

var validSeverities = map[Severity]bool{
	SeverityCritical: true,
	SeverityHigh:     true,
	SeverityMedium:   true,
	SeverityLow:      true,
}

var validRiskLevels = map[RiskLevel]bool{
	RiskHigh:   true,
	RiskMedium: true,
	RiskLow:    true,
}

var validAmendmentTypes = map[AmendmentType]bool{
	AmendmentPolicyUpdate:       true,
	AmendmentNewPolicySection:   true,
	AmendmentProcedureAddition:  true,
	AmendmentControlEnhancement: true,
}

var validPriorities = map[Priority]bool{
	PriorityImmediate: true,
	PriorityHigh:      true,
	PriorityMedium:    true,
	PriorityLow:       true,
}

// normalizeGap applies every documented default to a parsed gap and attaches
// provenance. It is the single place gap defaulting rules live.
func normalizeGap(g *Gap, now time.Time) {
	if g.GapID == "" {
		g.GapID = "GAP-" + shortID()
	}
	if g.Title == "" {
		g.Title = "Unspecified Gap"
	}
	if !validGapTypes[g.GapType] {
		g.GapType = GapMissingRequirement
	}
	if !validSeverities[g.Severity] {
		g.Severity = SeverityMedium
	}
	if !validRiskLevels[g.RiskLevel] {
		g.RiskLevel = RiskMedium
	}
	g.IdentifiedAt = now
	g.Status = StatusIdentified
}

// normalizeAmendment applies every documented default to a parsed amendment
// and attaches provenance.
func normalizeAmendment(a *Amendment, now time.Time) {
	if a.AmendmentID == "" {
		a.AmendmentID = "AMD-" + shortID()
	}
	if !validAmendmentTypes[a.AmendmentType] {
		a.AmendmentType = AmendmentPolicyUpdate
	}
	if a.TargetPolicy == "" {
		a.TargetPolicy = "Unspecified Policy"
	}
	if a.AmendmentTitle == "" {
		a.AmendmentTitle = "Policy Amendment"
	}
	if a.EffectiveDateRecommendation == "" {
		a.EffectiveDateRecommendation = "90 days"
	}
	if !validPriorities[a.Priority] {
		a.Priority = PriorityMedium
	}
	a.DraftedAt = now
	a.Status = StatusDraft
	a.Version = "1.0"
}

func shortID() string {
	return uuid.NewString()[:8]
}
