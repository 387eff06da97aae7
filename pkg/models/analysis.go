package models

// RiskCategory is one of the closed set of risk categories.
type RiskCategory string

const (
	RiskSecurity    RiskCategory = "security"
	RiskTechnical   RiskCategory = "technical"
	RiskIntegration RiskCategory = "integration"
	RiskCompliance  RiskCategory = "compliance"
	RiskBusiness    RiskCategory = "business"
)

// RiskCategories lists every category in enum order. Risk output ties are
// broken by this order.
var RiskCategories = []RiskCategory{
	RiskSecurity,
	RiskTechnical,
	RiskIntegration,
	RiskCompliance,
	RiskBusiness,
}

// Rank returns the enum position of the category, or len(RiskCategories)
// for unknown values.
func (c RiskCategory) Rank() int {
	for i, rc := range RiskCategories {
		if rc == c {
			return i
		}
	}
	return len(RiskCategories)
}

// Valid reports whether c is a member of the closed category set.
func (c RiskCategory) Valid() bool {
	return c.Rank() < len(RiskCategories)
}

// RiskSeverity grades a risk factor.
type RiskSeverity string

const (
	SeverityHigh   RiskSeverity = "high"
	SeverityMedium RiskSeverity = "medium"
)

// Weight orders severities; higher is more severe.
func (s RiskSeverity) Weight() int {
	switch s {
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// RiskFactor is a single identified risk.
type RiskFactor struct {
	Category RiskCategory `yaml:"category" json:"category"`
	Severity RiskSeverity `yaml:"severity" json:"severity"`
	Keywords []string     `yaml:"keywords,omitempty" json:"keywords,omitempty"`
}

// Recommendation is the Resource Recommender's output.
type Recommendation struct {
	Skills   []string `yaml:"skills" json:"skills"`
	TeamSize int      `yaml:"team_size" json:"team_size"`
}

// ScoreBreakdown exposes the individual sub-scores that were summed and
// clamped into a complexity score.
type ScoreBreakdown struct {
	Keyword     float64 `yaml:"keyword" json:"keyword"`
	Dependency  float64 `yaml:"dependency" json:"dependency"`
	Scope       float64 `yaml:"scope" json:"scope"`
	Integration float64 `yaml:"integration" json:"integration"`
	Security    float64 `yaml:"security" json:"security"`
	Total       float64 `yaml:"total" json:"total"`
}

// AnalysisResult is derived on demand from a GoalRecord and never persisted
// by the engine.
type AnalysisResult struct {
	GoalID              string         `yaml:"goal_id,omitempty" json:"goal_id,omitempty"`
	ComplexityScore     float64        `yaml:"complexity_score" json:"complexity_score"`
	EstimatedDays       float64        `yaml:"estimated_days" json:"estimated_days"`
	RiskFactors         []RiskFactor   `yaml:"risk_factors" json:"risk_factors"`
	RecommendedSkills   []string       `yaml:"recommended_skills" json:"recommended_skills"`
	RecommendedTeamSize int            `yaml:"recommended_team_size" json:"recommended_team_size"`
	Breakdown           ScoreBreakdown `yaml:"breakdown" json:"breakdown"`
	Calibrated          bool           `yaml:"calibrated" json:"calibrated"`
}
