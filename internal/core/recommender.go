package core

import (
	"math"

	"github.com/valter-silva-au/gdd/pkg/models"
)

// Role names emitted by the Resource Recommender.
const (
	RoleSeniorDeveloper     = "Senior Developer"
	RoleSecuritySpecialist  = "Security Specialist"
	RoleIntegrationExpert   = "Integration Expert"
	RolePerformanceEngineer = "Performance Engineer"
	RoleComplianceOfficer   = "Compliance Officer"
)

// MinTeamSize is the smallest team ever recommended.
const MinTeamSize = 2

// seniorThreshold is the score above which a senior developer is recommended.
const seniorThreshold = 7.0

// ResourceRecommender maps a score and risk set to skills and a team size.
type ResourceRecommender interface {
	Recommend(score float64, risks []models.RiskFactor, tags []string) models.Recommendation
}

type ruleRecommender struct {
	performance map[string]struct{}
}

// NewResourceRecommender creates a ResourceRecommender. performanceKeywords
// are matched against risk keywords and goal tags.
func NewResourceRecommender(performanceKeywords []string) ResourceRecommender {
	return &ruleRecommender{performance: stringSet(performanceKeywords)}
}

// Recommend applies the additive skill rules in a fixed order; a skill is
// never listed twice. Team size is ceil(score/2)+1, at least MinTeamSize.
func (r *ruleRecommender) Recommend(score float64, risks []models.RiskFactor, tags []string) models.Recommendation {
	present := make(map[models.RiskCategory]bool, len(risks))
	performance := false
	for _, rf := range risks {
		present[rf.Category] = true
		for _, kw := range rf.Keywords {
			if _, ok := r.performance[kw]; ok {
				performance = true
			}
		}
	}
	for _, tok := range tagTokens(tags) {
		if _, ok := r.performance[tok]; ok {
			performance = true
		}
	}

	skills := []string{}
	add := func(cond bool, skill string) {
		if !cond {
			return
		}
		for _, s := range skills {
			if s == skill {
				return
			}
		}
		skills = append(skills, skill)
	}
	add(score > seniorThreshold, RoleSeniorDeveloper)
	add(present[models.RiskSecurity], RoleSecuritySpecialist)
	add(present[models.RiskIntegration], RoleIntegrationExpert)
	add(performance, RolePerformanceEngineer)
	add(present[models.RiskCompliance], RoleComplianceOfficer)

	return models.Recommendation{Skills: skills, TeamSize: RecommendedTeamSize(score)}
}

// RecommendedTeamSize is ceil(score/2)+1, at least MinTeamSize.
func RecommendedTeamSize(score float64) int {
	team := int(math.Ceil(score/2)) + 1
	if team < MinTeamSize {
		team = MinTeamSize
	}
	return team
}
