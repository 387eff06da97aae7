package core

import (
	"math"

	"github.com/valter-silva-au/gdd/pkg/models"
)

// MaxComplexityScore is the upper bound of every complexity score.
const MaxComplexityScore = models.MaxComplexityScore

// ComplexityScorer derives a 0-10 complexity score from a goal.
type ComplexityScorer interface {
	Score(goal models.GoalRecord) float64
	Breakdown(goal models.GoalRecord) models.ScoreBreakdown
}

type heuristicScorer struct {
	cfg          models.ScoringConfig
	securityTags map[string]struct{}
}

// NewComplexityScorer creates a ComplexityScorer that sums keyword,
// dependency, scope, integration and security sub-scores.
func NewComplexityScorer(cfg models.ScoringConfig) ComplexityScorer {
	return &heuristicScorer{
		cfg:          cfg,
		securityTags: stringSet(cfg.SecurityTags),
	}
}

// Score returns the clamped total of Breakdown. It is pure: the same goal
// always yields the same score.
func (s *heuristicScorer) Score(goal models.GoalRecord) float64 {
	return s.Breakdown(goal).Total
}

func (s *heuristicScorer) Breakdown(goal models.GoalRecord) models.ScoreBreakdown {
	b := models.ScoreBreakdown{
		Keyword:     s.keywordScore(goal.Description),
		Dependency:  s.cfg.DependencyWeight * float64(len(distinct(goal.Dependencies))),
		Scope:       math.Min(float64(len(goal.Objectives))*s.cfg.ObjectiveWeight, s.cfg.ObjectiveCap),
		Integration: math.Min(float64(len(distinct(goal.RelatedGoals)))*s.cfg.RelatedWeight, s.cfg.RelatedCap),
		Security:    s.securityScore(goal.Tags),
	}
	b.Total = clamp(b.Keyword+b.Dependency+b.Scope+b.Integration+b.Security, 0, MaxComplexityScore)
	return b
}

func (s *heuristicScorer) keywordScore(description string) float64 {
	var sum float64
	for _, tok := range Tokenize(description) {
		if w, ok := s.cfg.Keywords[tok]; ok {
			sum += w
		}
	}
	return math.Min(sum, s.cfg.KeywordCap)
}

func (s *heuristicScorer) securityScore(tags []string) float64 {
	for _, tok := range tagTokens(tags) {
		if _, ok := s.securityTags[tok]; ok {
			return s.cfg.SecurityBonus
		}
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(v, hi))
}
