package core

import (
	"fmt"
	"strings"
	"testing"

	"github.com/valter-silva-au/gdd/pkg/models"
	"pgregory.net/rapid"
)

// =============================================================================
// Generators
// =============================================================================

var vocabulary = []string{
	"implement", "oauth2", "authentication", "sso", "integration", "third-party",
	"distributed", "real-time", "migration", "legacy", "api", "gdpr", "pii",
	"latency", "customer", "deadline", "database", "refactor", "the", "a",
	"dashboard", "payment", "encryption", "webhook", "audit",
}

func genGoal(t *rapid.T) models.GoalRecord {
	words := rapid.SliceOfN(rapid.SampledFrom(vocabulary), 0, 15).Draw(t, "words")
	ids := rapid.StringMatching(`G-[0-9]{1,3}`)
	return models.GoalRecord{
		ID:           ids.Draw(t, "id"),
		Description:  strings.Join(words, " "),
		Objectives:   rapid.SliceOfN(rapid.StringMatching(`[a-z]{3,8}`), 0, 12).Draw(t, "objectives"),
		Dependencies: rapid.SliceOfN(ids, 0, 8).Draw(t, "deps"),
		RelatedGoals: rapid.SliceOfN(ids, 0, 8).Draw(t, "related"),
		Tags:         rapid.SliceOfN(rapid.SampledFrom(vocabulary), 0, 4).Draw(t, "tags"),
	}
}

func genHistory(t *rapid.T) []models.HistoricalEntry {
	n := rapid.IntRange(0, 25).Draw(t, "historyLen")
	out := make([]models.HistoricalEntry, n)
	for i := range out {
		out[i] = models.HistoricalEntry{
			GoalID:             fmt.Sprintf("H-%d", i),
			ComplexityScore:    float64(rapid.IntRange(0, 100).Draw(t, fmt.Sprintf("hScore_%d", i))) / 10,
			ActualDurationDays: float64(rapid.IntRange(0, 120).Draw(t, fmt.Sprintf("hDays_%d", i))),
			TeamSize:           rapid.IntRange(1, 10).Draw(t, fmt.Sprintf("hTeam_%d", i)),
		}
	}
	return out
}

// =============================================================================
// Property 1: Complexity Score Is Bounded And Deterministic
// =============================================================================

// For any goal, the complexity score lies in [0, 10] and scoring the same
// goal twice gives the same result.
func TestProperty1_ScoreBoundedAndDeterministic(t *testing.T) {
	scorer := NewComplexityScorer(DefaultConfig().Scoring)
	rapid.Check(t, func(rt *rapid.T) {
		goal := genGoal(rt)
		s := scorer.Score(goal)
		if s < 0 || s > MaxComplexityScore {
			rt.Fatalf("score %g outside [0, %g]", s, MaxComplexityScore)
		}
		if again := scorer.Score(goal); again != s {
			rt.Fatalf("score not deterministic: %g then %g", s, again)
		}
	})
}

// =============================================================================
// Property 2: Estimate Is Monotonic In Score
// =============================================================================

// For any history, team size and pair of scores s1 <= s2, the estimate for
// s1 never exceeds the estimate for s2.
func TestProperty2_EstimateMonotonicInScore(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cfg := DefaultConfig().Estimator
		cfg.CalibrationMinSample = rapid.IntRange(1, 4).Draw(rt, "minSamples")
		est := NewEstimator(cfg, NewMemoryHistoryStore(genHistory(rt)...))

		a := float64(rapid.IntRange(0, 100).Draw(rt, "a")) / 10
		b := float64(rapid.IntRange(0, 100).Draw(rt, "b")) / 10
		if a > b {
			a, b = b, a
		}
		team := rapid.IntRange(1, 12).Draw(rt, "team")
		goal := models.GoalRecord{}

		ea := est.Explain(goal, a, team, nil)
		eb := est.Explain(goal, b, team, nil)
		if ea.Base > eb.Base+1e-9 {
			rt.Fatalf("base(%g)=%g > base(%g)=%g", a, ea.Base, b, eb.Base)
		}
		if ea.Days > eb.Days {
			rt.Fatalf("estimate(%g)=%g > estimate(%g)=%g", a, ea.Days, b, eb.Days)
		}
	})
}

// =============================================================================
// Property 3: Estimate Is Non-Increasing In Team Size
// =============================================================================

// For any score and team sizes t1 <= t2, a larger team never gets a longer
// estimate, and estimates are never negative.
func TestProperty3_EstimateNonIncreasingInTeamSize(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		est := NewEstimator(DefaultConfig().Estimator, NewMemoryHistoryStore(genHistory(rt)...))
		score := float64(rapid.IntRange(0, 100).Draw(rt, "score")) / 10
		t1 := rapid.IntRange(0, 20).Draw(rt, "t1")
		t2 := rapid.IntRange(t1, 25).Draw(rt, "t2")

		d1 := est.Estimate(models.GoalRecord{}, score, t1, nil)
		d2 := est.Estimate(models.GoalRecord{}, score, t2, nil)
		if d2 > d1 {
			rt.Fatalf("team %d -> %g days, team %d -> %g days", t1, d1, t2, d2)
		}
		if d1 < 0 || d2 < 0 {
			rt.Fatalf("negative estimate")
		}
	})
}

// =============================================================================
// Property 4: Risk Factors Are Unique And Ordered
// =============================================================================

// For any goal, identified risks have no duplicate categories, only known
// categories appear, and every high factor precedes every medium factor.
func TestProperty4_RiskFactorsUniqueAndOrdered(t *testing.T) {
	ri := NewRiskIdentifier(DefaultConfig().Risk)
	rapid.Check(t, func(rt *rapid.T) {
		risks := ri.Identify(genGoal(rt))
		seen := map[models.RiskCategory]bool{}
		seenMedium := false
		for _, rf := range risks {
			if !rf.Category.Valid() {
				rt.Fatalf("unknown category %q", rf.Category)
			}
			if seen[rf.Category] {
				rt.Fatalf("duplicate category %q", rf.Category)
			}
			seen[rf.Category] = true
			switch rf.Severity {
			case models.SeverityMedium:
				seenMedium = true
			case models.SeverityHigh:
				if seenMedium {
					rt.Fatalf("high factor after medium: %+v", risks)
				}
			default:
				rt.Fatalf("unexpected severity %q", rf.Severity)
			}
			if len(rf.Keywords) == 0 {
				rt.Fatalf("factor without keywords: %+v", rf)
			}
		}
	})
}

// =============================================================================
// Property 5: Recommendation Bounds
// =============================================================================

// For any score in [0, 10] and risk set, the team is at least MinTeamSize,
// grows with score, and no skill is listed twice.
func TestProperty5_RecommendationBounds(t *testing.T) {
	cfg := DefaultConfig()
	rec := NewResourceRecommender(cfg.Risk.PerformanceKeywords)
	ri := NewRiskIdentifier(cfg.Risk)
	rapid.Check(t, func(rt *rapid.T) {
		goal := genGoal(rt)
		a := float64(rapid.IntRange(0, 100).Draw(rt, "a")) / 10
		b := float64(rapid.IntRange(0, 100).Draw(rt, "b")) / 10
		if a > b {
			a, b = b, a
		}
		risks := ri.Identify(goal)
		ra := rec.Recommend(a, risks, goal.Tags)
		rb := rec.Recommend(b, risks, goal.Tags)

		if ra.TeamSize < MinTeamSize || ra.TeamSize > rb.TeamSize {
			rt.Fatalf("team(%g)=%d team(%g)=%d", a, ra.TeamSize, b, rb.TeamSize)
		}
		seen := map[string]bool{}
		for _, s := range rb.Skills {
			if seen[s] {
				rt.Fatalf("duplicate skill %q", s)
			}
			seen[s] = true
		}
	})
}
