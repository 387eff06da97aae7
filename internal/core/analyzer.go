package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/valter-silva-au/gdd/pkg/models"
)

// AnalyzeOptions carries caller-supplied context for one analysis.
type AnalyzeOptions struct {
	// TeamSize is the team that will do the work. Zero or negative means
	// "use the recommended team size".
	TeamSize           int
	DependencyStatuses map[string]models.DependencyStatus
}

// Analyzer runs a goal through the scorer, risk identifier, recommender and
// estimator to produce an AnalysisResult.
type Analyzer interface {
	Analyze(goal models.GoalRecord, opts AnalyzeOptions) models.AnalysisResult
	Explain(goal models.GoalRecord, opts AnalyzeOptions) (models.AnalysisResult, EstimateDetail)
	RecordOutcome(entry models.HistoricalEntry) error
}

type engine struct {
	scorer      ComplexityScorer
	risks       RiskIdentifier
	estimator   Estimator
	recommender ResourceRecommender
	history     HistoryStore
	cache       *lru.Cache[string, cachedAnalysis]
}

type cachedAnalysis struct {
	result models.AnalysisResult
	detail EstimateDetail
}

// NewAnalyzer wires the engine components from cfg. history may be nil.
// Results are memoized in an LRU of cfg.CacheSize entries; zero disables it.
func NewAnalyzer(cfg *models.Config, history HistoryStore) (Analyzer, error) {
	e := &engine{
		scorer:      NewComplexityScorer(cfg.Scoring),
		risks:       NewRiskIdentifier(cfg.Risk),
		estimator:   NewEstimator(cfg.Estimator, history),
		recommender: NewResourceRecommender(cfg.Risk.PerformanceKeywords),
		history:     history,
	}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, cachedAnalysis](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating analysis cache: %w", err)
		}
		e.cache = cache
	}
	return e, nil
}

func (e *engine) Analyze(goal models.GoalRecord, opts AnalyzeOptions) models.AnalysisResult {
	res, _ := e.Explain(goal, opts)
	return res
}

func (e *engine) Explain(goal models.GoalRecord, opts AnalyzeOptions) (models.AnalysisResult, EstimateDetail) {
	key := fingerprint(goal, opts)
	if e.cache != nil {
		if c, ok := e.cache.Get(key); ok {
			return cloneResult(c.result), c.detail
		}
	}

	breakdown := e.scorer.Breakdown(goal)
	score := breakdown.Total
	risks := e.risks.Identify(goal)
	rec := e.recommender.Recommend(score, risks, goal.Tags)

	team := opts.TeamSize
	if team <= 0 {
		team = rec.TeamSize
	}
	detail := e.estimator.Explain(goal, score, team, opts.DependencyStatuses)

	res := models.AnalysisResult{
		GoalID:              goal.ID,
		ComplexityScore:     score,
		EstimatedDays:       detail.Days,
		RiskFactors:         risks,
		RecommendedSkills:   rec.Skills,
		RecommendedTeamSize: rec.TeamSize,
		Breakdown:           breakdown,
		Calibrated:          detail.Calibrated,
	}
	if res.RiskFactors == nil {
		res.RiskFactors = []models.RiskFactor{}
	}
	if e.cache != nil {
		e.cache.Add(key, cachedAnalysis{result: cloneResult(res), detail: detail})
	}
	return res, detail
}

// RecordOutcome appends a completed goal's outcome to the history store and
// drops memoized results, which may have been calibrated without it.
func (e *engine) RecordOutcome(entry models.HistoricalEntry) error {
	if e.history == nil {
		return fmt.Errorf("recording outcome: no history store configured")
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	if err := e.history.Append(entry); err != nil {
		return fmt.Errorf("recording outcome for %s: %w", entry.GoalID, err)
	}
	if e.cache != nil {
		e.cache.Purge()
	}
	return nil
}

// fingerprint hashes every input that influences an analysis.
func fingerprint(goal models.GoalRecord, opts AnalyzeOptions) string {
	h := sha256.New()
	write := func(parts ...string) {
		for _, p := range parts {
			h.Write([]byte(p))
			h.Write([]byte{0})
		}
		h.Write([]byte{1})
	}
	write(goal.ID, goal.Description)
	write(goal.Objectives...)
	write(goal.Dependencies...)
	write(goal.RelatedGoals...)
	write(goal.Tags...)
	write(fmt.Sprint(opts.TeamSize))

	deps := make([]string, 0, len(opts.DependencyStatuses))
	for id, st := range opts.DependencyStatuses {
		deps = append(deps, id+"="+string(st))
	}
	sort.Strings(deps)
	write(strings.Join(deps, ","))
	return hex.EncodeToString(h.Sum(nil))
}

func cloneResult(r models.AnalysisResult) models.AnalysisResult {
	out := r
	out.RiskFactors = make([]models.RiskFactor, len(r.RiskFactors))
	for i, rf := range r.RiskFactors {
		rf.Keywords = append([]string(nil), rf.Keywords...)
		out.RiskFactors[i] = rf
	}
	out.RecommendedSkills = append([]string{}, r.RecommendedSkills...)
	return out
}
