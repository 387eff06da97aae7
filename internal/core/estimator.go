package core

import (
	"math"

	"github.com/valter-silva-au/gdd/pkg/models"
)

// Estimator converts a complexity score into an estimated duration in days.
type Estimator interface {
	Estimate(goal models.GoalRecord, score float64, teamSize int, deps map[string]models.DependencyStatus) float64
	Explain(goal models.GoalRecord, score float64, teamSize int, deps map[string]models.DependencyStatus) EstimateDetail
}

// EstimateDetail shows how an estimate was composed.
type EstimateDetail struct {
	Days             float64 `json:"days"`
	HeuristicBase    float64 `json:"heuristic_base"`
	Base             float64 `json:"base"`
	DependencyFactor float64 `json:"dependency_factor"`
	TeamFactor       float64 `json:"team_factor"`
	OpenDependencies int     `json:"open_dependencies"`
	Samples          int     `json:"samples"`
	Calibrated       bool    `json:"calibrated"`
}

type heuristicEstimator struct {
	cfg     models.EstimatorConfig
	history HistoryStore
}

// NewEstimator creates an Estimator. history may be nil, in which case the
// uncalibrated heuristic is always used.
func NewEstimator(cfg models.EstimatorConfig, history HistoryStore) Estimator {
	return &heuristicEstimator{cfg: cfg, history: history}
}

func (e *heuristicEstimator) Estimate(goal models.GoalRecord, score float64, teamSize int, deps map[string]models.DependencyStatus) float64 {
	return e.Explain(goal, score, teamSize, deps).Days
}

// Explain computes round(base × dependencyFactor × teamFactor). The result is
// non-decreasing in score and non-increasing in teamSize.
func (e *heuristicEstimator) Explain(goal models.GoalRecord, score float64, teamSize int, deps map[string]models.DependencyStatus) EstimateDetail {
	score = clamp(score, 0, MaxComplexityScore)

	d := EstimateDetail{HeuristicBase: score * e.cfg.DaysPerPoint}
	d.Base, d.Samples, d.Calibrated = e.calibratedBase(score)

	for _, dep := range distinct(goal.Dependencies) {
		if status, ok := deps[dep]; ok && status != models.DependencyCompleted {
			d.OpenDependencies++
		}
	}
	d.DependencyFactor = 1.0 + e.cfg.DependencyFactor*float64(d.OpenDependencies)

	baseline := e.cfg.BaselineTeamSize
	if baseline < 1 {
		baseline = 1
	}
	if teamSize < 1 {
		teamSize = 1
	}
	d.TeamFactor = math.Max(1.0, float64(baseline)/float64(teamSize))

	d.Days = math.Max(0, math.Round(d.Base*d.DependencyFactor*d.TeamFactor))
	return d
}

// calibratedBase blends the heuristic base with historical durations near
// score. A window holding fewer than CalibrationMinSample entries contributes
// the plain heuristic.
//
// The blend on its own is not monotonic: moving the score can drop a slow
// entry out of the window. The returned base is therefore the maximum of the
// blend over [0, score]. Between changes of the window's contents the blend is
// non-decreasing, so the maximum is attained at score itself, at the last
// point an entry is still inside the window, or at the last point before an
// entry enters it.
func (e *heuristicEstimator) calibratedBase(score float64) (base float64, samples int, calibrated bool) {
	heuristic := score * e.cfg.DaysPerPoint
	if e.history == nil {
		return heuristic, 0, false
	}
	w := e.cfg.CalibrationWindow
	entries, err := e.history.Query(models.ScoreRange{Min: 0, Max: score + w})
	if err != nil || len(entries) == 0 {
		// History is optional; an unavailable store means no calibration.
		return heuristic, 0, false
	}

	base, samples, calibrated = e.blendAt(entries, score)
	for _, en := range entries {
		for _, t := range []float64{lastInside(en.ComplexityScore, w), lastBefore(en.ComplexityScore, w)} {
			if t < 0 || t > score {
				continue
			}
			if v, _, c := e.blendAt(entries, t); v > base {
				base, calibrated = v, c
			}
		}
	}
	return base, samples, calibrated
}

// blendAt evaluates the calibrated base at score t over the entries inside
// the window [t-w, t+w].
func (e *heuristicEstimator) blendAt(entries []models.HistoricalEntry, t float64) (float64, int, bool) {
	w := e.cfg.CalibrationWindow
	lo, hi := t-w, t+w
	var sum float64
	n := 0
	for _, en := range entries {
		// The YAML file can be edited by hand; Validate is not a guarantee.
		if math.IsNaN(en.ActualDurationDays) || math.IsInf(en.ActualDurationDays, 0) || en.ActualDurationDays < 0 {
			continue
		}
		if en.ComplexityScore < lo || en.ComplexityScore > hi {
			continue
		}
		sum += en.ActualDurationDays
		n++
	}
	heuristic := t * e.cfg.DaysPerPoint
	if n == 0 || n < e.cfg.CalibrationMinSample {
		return heuristic, n, false
	}
	weight := float64(n) / (float64(n) + e.cfg.CalibrationPrior)
	return (1-weight)*heuristic + weight*(sum/float64(n)), n, true
}

// lastInside returns the largest t whose window still contains s, or -1 when
// the inputs are unusable. The edge is found with the same comparison blendAt
// uses, so rounding cannot put them out of step.
func lastInside(s, w float64) float64 {
	if !usableWindow(s, w) {
		return -1
	}
	return lastTrue(s, 2*(s+w)+1, func(t float64) bool { return t-w <= s })
}

// lastBefore returns the largest non-negative t whose window does not yet
// reach s, or -1 when there is none.
func lastBefore(s, w float64) float64 {
	if !usableWindow(s, w) || w >= s {
		return -1
	}
	return lastTrue(0, s, func(t float64) bool { return t+w < s })
}

func usableWindow(s, w float64) bool {
	return s >= 0 && w >= 0 && !math.IsInf(s, 0) && !math.IsInf(w, 0)
}

// lastTrue bisects the non-negative floats in [lo, hi] for the largest value
// satisfying pred, given pred(lo) holds, pred(hi) does not and pred is
// monotone. Non-negative floats order the same as their bit patterns.
func lastTrue(lo, hi float64, pred func(float64) bool) float64 {
	a, b := math.Float64bits(lo), math.Float64bits(hi)
	for b-a > 1 {
		mid := a + (b-a)/2
		if pred(math.Float64frombits(mid)) {
			a = mid
		} else {
			b = mid
		}
	}
	return math.Float64frombits(a)
}
