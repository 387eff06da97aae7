package core

import (
	"sort"
	"strings"

	"github.com/valter-silva-au/gdd/pkg/models"
)

// RiskIdentifier scans a goal for risk-category keywords.
type RiskIdentifier interface {
	Identify(goal models.GoalRecord) []models.RiskFactor
}

type keywordRiskIdentifier struct {
	tables map[models.RiskCategory]map[string]struct{}
}

// NewRiskIdentifier creates a RiskIdentifier from per-category keyword tables.
// Categories outside the closed enum are ignored.
func NewRiskIdentifier(cfg models.RiskConfig) RiskIdentifier {
	tables := make(map[models.RiskCategory]map[string]struct{}, len(models.RiskCategories))
	for _, c := range models.RiskCategories {
		tables[c] = stringSet(cfg.Keywords[c])
	}
	return &keywordRiskIdentifier{tables: tables}
}

// Identify returns at most one factor per category. Two or more distinct
// keyword hits make a category high, exactly one makes it medium. Output is
// ordered high before medium, then by category enum order.
func (ri *keywordRiskIdentifier) Identify(goal models.GoalRecord) []models.RiskFactor {
	tokens := append(Tokenize(goal.Description), tagTokens(goal.Tags)...)

	var factors []models.RiskFactor
	for _, c := range models.RiskCategories {
		table := ri.tables[c]
		hits := make(map[string]struct{})
		for _, tok := range tokens {
			if _, ok := table[tok]; ok {
				hits[tok] = struct{}{}
			}
		}
		if len(hits) == 0 {
			continue
		}
		severity := models.SeverityMedium
		if len(hits) >= 2 {
			severity = models.SeverityHigh
		}
		keywords := make([]string, 0, len(hits))
		for k := range hits {
			keywords = append(keywords, k)
		}
		sort.Strings(keywords)
		factors = append(factors, models.RiskFactor{Category: c, Severity: severity, Keywords: keywords})
	}

	SortRiskFactors(factors)
	return factors
}

// SortRiskFactors orders factors by descending severity, then by category
// enum order, then by category name.
func SortRiskFactors(factors []models.RiskFactor) {
	sort.SliceStable(factors, func(i, j int) bool {
		a, b := factors[i], factors[j]
		if a.Severity.Weight() != b.Severity.Weight() {
			return a.Severity.Weight() > b.Severity.Weight()
		}
		if a.Category.Rank() != b.Category.Rank() {
			return a.Category.Rank() < b.Category.Rank()
		}
		return strings.Compare(string(a.Category), string(b.Category)) < 0
	})
}
