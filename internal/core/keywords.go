package core

import (
	"strings"
	"unicode"

	"github.com/valter-silva-au/gdd/pkg/models"
)

// defaultComplexityKeywords maps description tokens to the weight they add to
// the keyword sub-score.
var defaultComplexityKeywords = map[string]float64{
	"authentication": 1.5,
	"authorization":  1.5,
	"oauth":          1.5,
	"oauth2":         1.5,
	"sso":            1.0,
	"encryption":     1.5,
	"migration":      1.5,
	"real-time":      1.5,
	"realtime":       1.5,
	"distributed":    2.0,
	"concurrency":    1.5,
	"scalability":    1.0,
	"integration":    1.0,
	"third-party":    1.0,
	"microservices":  1.5,
	"streaming":      1.0,
	"machine":        0.5,
	"learning":       0.5,
	"payment":        1.0,
	"legacy":         1.0,
	"refactor":       0.5,
	"database":       0.5,
	"performance":    1.0,
	"compliance":     1.0,
}

// defaultSecurityTags trigger the security sub-score when present as a tag.
var defaultSecurityTags = []string{
	"security",
	"auth",
	"authentication",
	"encryption",
	"privacy",
	"pii",
	"compliance",
	"gdpr",
}

// defaultRiskKeywords is the per-category keyword table for risk detection.
var defaultRiskKeywords = map[models.RiskCategory][]string{
	models.RiskSecurity: {
		"security", "authentication", "authorization", "auth", "oauth", "oauth2",
		"sso", "encryption", "password", "credentials", "token", "vulnerability",
		"secret", "secrets", "xss", "csrf",
	},
	models.RiskTechnical: {
		"migration", "distributed", "real-time", "realtime", "legacy",
		"scalability", "performance", "concurrency", "refactor", "latency",
		"caching", "microservices",
	},
	models.RiskIntegration: {
		"integration", "api", "webhook", "webhooks", "external", "connector",
		"interoperability", "federation",
	},
	models.RiskCompliance: {
		"compliance", "gdpr", "hipaa", "sox", "pci", "audit", "regulatory",
		"privacy", "pii", "retention",
	},
	models.RiskBusiness: {
		"revenue", "customer", "customers", "deadline", "stakeholder",
		"stakeholders", "vendor", "third-party", "contract", "launch", "pricing",
	},
}

// defaultPerformanceKeywords trigger the Performance Engineer recommendation.
var defaultPerformanceKeywords = []string{
	"performance", "latency", "throughput", "scalability", "optimization",
}

// Tokenize lowercases text and splits it into word tokens. Letters, digits and
// hyphens are word characters; hyphens at either end of a token are dropped,
// so "real-time" stays one token while "--fast" becomes "fast".
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// tagTokens returns each tag lowercased as a whole plus its individual
// tokens, so "security-review" matches both "security-review" and "security".
func tagTokens(tags []string) []string {
	var out []string
	for _, tag := range tags {
		whole := strings.ToLower(strings.TrimSpace(tag))
		if whole == "" {
			continue
		}
		out = append(out, whole)
		parts := strings.FieldsFunc(whole, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(parts) == 1 && parts[0] == whole {
			continue
		}
		out = append(out, parts...)
	}
	return out
}

func stringSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = struct{}{}
	}
	return set
}

// distinct returns values with repeats removed, keeping first-seen order.
// Goal ids are compared exactly.
func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
