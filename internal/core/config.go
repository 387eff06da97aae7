// Package core contains the predictive analytics engine for gdd: complexity
// scoring, risk identification, duration estimation, resource recommendation,
// and the step tracking machinery that drives live progress output.
package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/valter-silva-au/gdd/pkg/models"
)

// ConfigFileName is the name of the YAML configuration file looked up in the
// base path.
const ConfigFileName = ".gddconfig"

// ConfigurationManager loads and validates engine configuration.
type ConfigurationManager interface {
	Load() (*models.Config, error)
	ValidateConfig(cfg *models.Config) error
}

// viperConfigManager implements ConfigurationManager using Viper for reading
// the YAML configuration file.
type viperConfigManager struct {
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager that reads
// .gddconfig from basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultConfig returns the built-in keyword tables and policy values.
func DefaultConfig() *models.Config {
	keywords := make(map[string]float64, len(defaultComplexityKeywords))
	for k, w := range defaultComplexityKeywords {
		keywords[k] = w
	}
	risk := make(map[models.RiskCategory][]string, len(defaultRiskKeywords))
	for c, kws := range defaultRiskKeywords {
		risk[c] = append([]string(nil), kws...)
	}
	return &models.Config{
		Scoring: models.ScoringConfig{
			Keywords:         keywords,
			KeywordCap:       4,
			DependencyWeight: 0.5,
			ObjectiveWeight:  0.3,
			ObjectiveCap:     3,
			RelatedWeight:    0.4,
			RelatedCap:       2,
			SecurityBonus:    1.5,
			SecurityTags:     append([]string(nil), defaultSecurityTags...),
		},
		Risk: models.RiskConfig{
			Keywords:            risk,
			PerformanceKeywords: append([]string(nil), defaultPerformanceKeywords...),
		},
		Estimator: models.EstimatorConfig{
			DaysPerPoint:         2,
			DependencyFactor:     0.2,
			BaselineTeamSize:     8,
			CalibrationWindow:    1.0,
			CalibrationMinSample: 3,
			CalibrationPrior:     5,
		},
		Retry: models.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    10 * time.Second,
		},
		Display: models.DisplayConfig{
			RefreshInterval: 100 * time.Millisecond,
		},
		History: models.HistoryConfig{
			Backend: models.HistoryBackendYAML,
			Path:    "history.yaml",
		},
		CacheSize: 128,
	}
}

// Load reads .gddconfig from the base path. Keys missing from the file keep
// their defaults; a missing file yields DefaultConfig.
func (cm *viperConfigManager) Load() (*models.Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	v.SetDefault("scoring.keyword_cap", cfg.Scoring.KeywordCap)
	v.SetDefault("scoring.dependency_weight", cfg.Scoring.DependencyWeight)
	v.SetDefault("scoring.objective_weight", cfg.Scoring.ObjectiveWeight)
	v.SetDefault("scoring.objective_cap", cfg.Scoring.ObjectiveCap)
	v.SetDefault("scoring.related_weight", cfg.Scoring.RelatedWeight)
	v.SetDefault("scoring.related_cap", cfg.Scoring.RelatedCap)
	v.SetDefault("scoring.security_bonus", cfg.Scoring.SecurityBonus)
	v.SetDefault("estimator.days_per_point", cfg.Estimator.DaysPerPoint)
	v.SetDefault("estimator.dependency_factor", cfg.Estimator.DependencyFactor)
	v.SetDefault("estimator.baseline_team_size", cfg.Estimator.BaselineTeamSize)
	v.SetDefault("estimator.calibration_window", cfg.Estimator.CalibrationWindow)
	v.SetDefault("estimator.calibration_min_samples", cfg.Estimator.CalibrationMinSample)
	v.SetDefault("estimator.calibration_prior_weight", cfg.Estimator.CalibrationPrior)
	v.SetDefault("retry.max_attempts", cfg.Retry.MaxAttempts)
	v.SetDefault("retry.base_delay", cfg.Retry.BaseDelay)
	v.SetDefault("retry.max_delay", cfg.Retry.MaxDelay)
	v.SetDefault("display.refresh_interval", cfg.Display.RefreshInterval)
	v.SetDefault("history.backend", string(cfg.History.Backend))
	v.SetDefault("history.path", cfg.History.Path)
	v.SetDefault("cache_size", cfg.CacheSize)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
	}

	cfg.Scoring.KeywordCap = v.GetFloat64("scoring.keyword_cap")
	cfg.Scoring.DependencyWeight = v.GetFloat64("scoring.dependency_weight")
	cfg.Scoring.ObjectiveWeight = v.GetFloat64("scoring.objective_weight")
	cfg.Scoring.ObjectiveCap = v.GetFloat64("scoring.objective_cap")
	cfg.Scoring.RelatedWeight = v.GetFloat64("scoring.related_weight")
	cfg.Scoring.RelatedCap = v.GetFloat64("scoring.related_cap")
	cfg.Scoring.SecurityBonus = v.GetFloat64("scoring.security_bonus")
	if v.IsSet("scoring.security_tags") {
		cfg.Scoring.SecurityTags = v.GetStringSlice("scoring.security_tags")
	}

	// Keyword tables replace the built-in ones per entry, so a config file
	// can tune one weight without restating the whole table.
	if raw := v.GetStringMap("scoring.keywords"); len(raw) > 0 {
		for k := range raw {
			cfg.Scoring.Keywords[strings.ToLower(k)] = v.GetFloat64("scoring.keywords." + k)
		}
	}
	if raw := v.GetStringMap("risk.keywords"); len(raw) > 0 {
		for k := range raw {
			cfg.Risk.Keywords[models.RiskCategory(strings.ToLower(k))] = v.GetStringSlice("risk.keywords." + k)
		}
	}
	if v.IsSet("risk.performance_keywords") {
		cfg.Risk.PerformanceKeywords = v.GetStringSlice("risk.performance_keywords")
	}

	cfg.Estimator.DaysPerPoint = v.GetFloat64("estimator.days_per_point")
	cfg.Estimator.DependencyFactor = v.GetFloat64("estimator.dependency_factor")
	cfg.Estimator.BaselineTeamSize = v.GetInt("estimator.baseline_team_size")
	cfg.Estimator.CalibrationWindow = v.GetFloat64("estimator.calibration_window")
	cfg.Estimator.CalibrationMinSample = v.GetInt("estimator.calibration_min_samples")
	cfg.Estimator.CalibrationPrior = v.GetFloat64("estimator.calibration_prior_weight")

	cfg.Retry.MaxAttempts = v.GetInt("retry.max_attempts")
	cfg.Retry.BaseDelay = v.GetDuration("retry.base_delay")
	cfg.Retry.MaxDelay = v.GetDuration("retry.max_delay")
	cfg.Display.RefreshInterval = v.GetDuration("display.refresh_interval")

	cfg.History.Backend = models.HistoryBackend(v.GetString("history.backend"))
	cfg.History.Path = v.GetString("history.path")
	cfg.CacheSize = v.GetInt("cache_size")

	return cfg, nil
}

// ValidateConfig checks cfg for invalid values and reports every problem in a
// single error.
func (cm *viperConfigManager) ValidateConfig(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	for k, w := range cfg.Scoring.Keywords {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("scoring.keywords.%s must be non-negative, got %g", k, w))
		}
	}
	nonNegative := []struct {
		key string
		val float64
	}{
		{"scoring.keyword_cap", cfg.Scoring.KeywordCap},
		{"scoring.dependency_weight", cfg.Scoring.DependencyWeight},
		{"scoring.objective_weight", cfg.Scoring.ObjectiveWeight},
		{"scoring.objective_cap", cfg.Scoring.ObjectiveCap},
		{"scoring.related_weight", cfg.Scoring.RelatedWeight},
		{"scoring.related_cap", cfg.Scoring.RelatedCap},
		{"scoring.security_bonus", cfg.Scoring.SecurityBonus},
		{"estimator.dependency_factor", cfg.Estimator.DependencyFactor},
		{"estimator.calibration_window", cfg.Estimator.CalibrationWindow},
		{"estimator.calibration_prior_weight", cfg.Estimator.CalibrationPrior},
	}
	for _, f := range nonNegative {
		if f.val < 0 {
			errs = append(errs, fmt.Sprintf("%s must be non-negative, got %g", f.key, f.val))
		}
	}

	for c := range cfg.Risk.Keywords {
		if !c.Valid() {
			errs = append(errs, fmt.Sprintf(
				"risk.keywords key %q is not a risk category, must be one of: security, technical, integration, compliance, business", c))
		}
	}

	if cfg.Estimator.DaysPerPoint <= 0 {
		errs = append(errs, fmt.Sprintf("estimator.days_per_point must be positive, got %g", cfg.Estimator.DaysPerPoint))
	}
	if cfg.Estimator.BaselineTeamSize < 1 {
		errs = append(errs, fmt.Sprintf("estimator.baseline_team_size must be at least 1, got %d", cfg.Estimator.BaselineTeamSize))
	}
	if cfg.Estimator.CalibrationMinSample < 1 {
		errs = append(errs, fmt.Sprintf("estimator.calibration_min_samples must be at least 1, got %d", cfg.Estimator.CalibrationMinSample))
	}

	if cfg.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Sprintf("retry.max_attempts must be at least 1, got %d", cfg.Retry.MaxAttempts))
	}
	if cfg.Retry.BaseDelay < 0 {
		errs = append(errs, fmt.Sprintf("retry.base_delay must be non-negative, got %s", cfg.Retry.BaseDelay))
	}
	if cfg.Retry.MaxDelay < cfg.Retry.BaseDelay {
		errs = append(errs, fmt.Sprintf("retry.max_delay %s must not be below retry.base_delay %s", cfg.Retry.MaxDelay, cfg.Retry.BaseDelay))
	}
	if cfg.Display.RefreshInterval <= 0 {
		errs = append(errs, fmt.Sprintf("display.refresh_interval must be positive, got %s", cfg.Display.RefreshInterval))
	}

	switch cfg.History.Backend {
	case models.HistoryBackendYAML, models.HistoryBackendSQLite:
	default:
		errs = append(errs, fmt.Sprintf("history.backend %q is invalid, must be one of: yaml, sqlite", cfg.History.Backend))
	}
	if cfg.History.Path == "" {
		errs = append(errs, "history.path must not be empty")
	}
	if cfg.CacheSize < 0 {
		errs = append(errs, fmt.Sprintf("cache_size must be non-negative, got %d", cfg.CacheSize))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
