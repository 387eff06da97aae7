package models

import "time"

// ScoringConfig holds the complexity scorer's keyword table and sub-score weights.
type ScoringConfig struct {
	Keywords         map[string]float64 `yaml:"keywords" mapstructure:"keywords"`
	KeywordCap       float64            `yaml:"keyword_cap" mapstructure:"keyword_cap"`
	DependencyWeight float64            `yaml:"dependency_weight" mapstructure:"dependency_weight"`
	ObjectiveWeight  float64            `yaml:"objective_weight" mapstructure:"objective_weight"`
	ObjectiveCap     float64            `yaml:"objective_cap" mapstructure:"objective_cap"`
	RelatedWeight    float64            `yaml:"related_weight" mapstructure:"related_weight"`
	RelatedCap       float64            `yaml:"related_cap" mapstructure:"related_cap"`
	SecurityBonus    float64            `yaml:"security_bonus" mapstructure:"security_bonus"`
	SecurityTags     []string           `yaml:"security_tags" mapstructure:"security_tags"`
}

// RiskConfig holds per-category keyword tables for the risk identifier.
type RiskConfig struct {
	Keywords            map[RiskCategory][]string `yaml:"keywords" mapstructure:"keywords"`
	PerformanceKeywords []string                  `yaml:"performance_keywords" mapstructure:"performance_keywords"`
}

// EstimatorConfig holds the duration heuristic and calibration parameters.
type EstimatorConfig struct {
	DaysPerPoint         float64 `yaml:"days_per_point" mapstructure:"days_per_point"`
	DependencyFactor     float64 `yaml:"dependency_factor" mapstructure:"dependency_factor"`
	BaselineTeamSize     int     `yaml:"baseline_team_size" mapstructure:"baseline_team_size"`
	CalibrationWindow    float64 `yaml:"calibration_window" mapstructure:"calibration_window"`
	CalibrationMinSample int     `yaml:"calibration_min_samples" mapstructure:"calibration_min_samples"`
	CalibrationPrior     float64 `yaml:"calibration_prior_weight" mapstructure:"calibration_prior_weight"`
}

// RetryConfig holds the error handler's bounded exponential backoff policy.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
}

// DisplayConfig holds progress display settings.
type DisplayConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval"`
}

// HistoryBackend selects the Historical Store implementation.
type HistoryBackend string

const (
	HistoryBackendYAML   HistoryBackend = "yaml"
	HistoryBackendSQLite HistoryBackend = "sqlite"
)

// HistoryConfig selects and locates the Historical Store.
type HistoryConfig struct {
	Backend HistoryBackend `yaml:"backend" mapstructure:"backend"`
	Path    string         `yaml:"path" mapstructure:"path"`
}

// Config holds every setting read from .gddconfig via Viper.
type Config struct {
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	Risk      RiskConfig      `yaml:"risk" mapstructure:"risk"`
	Estimator EstimatorConfig `yaml:"estimator" mapstructure:"estimator"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Display   DisplayConfig   `yaml:"display" mapstructure:"display"`
	History   HistoryConfig   `yaml:"history" mapstructure:"history"`
	CacheSize int             `yaml:"cache_size" mapstructure:"cache_size"`
}
