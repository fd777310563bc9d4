package tokenguard

import (
	"errors"
	"slices"
	"time"

	"github.com/MrEthical07/tokenguard/internal/anomaly"
	"github.com/MrEthical07/tokenguard/token"
	"github.com/sirupsen/logrus"
)

// Config defines the manager settings.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable.
type Config struct {
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	Algorithm          token.Algorithm
	Issuer             string
	Audience           string
	EnableRotation     bool
	MaxRefreshAttempts int
	// DefaultScope is granted to access tokens when the request names none.
	DefaultScope []string

	Anomaly    AnomalyConfig
	Cleanup    CleanupConfig
	Revocation RevocationConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
	Logging    LoggingConfig
}

/*
====================================
ANOMALY CONFIG
====================================
*/

// AnomalyConfig tunes the refresh security gate. The attempt limit itself is
// Config.MaxRefreshAttempts.
type AnomalyConfig struct {
	Window                 time.Duration
	MinSamples             int
	MinMeanInterval        time.Duration
	MaxIntervalVarianceMs2 float64
	RapidIPWindow          time.Duration
	AttemptsPerSubject     int
	IncidentsPerSubject    int
	AttemptRetention       time.Duration
	IncidentRetention      time.Duration
}

/*
====================================
CLEANUP CONFIG
====================================
*/

// CleanupConfig controls the background sweeper. Interval 0 disables it;
// Manager.Sweep still works on demand.
type CleanupConfig struct {
	Interval time.Duration
}

/*
====================================
REVOCATION CONFIG
====================================
*/

// RevocationConfig configures the Redis registry used when the builder is
// given a Redis client.
type RevocationConfig struct {
	RedisPrefix string
}

/*
====================================
AUDIT / METRICS / LOGGING
====================================
*/

// AuditConfig controls the async audit dispatcher. DrainTimeout bounds how
// long Close waits for queued events; 0 waits until they are delivered.
type AuditConfig struct {
	Enabled      bool
	BufferSize   int
	DropIfFull   bool
	DrainTimeout time.Duration
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// LoggingConfig sets the level of the default logger. It is ignored when the
// builder is given a logger.
type LoggingConfig struct {
	Level logrus.Level
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	th := anomaly.DefaultThresholds()
	return Config{
		AccessTTL:          15 * time.Minute,
		RefreshTTL:         7 * 24 * time.Hour,
		Algorithm:          token.AlgHS256,
		Issuer:             "tokenguard",
		Audience:           "tokenguard-clients",
		EnableRotation:     true,
		MaxRefreshAttempts: th.MaxAttempts,
		DefaultScope:       []string{"read", "write"},
		Anomaly: AnomalyConfig{
			Window:                 th.Window,
			MinSamples:             th.MinSamples,
			MinMeanInterval:        th.MinMeanInterval,
			MaxIntervalVarianceMs2: th.MaxVarianceMs2,
			RapidIPWindow:          th.RapidIPWindow,
			AttemptsPerSubject:     th.AttemptsRetained,
			IncidentsPerSubject:    th.IncidentsRetained,
			AttemptRetention:       th.AttemptRetention,
			IncidentRetention:      th.IncidentRetention,
		},
		Cleanup: CleanupConfig{
			Interval: 15 * time.Minute,
		},
		Revocation: RevocationConfig{
			RedisPrefix: "tg:rv:",
		},
		Audit: AuditConfig{
			Enabled:      false,
			BufferSize:   1024,
			DropIfFull:   true,
			DrainTimeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Logging: LoggingConfig{
			Level: logrus.InfoLevel,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.DefaultScope = slices.Clone(cfg.DefaultScope)
	return out
}

func (c Config) thresholds() anomaly.Thresholds {
	return anomaly.Thresholds{
		Window:            c.Anomaly.Window,
		MaxAttempts:       c.MaxRefreshAttempts,
		MinSamples:        c.Anomaly.MinSamples,
		MinMeanInterval:   c.Anomaly.MinMeanInterval,
		MaxVarianceMs2:    c.Anomaly.MaxIntervalVarianceMs2,
		RapidIPWindow:     c.Anomaly.RapidIPWindow,
		AttemptsRetained:  c.Anomaly.AttemptsPerSubject,
		IncidentsRetained: c.Anomaly.IncidentsPerSubject,
		AttemptRetention:  c.Anomaly.AttemptRetention,
		IncidentRetention: c.Anomaly.IncidentRetention,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.AccessTTL <= 0 {
		return errors.New("AccessTTL must be > 0")
	}
	if c.RefreshTTL <= 0 {
		return errors.New("RefreshTTL must be > 0")
	}
	if c.RefreshTTL < c.AccessTTL {
		return errors.New("RefreshTTL must be >= AccessTTL")
	}
	if !c.Algorithm.Valid() {
		return errors.New("unsupported signing algorithm")
	}
	if c.Issuer == "" {
		return errors.New("Issuer must be set")
	}
	if c.Audience == "" {
		return errors.New("Audience must be set")
	}
	if c.MaxRefreshAttempts <= 0 {
		return errors.New("MaxRefreshAttempts must be > 0")
	}
	if len(token.WithoutScope(c.DefaultScope, token.ScopeRefresh)) == 0 {
		return errors.New("DefaultScope must name at least one access scope")
	}

	// Anomaly
	if c.Anomaly.Window <= 0 {
		return errors.New("Anomaly Window must be > 0")
	}
	if c.Anomaly.MinSamples < 2 {
		return errors.New("Anomaly MinSamples must be >= 2")
	}
	if c.Anomaly.MinMeanInterval <= 0 || c.Anomaly.MaxIntervalVarianceMs2 <= 0 {
		return errors.New("Anomaly cadence thresholds must be > 0")
	}
	if c.Anomaly.RapidIPWindow <= 0 {
		return errors.New("Anomaly RapidIPWindow must be > 0")
	}
	if c.Anomaly.AttemptsPerSubject < c.MaxRefreshAttempts {
		return errors.New("Anomaly AttemptsPerSubject must be >= MaxRefreshAttempts")
	}
	if c.Anomaly.IncidentsPerSubject <= 0 {
		return errors.New("Anomaly IncidentsPerSubject must be > 0")
	}
	if c.Anomaly.AttemptRetention < c.Anomaly.Window {
		return errors.New("Anomaly AttemptRetention must cover Window")
	}
	if c.Anomaly.IncidentRetention < c.Anomaly.RapidIPWindow {
		return errors.New("Anomaly IncidentRetention must cover RapidIPWindow")
	}

	if c.Cleanup.Interval < 0 {
		return errors.New("Cleanup Interval must be >= 0")
	}
	if c.Revocation.RedisPrefix == "" {
		return errors.New("Revocation RedisPrefix must be set")
	}
	if c.Audit.DrainTimeout < 0 {
		return errors.New("Audit DrainTimeout must be >= 0")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	return nil
}
