package tokenguard

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/tokenguard/internal"
	"github.com/MrEthical07/tokenguard/internal/anomaly"
	internalaudit "github.com/MrEthical07/tokenguard/internal/audit"
	"github.com/MrEthical07/tokenguard/internal/stores"
	"github.com/MrEthical07/tokenguard/revocation"
	"github.com/MrEthical07/tokenguard/token"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	backendMemory = "memory"
	backendRedis  = "redis"
	backendCustom = "custom"
)

// Builder assembles a Manager. A Builder can be used once.
type Builder struct {
	config   Config
	signer   token.Signer
	random   RandomSource
	now      func() time.Time
	redis    redis.UniversalClient
	registry revocation.Registry
	logger   *logrus.Logger

	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSigner sets the signing backend. It is required.
func (b *Builder) WithSigner(signer token.Signer) *Builder {
	b.signer = signer
	return b
}

// WithRandom replaces crypto/rand as the token id entropy source.
func (b *Builder) WithRandom(r RandomSource) *Builder {
	b.random = r
	return b
}

// WithClock replaces time.Now. The same clock drives token timestamps, the
// security gate and the in-memory revocation registry.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithRedis stores revocations in Redis so that every manager sharing the
// client sees them.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRevocationRegistry installs a caller-provided registry. It takes
// precedence over WithRedis.
func (b *Builder) WithRevocationRegistry(r revocation.Registry) *Builder {
	b.registry = r
	return b
}

func (b *Builder) WithLogger(logger *logrus.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and starts the manager. The background
// sweeper runs when Config.Cleanup.Interval is positive.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.signer == nil {
		return nil, errors.New("signer required")
	}
	codec, err := token.NewCodec(cfg.Algorithm, b.signer)
	if err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	random := b.random
	if random == nil {
		random = internal.DefaultRandom()
	}

	// -------- REVOCATION REGISTRY --------
	var (
		registry revocation.Registry
		backend  string
	)
	switch {
	case b.registry != nil:
		registry, backend = b.registry, backendCustom
	case b.redis != nil:
		registry, backend = revocation.NewRedis(b.redis, cfg.Revocation.RedisPrefix), backendRedis
	default:
		registry, backend = revocation.NewMemory(now), backendMemory
	}

	// -------- LOGGING --------
	logger := b.logger
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(cfg.Logging.Level)
	}

	m := &Manager{
		config:   cfg,
		codec:    codec,
		registry: registry,
		backend:  backend,
		index:    stores.NewActiveIndex(),
		detector: anomaly.New(cfg.thresholds()),
		random:   random,
		now:      now,
		metrics:  NewMetrics(cfg.Metrics),
		log:      logger.WithField("component", "tokenguard"),
		stop:     make(chan struct{}),
	}
	m.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	m.flows = m.buildFlowDeps()

	if cfg.Cleanup.Interval > 0 {
		m.startSweeper(cfg.Cleanup.Interval)
	}

	b.built = true

	m.log.WithFields(logrus.Fields{
		"algorithm":  string(cfg.Algorithm),
		"revocation": backend,
		"rotation":   cfg.EnableRotation,
	}).Info("token manager started")

	return m, nil
}

// MustBuild is Build for program initialization.
func (b *Builder) MustBuild() *Manager {
	m, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("tokenguard: %v", err))
	}
	return m
}
