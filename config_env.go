package tokenguard

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/tokenguard/token"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// DefaultEnvPrefix is the variable prefix read by ConfigFromEnv.
const DefaultEnvPrefix = "TOKENGUARD_"

// LoadEnvFiles loads the first existing file of files into the process
// environment. Variables that are already set win. It returns the file that
// was loaded, or "" when none exists.
func LoadEnvFiles(files ...string) (string, error) {
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return "", fmt.Errorf("load %s: %w", file, err)
		}
		return file, nil
	}
	return "", nil
}

// ConfigFromEnv starts from DefaultConfig and overrides every field that has
// a variable set. prefix defaults to DefaultEnvPrefix.
//
//	ACCESS_TTL, REFRESH_TTL, CLEANUP_INTERVAL, ANOMALY_WINDOW   durations
//	AUDIT_DRAIN_TIMEOUT                                         duration
//	ALGORITHM, ISSUER, AUDIENCE, REDIS_PREFIX, LOG_LEVEL        strings
//	ENABLE_ROTATION, AUDIT_ENABLED, METRICS_ENABLED             booleans
//	MAX_REFRESH_ATTEMPTS                                        integer
//	DEFAULT_SCOPE                                               comma separated
//
// The result is validated.
func ConfigFromEnv(prefix string) (Config, error) {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	env := envReader{prefix: prefix}
	cfg := defaultConfig()

	env.duration("ACCESS_TTL", &cfg.AccessTTL)
	env.duration("REFRESH_TTL", &cfg.RefreshTTL)
	env.duration("CLEANUP_INTERVAL", &cfg.Cleanup.Interval)
	env.duration("ANOMALY_WINDOW", &cfg.Anomaly.Window)
	env.duration("AUDIT_DRAIN_TIMEOUT", &cfg.Audit.DrainTimeout)

	if v, ok := env.lookup("ALGORITHM"); ok {
		cfg.Algorithm = token.Algorithm(v)
	}
	env.str("ISSUER", &cfg.Issuer)
	env.str("AUDIENCE", &cfg.Audience)
	env.str("REDIS_PREFIX", &cfg.Revocation.RedisPrefix)

	env.boolean("ENABLE_ROTATION", &cfg.EnableRotation)
	env.boolean("AUDIT_ENABLED", &cfg.Audit.Enabled)
	env.boolean("METRICS_ENABLED", &cfg.Metrics.Enabled)

	env.integer("MAX_REFRESH_ATTEMPTS", &cfg.MaxRefreshAttempts)

	if v, ok := env.lookup("DEFAULT_SCOPE"); ok {
		var scope []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				scope = append(scope, s)
			}
		}
		cfg.DefaultScope = scope
	}

	if v, ok := env.lookup("LOG_LEVEL"); ok {
		level, err := logrus.ParseLevel(v)
		if err != nil {
			env.fail("LOG_LEVEL", err)
		} else {
			cfg.Logging.Level = level
		}
	}

	if env.err != nil {
		return Config{}, env.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envReader keeps the first parse error.
type envReader struct {
	prefix string
	err    error
}

func (r *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(r.prefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *envReader) fail(key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%s%s: %w", r.prefix, key, err)
	}
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := r.lookup(key); ok {
		*dst = v
	}
}

func (r *envReader) duration(key string, dst *time.Duration) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, err)
		return
	}
	*dst = d
}

func (r *envReader) boolean(key string, dst *bool) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, err)
		return
	}
	*dst = b
}

func (r *envReader) integer(key string, dst *int) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, err)
		return
	}
	*dst = n
}
