package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	mrand "math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/token"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type sessionState struct {
	subject string
	refresh string
	access  string
	mu      sync.Mutex
}

func main() {
	var (
		sessions    = flag.Int("sessions", 10000, "number of sessions to issue")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (verify + refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		envFile     = flag.String("env-file", ".env", "optional dotenv file with TOKENGUARD_* settings")
	)
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		log.Fatal("sessions, concurrency, and ops must be > 0")
	}

	if loaded, err := tokenguard.LoadEnvFiles(*envFile); err != nil {
		log.WithError(err).Fatal("load env file")
	} else if loaded != "" {
		log.WithField("file", loaded).Info("loaded env file")
	}

	cfg, err := tokenguard.ConfigFromEnv(tokenguard.DefaultEnvPrefix)
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	// The gate would throttle a synthetic client; keep only the binding checks.
	cfg.MaxRefreshAttempts = *ops
	cfg.Anomaly.AttemptsPerSubject = *ops
	cfg.Anomaly.MinSamples = *ops
	cfg.Cleanup.Interval = 0
	log.SetLevel(cfg.Logging.Level)

	ctx := context.Background()
	client, cleanup := redisClient(log, *redisAddr)
	defer cleanup()

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		log.WithError(err).Fatal("generate secret")
	}
	signer, err := token.NewHMACSigner(secret)
	if err != nil {
		log.WithError(err).Fatal("create signer")
	}

	m, err := tokenguard.New().
		WithConfig(cfg).
		WithSigner(signer).
		WithRedis(client).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		WithLogger(log).
		Build()
	if err != nil {
		log.WithError(err).Fatal("build manager")
	}
	defer m.Close()

	states := make([]sessionState, *sessions)
	log.Infof("issuing %d sessions...", *sessions)
	startSeed := time.Now()
	for i := range states {
		subject := fmt.Sprintf("user-%d", i)
		pair, err := m.Issue(ctx, tokenguard.IssueRequest{
			Subject:     subject,
			SessionID:   tokenguard.NewSessionID(),
			Fingerprint: "loadtest",
			DeviceID:    fmt.Sprintf("device-%d", i),
		})
		if err != nil {
			log.WithError(err).Fatal("issue failed")
		}
		states[i] = sessionState{subject: subject, refresh: pair.RefreshToken, access: pair.AccessToken}
	}
	log.Infof("issued in %s", time.Since(startSeed).Round(time.Millisecond))

	verifyStats := runVerifyPhase(ctx, m, states, *ops, *concurrency)
	refreshStats := runRefreshPhase(ctx, m, states, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("verify", verifyStats)
	printStats("refresh", refreshStats)

	snap := m.MetricsSnapshot()
	fmt.Printf("metrics: verify_failure=%d refresh_rejected=%d registry_failure=%d\n",
		snap.Counters[tokenguard.MetricVerifyFailure],
		snap.Counters[tokenguard.MetricRefreshRejected],
		snap.Counters[tokenguard.MetricRegistryFailure],
	)
}

func redisClient(log *logrus.Logger, addr string) (redis.UniversalClient, func()) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		log.WithField("addr", addr).Info("using redis")
		return client, func() { _ = client.Close() }
	}

	mr, err := miniredis.Run()
	if err != nil {
		log.WithError(err).Fatal("start miniredis")
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	log.WithField("addr", mr.Addr()).Info("using miniredis")
	return client, func() {
		_ = client.Close()
		mr.Close()
	}
}

func runVerifyPhase(ctx context.Context, m *tokenguard.Manager, states []sessionState, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, 7919, func(r *mrand.Rand, i int) error {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		access := state.access
		state.mu.Unlock()
		_, err := m.Verify(ctx, access)
		return err
	})
}

func runRefreshPhase(ctx context.Context, m *tokenguard.Manager, states []sessionState, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, 6151, func(r *mrand.Rand, i int) error {
		idx := r.Intn(len(states))
		state := &states[idx]

		state.mu.Lock()
		defer state.mu.Unlock()
		pair, err := m.Refresh(ctx, state.refresh, tokenguard.RequestContext{
			IP:          "10.0.0.1",
			Fingerprint: "loadtest",
			DeviceID:    fmt.Sprintf("device-%d", idx),
		})
		if err != nil {
			return err
		}
		state.refresh = pair.RefreshToken
		state.access = pair.AccessToken
		return nil
	})
}

func runPhase(ops, concurrency int, seed int64, op func(r *mrand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
