package tokenguard

import (
	"context"
	"crypto/sha256"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

// hashSigner returns sha256(input), standing in for a real signing backend.
type hashSigner struct{}

func (hashSigner) Sign(data []byte) ([]byte, error) {
	sum := sha256.Sum256(data)
	return sum[:], nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Issuer = "honeymoon-auth"
	cfg.Audience = "honeymoon-app"
	cfg.Cleanup.Interval = 0
	return cfg
}

// newTestManager builds a manager on a fake clock. mutate may be nil.
func newTestManager(t *testing.T, mutate func(*Config)) (*Manager, *fakeClock) {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	clock := newFakeClock()

	m, err := New().
		WithConfig(cfg).
		WithSigner(hashSigner{}).
		WithClock(clock.Now).
		WithLogger(quietLogger()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(m.Close)
	return m, clock
}

func issueU1(t *testing.T, m *Manager) *TokenPair {
	t.Helper()

	pair, err := m.Issue(context.Background(), IssueRequest{
		Subject:     "u1",
		SessionID:   "s1",
		Fingerprint: "fp-A",
		DeviceID:    "d1",
		Scope:       []string{"read", "write"},
	})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	return pair
}

func deviceA() RequestContext {
	return RequestContext{
		IP:          "10.0.0.1",
		UserAgent:   "ua-test",
		Fingerprint: "fp-A",
		DeviceID:    "d1",
	}
}
