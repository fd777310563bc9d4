package stores

import (
	"testing"
	"time"

	"github.com/MrEthical07/tokenguard/token"
)

func claimsAt(id, sid, sub string, scope []string, exp time.Time) token.ClaimSet {
	return token.ClaimSet{
		TokenID:      id,
		SessionID:    sid,
		Subject:      sub,
		Scope:        scope,
		IssuedAt:     exp.Add(-time.Minute).UnixMilli(),
		ExpiresAt:    exp.UnixMilli(),
		LastActivity: exp.Add(-time.Minute).UnixMilli(),
	}
}

func TestActiveIndexSecondaryLookups(t *testing.T) {
	x := NewActiveIndex()
	exp := time.Unix(1_700_000_000, 0)

	x.Put(claimsAt("a1", "s1", "u1", []string{"read"}, exp))
	x.Put(claimsAt("r1", "s1", "u1", []string{token.ScopeRefresh}, exp))
	x.Put(claimsAt("a2", "s2", "u1", []string{"write"}, exp))
	x.Put(claimsAt("a3", "s3", "u2", []string{"read"}, exp))

	if got := x.BySession("s1"); len(got) != 2 || got[0] != "a1" || got[1] != "r1" {
		t.Fatalf("unexpected session members: %v", got)
	}
	if got := x.BySubject("u1"); len(got) != 3 {
		t.Fatalf("expected 3 tokens for u1, got %v", got)
	}
	if got := x.SessionAccessScope("s1"); len(got) != 1 || got[0] != "read" {
		t.Fatalf("refresh claims must not replace session access scope, got %v", got)
	}
	if x.Len() != 4 {
		t.Fatalf("expected 4 entries, got %d", x.Len())
	}
}

func TestActiveIndexTouchOnlyMovesForward(t *testing.T) {
	x := NewActiveIndex()
	exp := time.Unix(1_700_000_000, 0)
	c := claimsAt("a1", "s1", "u1", []string{"read"}, exp)
	x.Put(c)

	later := time.UnixMilli(c.LastActivity + 5000)
	if !x.Touch("a1", later) {
		t.Fatal("touch on indexed token must succeed")
	}
	x.Touch("a1", time.UnixMilli(c.LastActivity))

	e, ok := x.Get("a1")
	if !ok {
		t.Fatal("entry missing")
	}
	if e.LastActivity != later.UnixMilli() {
		t.Fatalf("expected lastActivity %d, got %d", later.UnixMilli(), e.LastActivity)
	}
	if e.Claims.LastActivity != c.LastActivity {
		t.Fatal("signed claim copy must not change")
	}
	if x.Touch("missing", later) {
		t.Fatal("touch on unknown token must report false")
	}
}

func TestActiveIndexGetReturnsCopy(t *testing.T) {
	x := NewActiveIndex()
	x.Put(claimsAt("a1", "s1", "u1", []string{"read"}, time.Unix(1_700_000_000, 0)))

	e, _ := x.Get("a1")
	e.Claims.Scope[0] = "admin"

	again, _ := x.Get("a1")
	if again.Claims.Scope[0] != "read" {
		t.Fatal("Get leaked internal scope slice")
	}
}

func TestActiveIndexSweepExpired(t *testing.T) {
	x := NewActiveIndex()
	now := time.Unix(1_700_000_000, 0)

	x.Put(claimsAt("old", "s1", "u1", []string{"read"}, now.Add(-time.Second)))
	x.Put(claimsAt("edge", "s2", "u1", []string{"read"}, now))
	x.Put(claimsAt("new", "s2", "u1", []string{"read"}, now.Add(time.Hour)))

	if removed := x.SweepExpired(now); removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, ok := x.Get("old"); ok {
		t.Fatal("expired entry still indexed")
	}
	if _, ok := x.Get("edge"); !ok {
		t.Fatal("token expiring exactly now is still valid")
	}
	if got := x.BySession("s1"); len(got) != 0 {
		t.Fatalf("empty session set should be dropped, got %v", got)
	}
	if got := x.SessionAccessScope("s1"); got != nil {
		t.Fatalf("session scope should go with last token, got %v", got)
	}
	if got := x.SessionAccessScope("s2"); len(got) != 1 {
		t.Fatalf("live session scope lost: %v", got)
	}
}
