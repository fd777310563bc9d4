package anomaly

import (
	"testing"
	"time"
)

func TestStatsWindows(t *testing.T) {
	d := New(DefaultThresholds())
	bad := matching("10.0.0.1")
	bad.Fingerprint = "fp-Z"

	d.Evaluate(bound(), bad, base)
	d.Evaluate(bound(), matching("10.0.0.1"), base.Add(2*time.Hour))
	d.Evaluate(bound(), bad, base.Add(30*time.Hour))

	s := d.Stats(base.Add(30 * time.Hour))
	if s.TotalAttempts != 3 || s.FailedAttempts != 2 {
		t.Fatalf("unexpected totals: %+v", s)
	}
	if s.FailedLast24h != 1 || s.IncidentsLast24h != 1 {
		t.Fatalf("unexpected 24h counts: %+v", s)
	}
	if s.Incidents != 2 {
		t.Fatalf("expected 2 incidents, got %d", s.Incidents)
	}
}

func TestSweepDropsAgedEntriesAndEmptySubjects(t *testing.T) {
	d := New(DefaultThresholds())
	bad := matching("10.0.0.1")
	bad.DeviceID = "other"

	d.Evaluate(bound(), bad, base)

	other := Binding{Subject: "u2", Fingerprint: "f", DeviceID: "d", TokenID: "x"}
	d.Evaluate(other, Request{IP: "1.1.1.1", Fingerprint: "f", DeviceID: "d"}, base.Add(20*time.Hour))

	res := d.Sweep(base.Add(25 * time.Hour))
	if res.Attempts != 1 || res.Subjects != 1 {
		t.Fatalf("unexpected attempt sweep: %+v", res)
	}
	if res.Incidents != 0 || res.Records != 0 {
		t.Fatalf("incidents are kept for 7 days: %+v", res)
	}
	if len(d.Attempts("u1")) != 0 || len(d.Attempts("u2")) != 1 {
		t.Fatal("wrong subject swept")
	}

	res = d.Sweep(base.Add(8 * 24 * time.Hour))
	if res.Incidents != 1 || res.Records != 1 {
		t.Fatalf("unexpected incident sweep: %+v", res)
	}
	if _, ok := d.Suspicious("u1"); ok {
		t.Fatal("empty suspicious record should be removed")
	}
}
