package anomaly

import (
	"slices"
	"sync"
	"time"

	"github.com/MrEthical07/tokenguard/internal"
)

// Reason classifies a gate rejection. The empty Reason means allowed.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonFingerprintMismatch Reason = "device_fingerprint_mismatch"
	ReasonDeviceIDMismatch    Reason = "device_id_mismatch"
	ReasonTooManyAttempts     Reason = "too_many_refresh_attempts"
	ReasonAutomatedPattern    Reason = "automated_refresh_pattern_detected"
	ReasonRapidIPChange       Reason = "rapid_ip_change_detected"
)

// Thresholds configures the gate and the retention of its logs.
type Thresholds struct {
	// Window is the trailing period for attempt counting and cadence analysis.
	Window      time.Duration
	MaxAttempts int
	// MinSamples is the number of recent attempts needed before cadence
	// analysis runs.
	MinSamples       int
	MinMeanInterval  time.Duration
	MaxVarianceMs2   float64
	RapidIPWindow    time.Duration
	AttemptsRetained int
	// IncidentsRetained bounds the incident list per subject.
	IncidentsRetained int
	AttemptRetention  time.Duration
	IncidentRetention time.Duration
}

// DefaultThresholds returns the production gate settings.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Window:            time.Hour,
		MaxAttempts:       5,
		MinSamples:        3,
		MinMeanInterval:   5 * time.Second,
		MaxVarianceMs2:    1000,
		RapidIPWindow:     60 * time.Second,
		AttemptsRetained:  50,
		IncidentsRetained: 20,
		AttemptRetention:  24 * time.Hour,
		IncidentRetention: 7 * 24 * time.Hour,
	}
}

// Binding is the device binding carried by the presented refresh token.
type Binding struct {
	Subject     string
	Fingerprint string
	DeviceID    string
	TokenID     string
}

// Request is what the caller observed about the refreshing client.
type Request struct {
	IP          string
	UserAgent   string
	Fingerprint string
	DeviceID    string
}

// Attempt is one recorded refresh call.
type Attempt struct {
	Timestamp time.Time
	IP        string
	UserAgent string
	Success   bool
	TokenID   string
}

// Incident is one gate rejection.
type Incident struct {
	Timestamp time.Time
	Reason    Reason
	IP        string
	UserAgent string
}

// Record is the suspicious-activity record of a subject.
type Record struct {
	Incidents    []Incident
	LastKnownIP  string
	LastActivity time.Time
}

func (r *Record) clone() Record {
	return Record{
		Incidents:    slices.Clone(r.Incidents),
		LastKnownIP:  r.LastKnownIP,
		LastActivity: r.LastActivity,
	}
}

// Detector owns the attempt logs and suspicious-activity records.
type Detector struct {
	mu         sync.Mutex
	th         Thresholds
	attempts   map[string][]Attempt
	suspicious map[string]*Record
}

// New returns a Detector. Zero threshold fields fall back to defaults.
func New(th Thresholds) *Detector {
	return &Detector{
		th:         withDefaults(th),
		attempts:   make(map[string][]Attempt),
		suspicious: make(map[string]*Record),
	}
}

func withDefaults(th Thresholds) Thresholds {
	def := DefaultThresholds()
	if th.Window <= 0 {
		th.Window = def.Window
	}
	if th.MaxAttempts <= 0 {
		th.MaxAttempts = def.MaxAttempts
	}
	if th.MinSamples <= 0 {
		th.MinSamples = def.MinSamples
	}
	if th.MinMeanInterval <= 0 {
		th.MinMeanInterval = def.MinMeanInterval
	}
	if th.MaxVarianceMs2 <= 0 {
		th.MaxVarianceMs2 = def.MaxVarianceMs2
	}
	if th.RapidIPWindow <= 0 {
		th.RapidIPWindow = def.RapidIPWindow
	}
	if th.AttemptsRetained <= 0 {
		th.AttemptsRetained = def.AttemptsRetained
	}
	if th.IncidentsRetained <= 0 {
		th.IncidentsRetained = def.IncidentsRetained
	}
	if th.AttemptRetention <= 0 {
		th.AttemptRetention = def.AttemptRetention
	}
	if th.IncidentRetention <= 0 {
		th.IncidentRetention = def.IncidentRetention
	}
	return th
}

// Thresholds returns the effective settings.
func (d *Detector) Thresholds() Thresholds {
	return d.th
}

// Check runs the gate rules without recording anything.
func (d *Detector) Check(b Binding, r Request, now time.Time) Reason {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.checkLocked(b, r, now)
}

// Evaluate runs the gate and records the outcome: a rejection appends a failed
// attempt and an incident, an allowed call appends a successful attempt and
// refreshes an existing suspicious record's last-known IP.
func (d *Detector) Evaluate(b Binding, r Request, now time.Time) Reason {
	d.mu.Lock()
	defer d.mu.Unlock()

	reason := d.checkLocked(b, r, now)
	d.appendAttemptLocked(b.Subject, Attempt{
		Timestamp: now,
		IP:        r.IP,
		UserAgent: r.UserAgent,
		Success:   reason == ReasonNone,
		TokenID:   b.TokenID,
	})

	if reason != ReasonNone {
		d.appendIncidentLocked(b.Subject, Incident{
			Timestamp: now,
			Reason:    reason,
			IP:        r.IP,
			UserAgent: r.UserAgent,
		})
		return reason
	}

	if rec, ok := d.suspicious[b.Subject]; ok {
		rec.LastKnownIP = r.IP
		rec.LastActivity = now
	}
	return ReasonNone
}

func (d *Detector) checkLocked(b Binding, r Request, now time.Time) Reason {
	if !internal.BindingEqual(b.Fingerprint, r.Fingerprint) {
		return ReasonFingerprintMismatch
	}
	if !internal.BindingEqual(b.DeviceID, r.DeviceID) {
		return ReasonDeviceIDMismatch
	}

	recent := d.recentLocked(b.Subject, now)
	if len(recent) >= d.th.MaxAttempts {
		return ReasonTooManyAttempts
	}
	if len(recent) >= d.th.MinSamples && d.automated(recent) {
		return ReasonAutomatedPattern
	}

	if rec, ok := d.suspicious[b.Subject]; ok {
		if rec.LastKnownIP != r.IP && now.Sub(rec.LastActivity) < d.th.RapidIPWindow {
			return ReasonRapidIPChange
		}
	}
	return ReasonNone
}

// recentLocked returns the timestamps of attempts inside the trailing window,
// oldest first.
func (d *Detector) recentLocked(subject string, now time.Time) []time.Time {
	log := d.attempts[subject]
	out := make([]time.Time, 0, len(log))
	for _, a := range log {
		if now.Sub(a.Timestamp) < d.th.Window {
			out = append(out, a.Timestamp)
		}
	}
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return out
}

func (d *Detector) automated(ts []time.Time) bool {
	mean, variance := intervalStats(ts)
	return mean < float64(d.th.MinMeanInterval.Milliseconds()) && variance < d.th.MaxVarianceMs2
}

// intervalStats returns the mean and population variance, in milliseconds
// and ms², of the gaps between consecutive timestamps.
func intervalStats(ts []time.Time) (mean, variance float64) {
	if len(ts) < 2 {
		return 0, 0
	}
	gaps := make([]float64, 0, len(ts)-1)
	for i := 1; i < len(ts); i++ {
		gaps = append(gaps, float64(ts[i].Sub(ts[i-1]).Milliseconds()))
	}
	for _, g := range gaps {
		mean += g
	}
	mean /= float64(len(gaps))
	for _, g := range gaps {
		diff := g - mean
		variance += diff * diff
	}
	variance /= float64(len(gaps))
	return mean, variance
}

func (d *Detector) appendAttemptLocked(subject string, a Attempt) {
	log := append(d.attempts[subject], a)
	if over := len(log) - d.th.AttemptsRetained; over > 0 {
		log = slices.Delete(log, 0, over)
	}
	d.attempts[subject] = log
}

func (d *Detector) appendIncidentLocked(subject string, inc Incident) {
	rec, ok := d.suspicious[subject]
	if !ok {
		rec = &Record{}
		d.suspicious[subject] = rec
	}
	rec.Incidents = append(rec.Incidents, inc)
	if over := len(rec.Incidents) - d.th.IncidentsRetained; over > 0 {
		rec.Incidents = slices.Delete(rec.Incidents, 0, over)
	}
	rec.LastKnownIP = inc.IP
	rec.LastActivity = inc.Timestamp
}

// MarkFailed flips the newest successful attempt of subject made with tokenID
// to failed. It is used when a refresh that passed the gate fails later on.
// It reports whether an attempt was changed.
func (d *Detector) MarkFailed(subject, tokenID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	log := d.attempts[subject]
	for i := len(log) - 1; i >= 0; i-- {
		if log[i].TokenID == tokenID && log[i].Success {
			log[i].Success = false
			return true
		}
	}
	return false
}

// Attempts returns a copy of the subject's attempt log, oldest first.
func (d *Detector) Attempts(subject string) []Attempt {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.attempts[subject])
}

// Suspicious returns a copy of the subject's suspicious-activity record.
func (d *Detector) Suspicious(subject string) (Record, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, ok := d.suspicious[subject]
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}
