package anomaly

import "time"

// Stats aggregates the attempt logs and incident records.
type Stats struct {
	TotalAttempts    int
	FailedAttempts   int
	FailedLast24h    int
	Incidents        int
	IncidentsLast24h int
}

const statsWindow = 24 * time.Hour

// Stats counts retained attempts and incidents, with trailing 24h subtotals.
func (d *Detector) Stats(now time.Time) Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	var s Stats
	for _, log := range d.attempts {
		for _, a := range log {
			s.TotalAttempts++
			if a.Success {
				continue
			}
			s.FailedAttempts++
			if now.Sub(a.Timestamp) < statsWindow {
				s.FailedLast24h++
			}
		}
	}
	for _, rec := range d.suspicious {
		for _, inc := range rec.Incidents {
			s.Incidents++
			if now.Sub(inc.Timestamp) < statsWindow {
				s.IncidentsLast24h++
			}
		}
	}
	return s
}

// SweepResult reports what a Sweep removed.
type SweepResult struct {
	Attempts  int
	Subjects  int
	Incidents int
	Records   int
}

// Sweep drops attempts older than AttemptRetention and incidents older than
// IncidentRetention. Subjects left with no attempts and records left with no
// incidents are removed.
func (d *Detector) Sweep(now time.Time) SweepResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	var res SweepResult
	for subject, log := range d.attempts {
		kept := log[:0]
		for _, a := range log {
			if now.Sub(a.Timestamp) <= d.th.AttemptRetention {
				kept = append(kept, a)
			}
		}
		res.Attempts += len(log) - len(kept)
		clear(log[len(kept):])
		if len(kept) == 0 {
			delete(d.attempts, subject)
			res.Subjects++
			continue
		}
		d.attempts[subject] = kept
	}

	for subject, rec := range d.suspicious {
		kept := rec.Incidents[:0]
		for _, inc := range rec.Incidents {
			if now.Sub(inc.Timestamp) <= d.th.IncidentRetention {
				kept = append(kept, inc)
			}
		}
		res.Incidents += len(rec.Incidents) - len(kept)
		clear(rec.Incidents[len(kept):])
		if len(kept) == 0 {
			delete(d.suspicious, subject)
			res.Records++
			continue
		}
		rec.Incidents = kept
	}
	return res
}
