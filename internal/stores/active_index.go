package stores

import (
	"slices"
	"sync"
	"time"

	"github.com/MrEthical07/tokenguard/token"
)

// IndexEntry is a copy of one indexed claim set plus its live activity time.
type IndexEntry struct {
	Claims       token.ClaimSet
	LastActivity int64
}

type indexRecord struct {
	claims       token.ClaimSet
	lastActivity int64
}

// ActiveIndex maps token ids to the claim sets issued for them. It backs
// cascade revocation and reporting; verification never trusts it.
type ActiveIndex struct {
	mu        sync.RWMutex
	byID      map[string]*indexRecord
	bySession map[string]map[string]struct{}
	bySubject map[string]map[string]struct{}
	// last access scope issued per session, reused when a refresh token
	// carries no access scope of its own
	sessionScope map[string][]string
}

// NewActiveIndex returns an empty index.
func NewActiveIndex() *ActiveIndex {
	return &ActiveIndex{
		byID:         make(map[string]*indexRecord),
		bySession:    make(map[string]map[string]struct{}),
		bySubject:    make(map[string]map[string]struct{}),
		sessionScope: make(map[string][]string),
	}
}

// Put registers claims under claims.TokenID, replacing any previous entry.
func (x *ActiveIndex) Put(claims token.ClaimSet) {
	if claims.TokenID == "" {
		return
	}
	rec := &indexRecord{claims: claims.Clone(), lastActivity: claims.LastActivity}

	x.mu.Lock()
	defer x.mu.Unlock()

	if old, ok := x.byID[claims.TokenID]; ok {
		x.unlinkLocked(claims.TokenID, old.claims)
	}
	x.byID[claims.TokenID] = rec
	link(x.bySession, claims.SessionID, claims.TokenID)
	link(x.bySubject, claims.Subject, claims.TokenID)
	if !claims.IsRefresh() && claims.SessionID != "" && len(claims.Scope) > 0 {
		x.sessionScope[claims.SessionID] = slices.Clone(claims.Scope)
	}
}

// Touch sets the live activity time of tokenID. It reports false when the id
// is not indexed.
func (x *ActiveIndex) Touch(tokenID string, at time.Time) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	rec, ok := x.byID[tokenID]
	if !ok {
		return false
	}
	if ms := at.UnixMilli(); ms > rec.lastActivity {
		rec.lastActivity = ms
	}
	return true
}

// Get returns a copy of the entry for tokenID.
func (x *ActiveIndex) Get(tokenID string) (IndexEntry, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	rec, ok := x.byID[tokenID]
	if !ok {
		return IndexEntry{}, false
	}
	return IndexEntry{Claims: rec.claims.Clone(), LastActivity: rec.lastActivity}, true
}

// BySession returns the ids of every indexed token in sessionID.
func (x *ActiveIndex) BySession(sessionID string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return keys(x.bySession[sessionID])
}

// BySubject returns the ids of every indexed token issued to subject.
func (x *ActiveIndex) BySubject(subject string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return keys(x.bySubject[subject])
}

// SessionAccessScope returns the access scope most recently indexed for
// sessionID, or nil.
func (x *ActiveIndex) SessionAccessScope(sessionID string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return slices.Clone(x.sessionScope[sessionID])
}

// Snapshot returns copies of every entry.
func (x *ActiveIndex) Snapshot() []IndexEntry {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]IndexEntry, 0, len(x.byID))
	for _, rec := range x.byID {
		out = append(out, IndexEntry{Claims: rec.claims.Clone(), LastActivity: rec.lastActivity})
	}
	return out
}

// Len returns the number of indexed tokens.
func (x *ActiveIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byID)
}

// SweepExpired drops entries whose expiry is before now and returns how many
// were removed. Session scope memory goes with the last token of a session.
func (x *ActiveIndex) SweepExpired(now time.Time) int {
	x.mu.Lock()
	defer x.mu.Unlock()

	removed := 0
	for id, rec := range x.byID {
		if rec.claims.Expired(now) {
			x.unlinkLocked(id, rec.claims)
			delete(x.byID, id)
			removed++
		}
	}
	return removed
}

func (x *ActiveIndex) unlinkLocked(tokenID string, claims token.ClaimSet) {
	unlink(x.bySubject, claims.Subject, tokenID)
	if unlink(x.bySession, claims.SessionID, tokenID) {
		delete(x.sessionScope, claims.SessionID)
	}
}

func link(m map[string]map[string]struct{}, key, tokenID string) {
	if key == "" {
		return
	}
	set, ok := m[key]
	if !ok {
		set = make(map[string]struct{})
		m[key] = set
	}
	set[tokenID] = struct{}{}
}

// unlink reports whether the set for key became empty and was dropped.
func unlink(m map[string]map[string]struct{}, key, tokenID string) bool {
	set, ok := m[key]
	if !ok {
		return false
	}
	delete(set, tokenID)
	if len(set) == 0 {
		delete(m, key)
		return true
	}
	return false
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
