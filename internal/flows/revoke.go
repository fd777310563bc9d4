package flows

import (
	"context"
	"time"
)

// RevokeDeps captures revocation dependencies.
type RevokeDeps struct {
	Revoke    func(ctx context.Context, tokenID string, ttl time.Duration) error
	TTL       time.Duration
	BySession func(sessionID string) []string
	BySubject func(subject string) []string
}

// RunRevoke revokes one token id.
func RunRevoke(ctx context.Context, tokenID string, deps RevokeDeps) error {
	return deps.Revoke(ctx, tokenID, deps.TTL)
}

// RunRevokeSession revokes every indexed token of sessionID and returns how
// many ids were revoked.
func RunRevokeSession(ctx context.Context, sessionID string, deps RevokeDeps) (int, error) {
	return revokeAll(ctx, deps.BySession(sessionID), deps)
}

// RunRevokeSubject revokes every indexed token issued to subject.
func RunRevokeSubject(ctx context.Context, subject string, deps RevokeDeps) (int, error) {
	return revokeAll(ctx, deps.BySubject(subject), deps)
}

func revokeAll(ctx context.Context, ids []string, deps RevokeDeps) (int, error) {
	n := 0
	for _, id := range ids {
		if err := deps.Revoke(ctx, id, deps.TTL); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
