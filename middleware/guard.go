package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/tokenguard"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the claims stored by Guard.
func ClaimsFromContext(ctx context.Context) (*tokenguard.ClaimSet, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*tokenguard.ClaimSet)
	return claims, ok
}

// Guard verifies the bearer token of every request against m and requires
// scopes. Verified claims are stored in the request context.
func Guard(m *tokenguard.Manager, scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := withClient(r)
			claims, err := m.Verify(ctx, token, scopes...)
			if err != nil {
				status := statusFor(err)
				http.Error(w, http.StatusText(status), status)
				return
			}

			ctx = context.WithValue(ctx, claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// statusFor maps a verification error to a response status. Infrastructure
// failures are not reported as bad credentials.
func statusFor(err error) int {
	switch {
	case errors.Is(err, tokenguard.ErrInsufficientScope):
		return http.StatusForbidden
	case unavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnauthorized
	}
}

// unavailable reports whether err comes from a backend outage rather than
// from the presented credential.
func unavailable(err error) bool {
	return errors.Is(err, tokenguard.ErrRevocationUnavailable) ||
		errors.Is(err, tokenguard.ErrSignerUnavailable) ||
		errors.Is(err, tokenguard.ErrManagerNotReady)
}

// withClient attaches the remote address and User-Agent of r to its context.
func withClient(r *http.Request) context.Context {
	ctx := r.Context()
	if ip := clientIP(r); ip != "" {
		ctx = tokenguard.WithClientIP(ctx, ip)
	}
	if ua := r.UserAgent(); ua != "" {
		ctx = tokenguard.WithUserAgent(ctx, ua)
	}
	return ctx
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
