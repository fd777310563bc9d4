package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrEthical07/tokenguard"
)

const (
	// HeaderFingerprint carries the client's device fingerprint.
	HeaderFingerprint = "X-Device-Fingerprint"
	// HeaderDeviceID carries the client's device id.
	HeaderDeviceID = "X-Device-ID"
)

// RequestContextFromHTTP collects the device values of r for Refresh.
func RequestContextFromHTTP(r *http.Request) tokenguard.RequestContext {
	return tokenguard.RequestContext{
		IP:          clientIP(r),
		UserAgent:   r.UserAgent(),
		Fingerprint: r.Header.Get(HeaderFingerprint),
		DeviceID:    r.Header.Get(HeaderDeviceID),
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// RefreshHandler exchanges the refresh_token of a JSON POST body for a new
// pair. Every refusal is a bare 401 so the gate's reason never reaches the
// client. Registry, signer and shutdown failures are 503.
func RefreshHandler(m *tokenguard.Manager) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if m == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req refreshRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&req); err != nil || req.RefreshToken == "" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		pair, err := m.Refresh(r.Context(), req.RefreshToken, RequestContextFromHTTP(r))
		if err != nil {
			// a failed reissue may follow rotation, so the old token is gone
			status := http.StatusUnauthorized
			if unavailable(err) {
				status = http.StatusServiceUnavailable
			}
			http.Error(w, http.StatusText(status), status)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(refreshResponse{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			ExpiresAt:    pair.ExpiresAt,
		})
	})
}
