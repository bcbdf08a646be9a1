// Package authmw provides HTTP middleware for API key authentication.
package authmw

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKey returns middleware that validates the request carries the expected
// key, either as "Authorization: Bearer <key>" or in the X-Api-Key header.
// Comparison uses constant-time equality to prevent timing side-channel
// attacks.
func APIKey(key string) func(http.Handler) http.Handler {
	expected := []byte(key)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := keyFromRequest(r)
			if got == nil {
				http.Error(w, `{"error":"missing or malformed credentials"}`, http.StatusUnauthorized)
				return
			}

			if subtle.ConstantTimeCompare(got, expected) != 1 {
				http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func keyFromRequest(r *http.Request) []byte {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return []byte(auth[len("Bearer "):])
	}
	if k := r.Header.Get("X-Api-Key"); k != "" {
		return []byte(k)
	}
	return nil
}
