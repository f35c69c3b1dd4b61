package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

// APIKeyHeader carries the admin API key.
const APIKeyHeader = "api_key"

// HashAPIKey returns the hex HMAC-SHA256 of key under pepper, the form in
// which admin keys are configured.
func HashAPIKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// RequireAPIKey admits requests whose api_key header hashes to one of
// hashes. Comparison is constant-time. With no hashes configured every
// request is admitted.
func RequireAPIKey(pepper []byte, hashes []string) func(http.Handler) http.Handler {
	allowed := make([][]byte, 0, len(hashes))
	for _, h := range hashes {
		if b, err := hex.DecodeString(h); err == nil {
			allowed = append(allowed, b)
		}
	}
	return func(next http.Handler) http.Handler {
		if len(hashes) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(APIKeyHeader)
			if key == "" || !matchKey(pepper, key, allowed) {
				writeMessage(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func matchKey(pepper []byte, key string, allowed [][]byte) bool {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	sum := mac.Sum(nil)

	ok := 0
	for _, a := range allowed {
		ok |= subtle.ConstantTimeCompare(sum, a)
	}
	return ok == 1
}
