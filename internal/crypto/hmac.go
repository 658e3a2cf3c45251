// Package crypto provides HMAC request signing for the transaction relayer
// and encrypted at-rest storage for its API secret.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"time"
)

// HMACAuth holds the credentials for HMAC-authenticated requests against
// the transaction relayer.
type HMACAuth struct {
	Key    string // API key identifying this service
	Secret string // shared secret, raw bytes
}

// Headers returns the HTTP headers for a relayer API request. The signature
// is HMAC-SHA256(secret, timestamp+method+path+body) encoded as base64.
//
// Returned header keys:
//   - X-Relayer-Key
//   - X-Relayer-Timestamp
//   - X-Relayer-Signature
func (h *HMACAuth) Headers(method, path, body string) map[string]string {
	return h.HeadersAt(method, path, body, time.Now().Unix())
}

// HeadersAt is like Headers but lets the caller supply the Unix timestamp
// (useful for deterministic testing).
func (h *HMACAuth) HeadersAt(method, path, body string, unixTS int64) map[string]string {
	ts := strconv.FormatInt(unixTS, 10)

	message := ts + method + path + body
	sig := hmacSHA256Base64([]byte(h.Secret), message)

	return map[string]string{
		"X-Relayer-Key":       h.Key,
		"X-Relayer-Timestamp": ts,
		"X-Relayer-Signature": sig,
	}
}

// hmacSHA256Base64 computes HMAC-SHA256 of message using key and returns the
// result as a base64 standard-encoded string.
func hmacSHA256Base64(key []byte, message string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
