package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadersAtDeterministic(t *testing.T) {
	auth := &HMACAuth{Key: "svc-key", Secret: "topsecret"}

	h1 := auth.HeadersAt("POST", "/transactions/purchase", `{"a":1}`, 1700000000)
	h2 := auth.HeadersAt("POST", "/transactions/purchase", `{"a":1}`, 1700000000)

	assert.Equal(t, h1, h2)
	assert.Equal(t, "svc-key", h1["X-Relayer-Key"])
	assert.Equal(t, "1700000000", h1["X-Relayer-Timestamp"])
	assert.NotEmpty(t, h1["X-Relayer-Signature"])
}

func TestHeadersAtSignatureCoversAllInputs(t *testing.T) {
	auth := &HMACAuth{Key: "svc-key", Secret: "topsecret"}
	base := auth.HeadersAt("POST", "/transactions/purchase", "body", 1700000000)

	variants := []map[string]string{
		auth.HeadersAt("GET", "/transactions/purchase", "body", 1700000000),
		auth.HeadersAt("POST", "/transactions/other", "body", 1700000000),
		auth.HeadersAt("POST", "/transactions/purchase", "other", 1700000000),
		auth.HeadersAt("POST", "/transactions/purchase", "body", 1700000001),
	}
	for _, v := range variants {
		assert.NotEqual(t, base["X-Relayer-Signature"], v["X-Relayer-Signature"])
	}

	other := &HMACAuth{Key: "svc-key", Secret: "different"}
	require.NotEqual(t,
		base["X-Relayer-Signature"],
		other.HeadersAt("POST", "/transactions/purchase", "body", 1700000000)["X-Relayer-Signature"],
	)
}

func TestHeadersUsesCurrentTime(t *testing.T) {
	auth := &HMACAuth{Key: "k", Secret: "s"}
	h := auth.Headers("GET", "/wallet", "")

	assert.NotEmpty(t, h["X-Relayer-Timestamp"])
	assert.NotEmpty(t, h["X-Relayer-Signature"])
}
