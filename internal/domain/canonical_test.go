package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfarer-travel/wayfarer-api/internal/domain"
)

func TestCanonicalJSON_KeyOrderAndWhitespaceInsensitive(t *testing.T) {
	t.Parallel()

	a := json.RawMessage(`{"b": 1, "a": {"y": true, "x": null}}`)
	b := json.RawMessage(`{"a":{"x":null,"y":true},"b":1}`)

	ca, err := domain.CanonicalJSON(a)
	require.NoError(t, err)
	cb, err := domain.CanonicalJSON(b)
	require.NoError(t, err)
	assert.Equal(t, string(ca), string(cb))
	assert.JSONEq(t, `{"a":{"x":null,"y":true},"b":1}`, string(ca))
}

func TestCanonicalJSON_PreservesNumberLiterals(t *testing.T) {
	t.Parallel()

	c, err := domain.CanonicalJSON(json.RawMessage(`{"lat":38.70,"n":1e3}`))
	require.NoError(t, err)
	// Literals pass through untouched; 38.70 does not become 38.7.
	assert.Equal(t, `{"lat":38.70,"n":1e3}`, string(c))
}

func TestCanonicalJSON_ArrayOrderSignificant(t *testing.T) {
	t.Parallel()

	ca, err := domain.CanonicalJSON(json.RawMessage(`{"stops":["a","b"]}`))
	require.NoError(t, err)
	cb, err := domain.CanonicalJSON(json.RawMessage(`{"stops":["b","a"]}`))
	require.NoError(t, err)
	assert.NotEqual(t, string(ca), string(cb))
}

func TestCanonicalJSON_RejectsTrailingData(t *testing.T) {
	t.Parallel()

	_, err := domain.CanonicalJSON(json.RawMessage(`{"a":1} {"b":2}`))
	assert.Error(t, err)
}

func TestFingerprintPayload(t *testing.T) {
	t.Parallel()

	type payload struct {
		Body   string `json:"body"`
		Rating *int   `json:"rating,omitempty"`
	}

	fp1, err := domain.FingerprintPayload(payload{Body: "a"})
	require.NoError(t, err)
	fp2, err := domain.FingerprintPayload(payload{Body: "a"})
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)

	fp3, err := domain.FingerprintPayload(payload{Body: "b"})
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp3)

	// An omitted optional field hashes like an absent one.
	fp4, err := domain.FingerprintPayload(json.RawMessage(`{"body":"a"}`))
	require.NoError(t, err)
	assert.Equal(t, fp1, fp4)
}
