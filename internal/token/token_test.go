package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	c := NewCodec("round-trip-secret", 5*time.Minute)
	raw, err := c.Sign(jwt.MapClaims{"sid": uint64(42), "role": "artist"})
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	claims, err := c.Verify(raw)
	require.NoError(t, err)

	sid, ok := Uint64Claim(claims, "sid")
	require.True(t, ok)
	assert.Equal(t, uint64(42), sid)
	assert.Equal(t, "artist", claims["role"])
}

func TestVerifyWrongSecret(t *testing.T) {
	t.Parallel()

	signer := NewCodec("secret-one", 5*time.Minute)
	raw, err := signer.Sign(jwt.MapClaims{"sid": 1})
	require.NoError(t, err)

	verifier := NewCodec("secret-two", 5*time.Minute)
	_, err = verifier.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpired(t *testing.T) {
	t.Parallel()

	c := NewCodec("expiring-secret", -time.Minute)
	raw, err := c.Sign(jwt.MapClaims{"sid": 1})
	require.NoError(t, err)

	_, err = c.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyMalformed(t *testing.T) {
	t.Parallel()

	c := NewCodec("some-secret", time.Minute)
	for _, raw := range []string{"", "garbage", "a.b.c"} {
		_, err := c.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, "input %q", raw)
	}
}

func TestUint64Claim(t *testing.T) {
	t.Parallel()

	claims := jwt.MapClaims{
		"num":      float64(17),
		"str":      "23",
		"negative": float64(-1),
		"junk":     "abc",
		"wrong":    []string{"x"},
	}

	n, ok := Uint64Claim(claims, "num")
	assert.True(t, ok)
	assert.Equal(t, uint64(17), n)

	n, ok = Uint64Claim(claims, "str")
	assert.True(t, ok)
	assert.Equal(t, uint64(23), n)

	for _, key := range []string{"negative", "junk", "wrong", "missing"} {
		_, ok := Uint64Claim(claims, key)
		assert.False(t, ok, "key %q", key)
	}
}

func TestRandomHexLengthAndUniqueness(t *testing.T) {
	t.Parallel()

	a, err := RandomHex(32)
	require.NoError(t, err)
	b, err := RandomHex(32)
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
