package token // package token provides stateless signing and verification of JWTs

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every verification failure: malformed input,
// wrong secret, unexpected algorithm or elapsed TTL.  Callers get no
// finer detail because none of those cases should be distinguishable
// to a client.
var ErrInvalidToken = errors.New("invalid or expired token")

// Codec signs and verifies HS256 JWTs with a fixed secret and TTL.
// Two codecs run side by side in this application: a short-lived one
// for access tokens and a long-lived one for refresh tokens, each
// with its own secret.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec builds a codec from a signing secret and a token lifetime.
func NewCodec(secret string, ttl time.Duration) *Codec {
	return &Codec{secret: []byte(secret), ttl: ttl}
}

// Sign stamps exp/iat onto the supplied claims and returns the signed
// HS256 token.  The claims map is mutated in place.
func (c *Codec) Sign(claims jwt.MapClaims) (string, error) {
	now := time.Now().UTC()
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(c.ttl).Unix()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

// Verify parses and validates a token, returning its claims.  Every
// failure mode surfaces as ErrInvalidToken; verification never panics.
func (c *Codec) Verify(raw string) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Uint64Claim extracts a numeric claim.  JSON decoding turns numbers
// into float64 and some issuers encode them as strings, so both forms
// are accepted.
func Uint64Claim(claims jwt.MapClaims, key string) (uint64, bool) {
	switch v := claims[key].(type) {
	case float64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// RandomHex returns n bytes of cryptographically secure randomness as
// a hex string.  Used for opaque recovery tokens.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
