package ratelimit

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type cookieClaims struct {
	Count       int    `json:"count"`
	Date        string `json:"date"`
	Fingerprint string `json:"fp"`
	jwt.RegisteredClaims
}

// CookieCodec signs quota records into an HS256 token for the client cookie.
type CookieCodec struct {
	secret []byte
	now    func() time.Time
}

func NewCookieCodec(secret []byte, now func() time.Time) *CookieCodec {
	if now == nil {
		now = time.Now
	}
	return &CookieCodec{secret: secret, now: now}
}

func (c *CookieCodec) Encode(rec Record, ttl time.Duration) (string, error) {
	now := c.now()
	claims := &cookieClaims{
		Count:       rec.Count,
		Date:        rec.Date,
		Fingerprint: rec.Fingerprint,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing rate limit cookie: %w", err)
	}
	return token, nil
}

// Decode verifies raw and returns the record it carries. Any malformed,
// expired or wrongly signed value reports ok=false.
func (c *CookieCodec) Decode(raw string) (Record, bool) {
	if raw == "" {
		return Record{}, false
	}
	claims := &cookieClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(c.now))
	if err != nil || !token.Valid {
		return Record{}, false
	}
	if claims.Count < 0 {
		return Record{}, false
	}
	return Record{Count: claims.Count, Date: claims.Date, Fingerprint: claims.Fingerprint}, true
}
