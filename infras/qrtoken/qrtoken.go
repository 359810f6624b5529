// Package qrtoken issues and verifies the self-contained check-in tokens printed as QR codes.
//
// A token is base64url(claims JSON) + "." + hex(HMAC-SHA256(secret, claims JSON)).
// Anyone holding the secret can verify a token offline; no storage lookup is needed.
package qrtoken

//go:generate go run go.uber.org/mock/mockgen -source=./qrtoken.go -destination=./mocks/qrtoken_mock.go -package=mocks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"parking/config"
	"parking/shared/timezone"
	"strings"
	"time"
)

const (
	separator = "."

	// IntentCheckIn marks a token that authorizes the check-in transition.
	IntentCheckIn = "checkin"
)

// Rejection reasons. Their messages are surfaced to callers as "invalid_qr:<reason>".
var (
	ErrMalformed    = errors.New("malformed")
	ErrBadSignature = errors.New("bad_signature")
	ErrDecode       = errors.New("decode_error")
	ErrExpired      = errors.New("expired")

	ErrMissingSecret = errors.New("check-in token secret is not configured")
)

var encoding = base64.RawURLEncoding.Strict()

// Claims is the token payload. Field order is fixed so serialization is deterministic.
type Claims struct {
	BookingID string `json:"b"`
	UserID    string `json:"u"`
	LotID     string `json:"l"`
	SlotID    string `json:"s"`
	Intent    string `json:"t"`
	IssuedAt  int64  `json:"iat,omitempty"`
}

type Codec interface {
	Issue(claims Claims) (string, error)
	Verify(token string) (Claims, error)
}

type codecImpl struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// New builds a codec from the check-in configuration. A missing secret is an error:
// the service must not start accepting check-ins without it.
func New(cfg *config.Config) (Codec, error) {
	return NewWithSecret(cfg.CheckIn.Secret, time.Duration(cfg.CheckIn.TokenTTLMinutes)*time.Minute)
}

// NewWithSecret builds a codec for secret. A positive ttl stamps tokens with their issue
// time and rejects them once they are older than ttl.
func NewWithSecret(secret string, ttl time.Duration) (Codec, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}

	return &codecImpl{
		secret: []byte(secret),
		ttl:    ttl,
		now:    timezone.Now,
	}, nil
}

// Issue serializes claims and signs them.
func (c *codecImpl) Issue(claims Claims) (string, error) {
	if c.ttl > 0 && claims.IssuedAt == 0 {
		claims.IssuedAt = c.now().Unix()
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("failed to encode claims: %w", err)
	}

	return encoding.EncodeToString(payload) + separator + c.sign(payload), nil
}

// Verify checks the signature in constant time and returns the decoded claims.
func (c *codecImpl) Verify(token string) (Claims, error) {
	var claims Claims

	encoded, signature, found := strings.Cut(token, separator)
	if !found || encoded == "" || signature == "" || strings.Contains(signature, separator) {
		return claims, ErrMalformed
	}

	payload, err := encoding.DecodeString(encoded)
	if err != nil {
		return claims, ErrMalformed
	}

	// Compared as hex text: only the canonical lowercase encoding verifies.
	if !hmac.Equal([]byte(signature), []byte(c.sign(payload))) {
		return claims, ErrBadSignature
	}

	if err = json.Unmarshal(payload, &claims); err != nil || claims.BookingID == "" {
		return Claims{}, ErrDecode
	}

	if c.ttl > 0 {
		issuedAt := time.Unix(claims.IssuedAt, 0)
		if claims.IssuedAt == 0 || c.now().Sub(issuedAt) > c.ttl {
			return Claims{}, ErrExpired
		}
	}

	return claims, nil
}

func (c *codecImpl) sign(payload []byte) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(payload)

	return hex.EncodeToString(mac.Sum(nil))
}
