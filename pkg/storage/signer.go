package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Token errors returned by Parse.
var (
	ErrTokenMalformed = errors.New("malformed download token")
	ErrTokenSignature = errors.New("invalid download token signature")
	ErrTokenExpired   = errors.New("download token expired")
)

// Signer issues download tokens binding an id and a stored path to an expiry.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner constructs a signer. A non-positive ttl defaults to 24h.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock replaces the time source.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	if now != nil {
		s.now = now
	}
	return s
}

// Generate returns a token of the form id.expiry.path.signature.
func (s *Signer) Generate(id, relPath string) (string, time.Time, error) {
	if id == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("id and path required")
	}
	if strings.Contains(id, ".") {
		return "", time.Time{}, fmt.Errorf("id %q must not contain '.'", id)
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	path := base64.RawURLEncoding.EncodeToString([]byte(relPath))
	return strings.Join([]string{id, exp, path, s.sign(id, exp, path)}, "."), expiresAt, nil
}

// Parse verifies a token and returns the id and path it carries.
func (s *Signer) Parse(token string) (id, relPath string, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", ErrTokenMalformed
	}
	id, exp, path, signature := parts[0], parts[1], parts[2], parts[3]
	if !hmac.Equal([]byte(s.sign(id, exp, path)), []byte(signature)) {
		return "", "", ErrTokenSignature
	}
	unix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return "", "", ErrTokenMalformed
	}
	raw, err := base64.RawURLEncoding.DecodeString(path)
	if err != nil {
		return "", "", ErrTokenMalformed
	}
	if s.now().After(time.Unix(unix, 0)) {
		return "", "", ErrTokenExpired
	}
	return id, string(raw), nil
}

func (s *Signer) sign(id, exp, path string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(id + "|" + exp + "|" + path))
	return hex.EncodeToString(mac.Sum(nil))
}
