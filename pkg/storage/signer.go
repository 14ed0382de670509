package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrTokenMalformed = errors.New("malformed download token")
	ErrTokenSignature = errors.New("download token signature mismatch")
	ErrTokenExpired   = errors.New("download token expired")
)

// Grant is the content of a download token.
type Grant struct {
	JobID     string
	Path      string
	ExpiresAt time.Time
}

// Signer issues HMAC-SHA256 download tokens of the form payload.signature,
// both parts base64url encoded.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner returns a signer whose tokens live for ttl (24h when <= 0).
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign issues a token granting access to path for the given job.
func (s *Signer) Sign(jobID, path string) (string, Grant, error) {
	if jobID == "" || path == "" {
		return "", Grant{}, errors.New("job id and path are required")
	}
	if len(s.secret) == 0 {
		return "", Grant{}, errors.New("signing secret is empty")
	}
	if strings.Contains(jobID, "|") {
		return "", Grant{}, fmt.Errorf("invalid job id %q", jobID)
	}

	grant := Grant{JobID: jobID, Path: path, ExpiresAt: s.now().Add(s.ttl).Truncate(time.Second)}
	payload := jobID + "|" + strconv.FormatInt(grant.ExpiresAt.Unix(), 10) + "|" + path
	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return encoded + "." + s.sign(encoded), grant, nil
}

// Verify checks the signature and, unless allowExpired, the expiry of token.
func (s *Signer) Verify(token string, allowExpired bool) (Grant, error) {
	encoded, sig, ok := strings.Cut(token, ".")
	if !ok || encoded == "" || sig == "" {
		return Grant{}, ErrTokenMalformed
	}
	if !hmac.Equal([]byte(sig), []byte(s.sign(encoded))) {
		return Grant{}, ErrTokenSignature
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Grant{}, ErrTokenMalformed
	}
	parts := strings.SplitN(string(raw), "|", 3)
	if len(parts) != 3 {
		return Grant{}, ErrTokenMalformed
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Grant{}, ErrTokenMalformed
	}

	grant := Grant{JobID: parts[0], Path: parts[2], ExpiresAt: time.Unix(exp, 0)}
	if !allowExpired && s.now().After(grant.ExpiresAt) {
		return grant, ErrTokenExpired
	}
	return grant, nil
}

func (s *Signer) sign(encoded string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
