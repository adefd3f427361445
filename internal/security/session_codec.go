package security

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"fluvex/internal/domain"
)

// SessionMaxAge is how long an issued session token stays valid.
const SessionMaxAge = 7 * 24 * time.Hour

const (
	fieldSeparator     = ":"
	signatureSeparator = "."
	payloadFields      = 3
)

var ErrInvalidIdentity = errors.New("session identity must be non-empty and must not contain ':'")

// SessionCodec issues and checks stateless session tokens.
//
// Wire format:
//
//	base64url("{subject}:{tenant}:{issued_at_ms}.{hex_hmac_sha256}")
//
// There is no server-side session store and no revocation: a token is valid
// until it ages out.
type SessionCodec struct {
	signer *Signer
	maxAge time.Duration
	now    func() time.Time
}

// CodecOption configures a SessionCodec.
type CodecOption func(*SessionCodec)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) CodecOption {
	return func(c *SessionCodec) {
		c.now = now
	}
}

// WithMaxAge overrides SessionMaxAge.
func WithMaxAge(d time.Duration) CodecOption {
	return func(c *SessionCodec) {
		c.maxAge = d
	}
}

// NewSessionCodec creates a codec that signs with signer.
func NewSessionCodec(signer *Signer, opts ...CodecOption) *SessionCodec {
	c := &SessionCodec{
		signer: signer,
		maxAge: SessionMaxAge,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxAge returns the validity window of issued tokens.
func (c *SessionCodec) MaxAge() time.Duration {
	return c.maxAge
}

// Encode signs subjectID and tenantID together with the current time.
func (c *SessionCodec) Encode(subjectID, tenantID string) (string, error) {
	if !validIdentityField(subjectID) || !validIdentityField(tenantID) {
		return "", ErrInvalidIdentity
	}

	issuedAt := strconv.FormatInt(c.now().UnixMilli(), 10)
	payload := subjectID + fieldSeparator + tenantID + fieldSeparator + issuedAt
	signed := payload + signatureSeparator + c.signer.Sign(payload)

	return base64.RawURLEncoding.EncodeToString([]byte(signed)), nil
}

// Decode verifies token and returns its payload. Malformed, tampered and
// expired tokens all yield (nil, false) so callers cannot tell them apart.
func (c *SessionCodec) Decode(token string) (*domain.SessionPayload, bool) {
	raw, ok := decodeBase64URL(token)
	if !ok {
		return nil, false
	}

	idx := strings.LastIndex(raw, signatureSeparator)
	if idx <= 0 || idx == len(raw)-1 {
		return nil, false
	}
	payload, signature := raw[:idx], raw[idx+1:]

	if !c.signer.Verify(payload, signature) {
		return nil, false
	}

	fields := strings.Split(payload, fieldSeparator)
	if len(fields) != payloadFields {
		return nil, false
	}
	for _, f := range fields {
		if f == "" {
			return nil, false
		}
	}

	issuedMs, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return nil, false
	}

	// Tokens dated in the future are accepted to tolerate clock skew between nodes.
	age := c.now().UnixMilli() - issuedMs
	if age > c.maxAge.Milliseconds() {
		return nil, false
	}

	return &domain.SessionPayload{
		SubjectID: fields[0],
		TenantID:  fields[1],
		IssuedAt:  time.UnixMilli(issuedMs),
	}, true
}

func validIdentityField(s string) bool {
	return s != "" && !strings.Contains(s, fieldSeparator)
}

// decodeBase64URL accepts both the unpadded form Encode produces and the
// padded form some clients re-encode to. Trailing bits must be zero so that
// every distinct token string maps to distinct bytes.
func decodeBase64URL(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	if b, err := base64.RawURLEncoding.Strict().DecodeString(s); err == nil {
		return string(b), true
	}
	if b, err := base64.URLEncoding.Strict().DecodeString(s); err == nil {
		return string(b), true
	}
	return "", false
}
