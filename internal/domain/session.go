package domain

import "time"

// SessionPayload is the identity carried by a signed session token.
// The token only proves that the pair was authentic and fresh when it was
// checked; whether the user and company still exist is the store's concern.
type SessionPayload struct {
	SubjectID string    `json:"subject_id"`
	TenantID  string    `json:"tenant_id"`
	IssuedAt  time.Time `json:"issued_at"`
}
