package members

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Application is a prospective member's pending-approval record. PII columns
// hold encoded ciphertext; approved and rejected are terminal.
type Application struct {
	ID           uint64
	ULID         string
	FullName     string
	Email        string
	PasswordHash string
	PhoneEnc     string
	EmergencyEnc string
	Status       Status
	AppliedAt    time.Time
	DecidedAt    *time.Time
	DecidedBy    *string
}
