package members

import "time"

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

type ApplyRequest struct {
	FullName         string  `json:"full_name" binding:"required"`
	Email            string  `json:"email" binding:"required"`
	Password         string  `json:"password" binding:"required"`
	Phone            *string `json:"phone,omitempty"`
	EmergencyContact *string `json:"emergency_contact,omitempty"`
}

// ApplicationResponse carries decrypted PII; only the admin detail view
// receives it.
type ApplicationResponse struct {
	ULID             string     `json:"ulid"`
	FullName         string     `json:"full_name"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone,omitempty"`
	EmergencyContact string     `json:"emergency_contact,omitempty"`
	Status           Status     `json:"status"`
	AppliedAt        time.Time  `json:"applied_at"`
	DecidedAt        *time.Time `json:"decided_at,omitempty"`
	DecidedBy        *string    `json:"decided_by,omitempty"`
}

// ApplicationSummary is the list row. No PII.
type ApplicationSummary struct {
	ULID      string    `json:"ulid"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Status    Status    `json:"status"`
	AppliedAt time.Time `json:"applied_at"`
}

type ApprovalResponse struct {
	ApplicationULID string `json:"application_ulid"`
	AccountULID     string `json:"account_ulid"`
	AdmissionNumber string `json:"admission_number"`
}
