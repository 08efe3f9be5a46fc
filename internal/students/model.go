package students

import "time"

// Student joins the profile row with its owning account.
type Student struct {
	ID              uint64
	AdmissionNumber string
	AccountID       uint64
	AccountULID     string
	Email           string
	FullName        string
	PhoneEnc        string
	EmergencyEnc    string
	JoinedOn        string // YYYY-MM-DD
	CreatedAt       time.Time
}

// ProvisionSpec is everything needed to create an account plus its student
// profile in one transaction. PII arrives already encrypted; the password
// already hashed.
type ProvisionSpec struct {
	Email        string
	DisplayName  string
	FullName     string
	PasswordHash string
	PhoneEnc     string
	EmergencyEnc string
	JoinedOn     string // YYYY-MM-DD
}

type Provisioned struct {
	AccountULID     string
	AdmissionNumber string
}
