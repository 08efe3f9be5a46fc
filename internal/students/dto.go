package students

const (
	DateLayout       = "2006-01-02"
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

type CreateStudentRequest struct {
	Email            string  `json:"email" binding:"required"`
	FullName         string  `json:"full_name" binding:"required"`
	Password         string  `json:"password" binding:"required"`
	Phone            *string `json:"phone,omitempty"`
	EmergencyContact *string `json:"emergency_contact,omitempty"`
	JoinedOn         *string `json:"joined_on,omitempty"` // YYYY-MM-DD, defaults to today
}

// StudentResponse carries decrypted PII; only returned to authorized viewers
// (admin zone, or the student's own portal view).
type StudentResponse struct {
	AdmissionNumber  string `json:"admission_number"`
	Email            string `json:"email"`
	FullName         string `json:"full_name"`
	Phone            string `json:"phone,omitempty"`
	EmergencyContact string `json:"emergency_contact,omitempty"`
	JoinedOn         string `json:"joined_on"`
}

// StudentSummary is the list-view row. No PII.
type StudentSummary struct {
	AdmissionNumber string `json:"admission_number"`
	FullName        string `json:"full_name"`
	JoinedOn        string `json:"joined_on"`
}
