package members

import (
	"context"
	"errors"
	"strings"
	"time"

	"DOJO-backend/internal/platform/crypto"
	"DOJO-backend/internal/students"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	store  ApplicationStore
	cipher *crypto.FieldCipher
	loc    *time.Location
}

func NewService(store ApplicationStore, cipher *crypto.FieldCipher, loc *time.Location) *Service {
	return &Service{store: store, cipher: cipher, loc: loc}
}

// Apply files a pending application. Public endpoint: PII is width-folded,
// encrypted and the chosen password hashed before anything is stored.
func (s *Service) Apply(ctx context.Context, req ApplyRequest) (*ApplicationSummary, error) {
	fullName := students.NormalizeField(req.FullName)
	email := students.NormalizeField(req.Email)
	if fullName == "" || email == "" {
		return nil, NewInvalidArgumentError("full_name and email are required")
	}
	if !strings.Contains(email, "@") {
		return nil, NewInvalidArgumentError("email is not valid")
	}
	if len(req.Password) < 8 {
		return nil, NewInvalidArgumentError("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	app := &Application{
		ULID:         ulid.Make().String(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: string(hash),
		Status:       StatusPending,
		AppliedAt:    time.Now().In(s.loc),
	}
	if app.PhoneEnc, err = s.encryptOptional(req.Phone); err != nil {
		return nil, err
	}
	if app.EmergencyEnc, err = s.encryptOptional(req.EmergencyContact); err != nil {
		return nil, err
	}

	if err := s.store.Insert(ctx, app); err != nil {
		return nil, err
	}
	return &ApplicationSummary{
		ULID:      app.ULID,
		FullName:  app.FullName,
		Email:     app.Email,
		Status:    app.Status,
		AppliedAt: app.AppliedAt,
	}, nil
}

// Get returns the admin detail view with PII decrypted.
func (s *Service) Get(ctx context.Context, ulidStr string) (*ApplicationResponse, error) {
	app, err := s.store.GetByULID(ctx, ulidStr)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, NewNotFoundError("application not found")
	}

	phone, err := s.cipher.Decrypt(app.PhoneEnc)
	if err != nil {
		return nil, NewInternalError("could not read stored contact data")
	}
	emergency, err := s.cipher.Decrypt(app.EmergencyEnc)
	if err != nil {
		return nil, NewInternalError("could not read stored contact data")
	}

	return &ApplicationResponse{
		ULID:             app.ULID,
		FullName:         app.FullName,
		Email:            app.Email,
		Phone:            phone,
		EmergencyContact: emergency,
		Status:           app.Status,
		AppliedAt:        app.AppliedAt,
		DecidedAt:        app.DecidedAt,
		DecidedBy:        app.DecidedBy,
	}, nil
}

func (s *Service) List(ctx context.Context, statusFilter string, limit, offset int) ([]ApplicationSummary, int64, error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	var status *Status
	if statusFilter != "" {
		st := Status(statusFilter)
		switch st {
		case StatusPending, StatusApproved, StatusRejected:
			status = &st
		default:
			return nil, 0, NewInvalidArgumentError("status must be pending, approved or rejected")
		}
	}

	rows, total, err := s.store.List(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ApplicationSummary, 0, len(rows))
	for i := range rows {
		out = append(out, ApplicationSummary{
			ULID:      rows[i].ULID,
			FullName:  rows[i].FullName,
			Email:     rows[i].Email,
			Status:    rows[i].Status,
			AppliedAt: rows[i].AppliedAt,
		})
	}
	return out, total, nil
}

// Approve transitions PENDING to APPROVED and provisions the student in the
// same transaction. decidedBy is the approving staff member's account ULID.
func (s *Service) Approve(ctx context.Context, ulidStr, decidedBy string) (*ApprovalResponse, error) {
	now := time.Now().In(s.loc)
	p, err := s.store.Approve(ctx, ulidStr, decidedBy, now.Format("2006-01-02"), now.Year())
	if err != nil {
		switch {
		case errors.Is(err, ErrApplicationNotFound):
			return nil, NewNotFoundError("application not found")
		case errors.Is(err, ErrAlreadyDecided):
			return nil, NewConflictError("application already decided")
		case errors.Is(err, students.ErrEmailTaken):
			return nil, NewConflictError("an account with this email already exists")
		case errors.Is(err, students.ErrAllocationRace):
			return nil, NewInternalError("could not allocate admission number")
		default:
			return nil, err
		}
	}
	return &ApprovalResponse{
		ApplicationULID: ulidStr,
		AccountULID:     p.AccountULID,
		AdmissionNumber: p.AdmissionNumber,
	}, nil
}

func (s *Service) Reject(ctx context.Context, ulidStr, decidedBy string) error {
	err := s.store.Reject(ctx, ulidStr, decidedBy)
	switch {
	case errors.Is(err, ErrApplicationNotFound):
		return NewNotFoundError("application not found")
	case errors.Is(err, ErrAlreadyDecided):
		return NewConflictError("application already decided")
	default:
		return err
	}
}

func (s *Service) encryptOptional(v *string) (string, error) {
	if v == nil {
		return "", nil
	}
	return s.cipher.Encrypt(students.NormalizeField(*v))
}
