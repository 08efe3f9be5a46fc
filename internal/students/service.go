package students

import (
	"context"
	"errors"
	"time"

	"DOJO-backend/internal/platform/crypto"

	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	store  StudentStore
	cipher *crypto.FieldCipher
	loc    *time.Location
}

func NewService(store StudentStore, cipher *crypto.FieldCipher, loc *time.Location) *Service {
	return &Service{store: store, cipher: cipher, loc: loc}
}

// Create provisions a student directly (admin screen). Account, admission
// number and profile are created in one transaction by the store.
func (s *Service) Create(ctx context.Context, req CreateStudentRequest) (*StudentResponse, error) {
	email := NormalizeField(req.Email)
	fullName := NormalizeField(req.FullName)
	if email == "" || fullName == "" || req.Password == "" {
		return nil, NewInvalidArgumentError("email, full_name and password are required")
	}
	// Same minimum as the public application form.
	if len(req.Password) < 8 {
		return nil, NewInvalidArgumentError("password must be at least 8 characters")
	}

	now := time.Now().In(s.loc)
	joinedOn := now.Format(DateLayout)
	if req.JoinedOn != nil && *req.JoinedOn != "" {
		d, err := time.ParseInLocation(DateLayout, *req.JoinedOn, s.loc)
		if err != nil {
			return nil, NewInvalidArgumentError("joined_on must be YYYY-MM-DD")
		}
		joinedOn = d.Format(DateLayout)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	spec := ProvisionSpec{
		Email:        email,
		DisplayName:  fullName,
		FullName:     fullName,
		PasswordHash: string(hash),
		JoinedOn:     joinedOn,
	}
	// PII is encrypted at the write boundary; the store never sees plaintext.
	if spec.PhoneEnc, err = s.encryptOptional(req.Phone); err != nil {
		return nil, err
	}
	if spec.EmergencyEnc, err = s.encryptOptional(req.EmergencyContact); err != nil {
		return nil, err
	}

	p, err := s.store.Provision(ctx, spec, now.Year())
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, NewConflictError("email already registered")
		}
		if errors.Is(err, ErrAllocationRace) {
			// Retried once already; give up without leaking internals.
			return nil, NewInternalError("could not allocate admission number")
		}
		return nil, err
	}

	return &StudentResponse{
		AdmissionNumber:  p.AdmissionNumber,
		Email:            email,
		FullName:         fullName,
		Phone:            NormalizeField(derefOrEmpty(req.Phone)),
		EmergencyContact: NormalizeField(derefOrEmpty(req.EmergencyContact)),
		JoinedOn:         joinedOn,
	}, nil
}

func (s *Service) Get(ctx context.Context, number string) (*StudentResponse, error) {
	st, err := s.store.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, NewNotFoundError("student not found")
	}
	return s.toResponse(st)
}

// SelfView resolves the caller's own profile for the portal. Decryption only
// happens here and in Get, after the gate has passed the viewer.
func (s *Service) SelfView(ctx context.Context, accountULID string) (*StudentResponse, error) {
	st, err := s.store.GetByAccountULID(ctx, accountULID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, NewNotFoundError("no student profile for this account")
	}
	return s.toResponse(st)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]StudentSummary, int64, error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	rows, total, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]StudentSummary, 0, len(rows))
	for i := range rows {
		out = append(out, StudentSummary{
			AdmissionNumber: rows[i].AdmissionNumber,
			FullName:        rows[i].FullName,
			JoinedOn:        rows[i].JoinedOn,
		})
	}
	return out, total, nil
}

func (s *Service) toResponse(st *Student) (*StudentResponse, error) {
	phone, err := s.cipher.Decrypt(st.PhoneEnc)
	if err != nil {
		return nil, NewInternalError("could not read stored contact data")
	}
	emergency, err := s.cipher.Decrypt(st.EmergencyEnc)
	if err != nil {
		return nil, NewInternalError("could not read stored contact data")
	}
	return &StudentResponse{
		AdmissionNumber:  st.AdmissionNumber,
		Email:            st.Email,
		FullName:         st.FullName,
		Phone:            phone,
		EmergencyContact: emergency,
		JoinedOn:         st.JoinedOn,
	}, nil
}

func (s *Service) encryptOptional(v *string) (string, error) {
	if v == nil {
		return "", nil
	}
	return s.cipher.Encrypt(NormalizeField(*v))
}

func derefOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
