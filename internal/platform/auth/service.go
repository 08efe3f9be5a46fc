package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin   = "admin"
	RoleSensei  = "sensei"
	RoleStudent = "student"
)

func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleSensei, RoleStudent:
		return true
	default:
		return false
	}
}

var (
	// ErrAuthFailed is returned for unknown email, wrong password and
	// disabled accounts alike, so callers cannot enumerate accounts.
	ErrAuthFailed    = errors.New("authentication failed")
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
	ErrInvalidRole   = errors.New("role must be sensei or admin")
)

// Claims is the session payload. Tokens are stateless: expiry is the only
// revocation mechanism.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Service struct {
	store  AccountStore
	secret []byte
	ttl    time.Duration
}

// NewService takes the signing secret from startup config; there is no
// package-level secret.
func NewService(store AccountStore, secret []byte, ttl time.Duration) *Service {
	return &Service{store: store, secret: secret, ttl: ttl}
}

// dummyHash is a valid bcrypt hash at DefaultCost, compared against on the
// unknown-email path so response timing does not reveal whether the account
// exists.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// Login verifies credentials and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *Account, error) {
	acct, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}

	hash := dummyHash
	if acct != nil {
		hash = []byte(acct.PasswordHash)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || acct == nil || acct.IsDisabled {
		return "", nil, ErrAuthFailed
	}

	token, err := s.IssueToken(acct)
	if err != nil {
		return "", nil, err
	}
	return token, acct, nil
}

func (s *Service) IssueToken(a *Account) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: a.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ULID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseToken validates signature, algorithm and expiry. Any failure means the
// caller is treated as anonymous.
func (s *Service) ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrAuthFailed
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" || !ValidRole(claims.Role) {
		return nil, ErrAuthFailed
	}
	return claims, nil
}

func (s *Service) TokenTTL() time.Duration { return s.ttl }

// RegisterStaff creates a sensei or admin account. Admin-only operation,
// enforced at the route layer.
func (s *Service) RegisterStaff(ctx context.Context, email, displayName, password, role string) (*Account, error) {
	if role != RoleSensei && role != RoleAdmin {
		return nil, ErrInvalidRole
	}
	exists, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists != nil {
		return nil, ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	acct := &Account{
		ULID:         ulid.Make().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.store.Create(ctx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

func (s *Service) ListStaff(ctx context.Context) ([]Account, error) {
	return s.store.List(ctx)
}

// DisableAccount locks an account out. Existing tokens stay valid until
// expiry; login is refused from the next attempt on.
func (s *Service) DisableAccount(ctx context.Context, ulidStr string) error {
	n, err := s.store.Disable(ctx, ulidStr)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
