package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"DOJO-backend/internal/platform/db"
)

// Account is the portal actor: one row per admin, sensei or student login.
type Account struct {
	ID           uint64
	ULID         string
	Email        string
	DisplayName  string
	PasswordHash string
	Role         string
	IsDisabled   bool
	CreatedAt    time.Time
}

type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByULID(ctx context.Context, ulid string) (*Account, error)
	Create(ctx context.Context, a *Account) error
	List(ctx context.Context) ([]Account, error)
	Disable(ctx context.Context, ulid string) (int64, error)
}

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) AccountStore {
	return &Store{db: conn}
}

const accountColumns = `account_id, account_ulid, email, display_name, password_hash, role, is_disabled, created_at`

func scanAccount(row *sql.Row) (*Account, error) {
	var a Account
	var disabled int
	err := row.Scan(&a.ID, &a.ULID, &a.Email, &a.DisplayName, &a.PasswordHash, &a.Role, &disabled, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if db.IsMissingTable(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.IsDisabled = disabled != 0
	return &a, nil
}

// GetByEmail is an exact match on the stored form; no case folding.
func (s *Store) GetByEmail(ctx context.Context, email string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+accountColumns+`
FROM accounts
WHERE email = ?
LIMIT 1`, email)
	return scanAccount(row)
}

func (s *Store) GetByULID(ctx context.Context, ulid string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+accountColumns+`
FROM accounts
WHERE account_ulid = ?
LIMIT 1`, ulid)
	return scanAccount(row)
}

// Create maps the email unique key to ErrAlreadyExists, closing the gap
// between the service's lookup and the insert.
func (s *Store) Create(ctx context.Context, a *Account) error {
	err := InsertAccount(ctx, s.db, a)
	if db.IsDuplicateEntry(err) {
		return ErrAlreadyExists
	}
	return err
}

// InsertAccount writes an account through any DBTX so provisioning
// transactions can create the account and the student profile atomically.
func InsertAccount(ctx context.Context, q db.DBTX, a *Account) error {
	res, err := q.ExecContext(ctx, `
INSERT INTO accounts (account_ulid, email, display_name, password_hash, role, is_disabled, created_at)
VALUES (?, ?, ?, ?, ?, 0, NOW(6))`,
		a.ULID, a.Email, a.DisplayName, a.PasswordHash, a.Role)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

func (s *Store) List(ctx context.Context) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+accountColumns+`
FROM accounts
WHERE role IN (?, ?)
ORDER BY created_at ASC`, RoleAdmin, RoleSensei)
	if db.IsMissingTable(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var a Account
		var disabled int
		if err := rows.Scan(&a.ID, &a.ULID, &a.Email, &a.DisplayName, &a.PasswordHash, &a.Role, &disabled, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.IsDisabled = disabled != 0
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) Disable(ctx context.Context, ulid string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE accounts SET is_disabled = 1 WHERE account_ulid = ?`, ulid)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
