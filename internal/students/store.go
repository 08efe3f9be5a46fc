package students

import (
	"context"
	"database/sql"
	"errors"

	"DOJO-backend/internal/platform/auth"
	"DOJO-backend/internal/platform/db"

	"github.com/oklog/ulid/v2"
)

var ErrEmailTaken = errors.New("email already registered")

type StudentStore interface {
	Provision(ctx context.Context, spec ProvisionSpec, year int) (*Provisioned, error)
	GetByNumber(ctx context.Context, number string) (*Student, error)
	GetByAccountULID(ctx context.Context, accountULID string) (*Student, error)
	List(ctx context.Context, limit, offset int) ([]Student, int64, error)
}

type SQLStore struct{ db *sql.DB }

func NewStore(conn *sql.DB) StudentStore {
	return &SQLStore{db: conn}
}

// ProvisionTx creates the account, allocates the admission number and inserts
// the profile inside the caller's transaction. All three commit or none do.
func ProvisionTx(ctx context.Context, tx db.DBTX, spec ProvisionSpec, year int) (*Provisioned, error) {
	acct := &auth.Account{
		ULID:         ulid.Make().String(),
		Email:        spec.Email,
		DisplayName:  spec.DisplayName,
		PasswordHash: spec.PasswordHash,
		Role:         auth.RoleStudent,
	}
	if err := auth.InsertAccount(ctx, tx, acct); err != nil {
		if db.IsDuplicateEntryOn(err, "email") {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	number, err := NextAdmissionNumber(ctx, tx, year)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO students (admission_number, account_id, full_name, phone_enc, emergency_enc, joined_on, created_at)
VALUES (?, ?, ?, ?, ?, ?, NOW(6))`,
		number, acct.ID, spec.FullName, nullable(spec.PhoneEnc), nullable(spec.EmergencyEnc), spec.JoinedOn)
	if err != nil {
		if db.IsDuplicateEntryOn(err, "admission_number") {
			return nil, ErrAllocationRace
		}
		return nil, err
	}

	return &Provisioned{AccountULID: acct.ULID, AdmissionNumber: number}, nil
}

// retryAllocation reports errors worth one transaction restart: the
// admission-number key fired, or InnoDB rolled the transaction back on lock
// contention. The latter is how the race presents on an empty scope: the
// locking COUNT takes only gap locks, which are compatible between
// transactions, so two first-of-the-year provisions both reach the INSERT
// and one is killed with a deadlock (1213) before the unique key can fire.
func retryAllocation(err error) bool {
	return errors.Is(err, ErrAllocationRace) || db.IsLockContention(err)
}

// Provision wraps ProvisionTx in its own transaction and retries once when
// the allocation race fires. The retry restarts the whole transaction so the
// count is re-read.
func (s *SQLStore) Provision(ctx context.Context, spec ProvisionSpec, year int) (*Provisioned, error) {
	attempt := func() (*Provisioned, error) {
		var out *Provisioned
		err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
			p, err := ProvisionTx(ctx, tx, spec, year)
			if err != nil {
				return err
			}
			out = p
			return nil
		})
		return out, err
	}

	out, err := attempt()
	if retryAllocation(err) {
		out, err = attempt()
	}
	if db.IsLockContention(err) {
		err = ErrAllocationRace
	}
	return out, err
}

const studentColumns = `
st.student_id, st.admission_number, st.account_id, a.account_ulid, a.email,
st.full_name, COALESCE(st.phone_enc, ''), COALESCE(st.emergency_enc, ''),
DATE_FORMAT(st.joined_on, '%Y-%m-%d'), st.created_at`

const studentFrom = `
FROM students st
JOIN accounts a ON a.account_id = st.account_id`

func scanStudent(row *sql.Row) (*Student, error) {
	var st Student
	err := row.Scan(&st.ID, &st.AdmissionNumber, &st.AccountID, &st.AccountULID, &st.Email,
		&st.FullName, &st.PhoneEnc, &st.EmergencyEnc, &st.JoinedOn, &st.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) || db.IsMissingTable(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *SQLStore) GetByNumber(ctx context.Context, number string) (*Student, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+studentColumns+studentFrom+`
WHERE st.admission_number = ?
LIMIT 1`, number)
	return scanStudent(row)
}

func (s *SQLStore) GetByAccountULID(ctx context.Context, accountULID string) (*Student, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+studentColumns+studentFrom+`
WHERE a.account_ulid = ?
LIMIT 1`, accountULID)
	return scanStudent(row)
}

func (s *SQLStore) List(ctx context.Context, limit, offset int) ([]Student, int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+studentColumns+studentFrom+`
ORDER BY st.admission_number ASC
LIMIT ? OFFSET ?`, limit, offset)
	if db.IsMissingTable(err) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Student
	for rows.Next() {
		var st Student
		if err := rows.Scan(&st.ID, &st.AdmissionNumber, &st.AccountID, &st.AccountULID, &st.Email,
			&st.FullName, &st.PhoneEnc, &st.EmergencyEnc, &st.JoinedOn, &st.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
