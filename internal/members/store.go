package members

import (
	"context"
	"database/sql"
	"errors"

	"DOJO-backend/internal/platform/db"
	"DOJO-backend/internal/students"
)

var (
	ErrApplicationNotFound = errors.New("application not found")
	// ErrAlreadyDecided fires when approving or rejecting anything that is
	// no longer pending. Terminal states never transition.
	ErrAlreadyDecided = errors.New("application already decided")
)

type ApplicationStore interface {
	Insert(ctx context.Context, app *Application) error
	GetByULID(ctx context.Context, ulid string) (*Application, error)
	List(ctx context.Context, status *Status, limit, offset int) ([]Application, int64, error)
	// Approve provisions the actor, admission number and student profile and
	// marks the application approved, all in one transaction.
	Approve(ctx context.Context, ulid, decidedBy, joinedOn string, year int) (*students.Provisioned, error)
	Reject(ctx context.Context, ulid, decidedBy string) error
}

type SQLStore struct{ db *sql.DB }

func NewStore(conn *sql.DB) ApplicationStore {
	return &SQLStore{db: conn}
}

func (s *SQLStore) Insert(ctx context.Context, app *Application) error {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO member_applications
  (application_ulid, full_name, email, password_hash, phone_enc, emergency_enc, status, applied_at)
VALUES (?, ?, ?, ?, ?, ?, ?, NOW(6))`,
		app.ULID, app.FullName, app.Email, app.PasswordHash,
		nullable(app.PhoneEnc), nullable(app.EmergencyEnc), string(app.Status))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	app.ID = uint64(id)
	return nil
}

const applicationColumns = `
application_id, application_ulid, full_name, email, password_hash,
COALESCE(phone_enc, ''), COALESCE(emergency_enc, ''), status, applied_at, decided_at, decided_by`

func scanApplication(sc interface{ Scan(...any) error }) (*Application, error) {
	var a Application
	var status string
	err := sc.Scan(&a.ID, &a.ULID, &a.FullName, &a.Email, &a.PasswordHash,
		&a.PhoneEnc, &a.EmergencyEnc, &status, &a.AppliedAt, &a.DecidedAt, &a.DecidedBy)
	if err != nil {
		return nil, err
	}
	a.Status = Status(status)
	return &a, nil
}

func (s *SQLStore) GetByULID(ctx context.Context, ulid string) (*Application, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+applicationColumns+`
FROM member_applications
WHERE application_ulid = ?
LIMIT 1`, ulid)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) || db.IsMissingTable(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return app, nil
}

func (s *SQLStore) List(ctx context.Context, status *Status, limit, offset int) ([]Application, int64, error) {
	where := ""
	args := []any{}
	if status != nil {
		where = " WHERE status = ?"
		args = append(args, string(*status))
	}

	query := `SELECT ` + applicationColumns + ` FROM member_applications` + where +
		` ORDER BY applied_at DESC, application_id DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if db.IsMissingTable(err) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM member_applications`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Approve locks the application row, re-checks it is still pending, then
// provisions account + admission number + profile and flips the status. The
// whole thing commits or rolls back together; the admission-number race is
// retried once by restarting the transaction.
func (s *SQLStore) Approve(ctx context.Context, ulid, decidedBy, joinedOn string, year int) (*students.Provisioned, error) {
	attempt := func() (*students.Provisioned, error) {
		var out *students.Provisioned
		err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
			row := tx.QueryRowContext(ctx, `
SELECT `+applicationColumns+`
FROM member_applications
WHERE application_ulid = ?
FOR UPDATE`, ulid)
			app, err := scanApplication(row)
			if errors.Is(err, sql.ErrNoRows) {
				return ErrApplicationNotFound
			}
			if err != nil {
				return err
			}
			if app.Status != StatusPending {
				return ErrAlreadyDecided
			}

			p, err := students.ProvisionTx(ctx, tx, students.ProvisionSpec{
				Email:        app.Email,
				DisplayName:  app.FullName,
				FullName:     app.FullName,
				PasswordHash: app.PasswordHash,
				PhoneEnc:     app.PhoneEnc,
				EmergencyEnc: app.EmergencyEnc,
				JoinedOn:     joinedOn,
			}, year)
			if err != nil {
				return err
			}

			if _, err := tx.ExecContext(ctx, `
UPDATE member_applications
SET status = ?, decided_at = NOW(6), decided_by = ?
WHERE application_id = ?`, string(StatusApproved), decidedBy, app.ID); err != nil {
				return err
			}
			out = p
			return nil
		})
		return out, err
	}

	// Lock contention is the allocation race presenting on an empty scope:
	// gap locks from the counting SELECT are compatible, so the deadlock
	// fires at the INSERT instead of the unique key.
	out, err := attempt()
	if errors.Is(err, students.ErrAllocationRace) || db.IsLockContention(err) {
		out, err = attempt()
	}
	if db.IsLockContention(err) {
		err = students.ErrAllocationRace
	}
	return out, err
}

func (s *SQLStore) Reject(ctx context.Context, ulid, decidedBy string) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		var status string
		err := tx.QueryRowContext(ctx, `
SELECT status FROM member_applications
WHERE application_ulid = ?
FOR UPDATE`, ulid).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrApplicationNotFound
		}
		if err != nil {
			return err
		}
		if Status(status) != StatusPending {
			return ErrAlreadyDecided
		}
		_, err = tx.ExecContext(ctx, `
UPDATE member_applications
SET status = ?, decided_at = NOW(6), decided_by = ?
WHERE application_ulid = ?`, string(StatusRejected), decidedBy, ulid)
		return err
	})
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
