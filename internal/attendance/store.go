package attendance

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"DOJO-backend/internal/platform/db"
)

// ErrDuplicateDay surfaces the UNIQUE (student_number, attended_on) key. The
// application treats it as the conflict outcome instead of upserting.
var ErrDuplicateDay = errors.New("attendance already exists for this day")

type RecordStore interface {
	Insert(ctx context.Context, rec Attendance) (Attendance, error)
	Exists(ctx context.Context, student, on string) (bool, error)
	DeleteDay(ctx context.Context, student, on string) (int64, error)
	List(ctx context.Context, q ListQuery) ([]Attendance, int64, error)
	Stats(ctx context.Context, from, to string, limit int) ([]StatsRow, error)
}

type Store struct{ db db.DBTX }

func NewStore(conn db.DBTX) RecordStore { return &Store{db: conn} }

// Insert writes exactly one row; the unique day key rejects a second check-in
// regardless of class type. No ON DUPLICATE KEY: the conflict must surface.
func (s *Store) Insert(ctx context.Context, rec Attendance) (Attendance, error) {
	res, err := s.db.ExecContext(ctx, `
	INSERT INTO attendances (student_number, attended_on, class_type, recorded_by, clocked_at, note)
	VALUES (?, ?, ?, ?, UTC_TIMESTAMP(), ?)`,
		rec.StudentNumber, rec.AttendedOn, rec.ClassType, rec.RecordedBy, noteOrNil(rec.Note))
	if err != nil {
		if db.IsDuplicateEntryOn(err, "uq_attendance_day") {
			return Attendance{}, ErrDuplicateDay
		}
		return Attendance{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Attendance{}, err
	}

	row := s.db.QueryRowContext(ctx, `
	SELECT attendance_id, student_number, DATE_FORMAT(attended_on, '%Y-%m-%d') AS attended_on,
	       class_type, recorded_by, clocked_at, note
	FROM attendances
	WHERE attendance_id = ?`, id)
	var r attendanceRow
	if err := row.Scan(&r.AttendanceID, &r.StudentNumber, &r.AttendedOn, &r.ClassType, &r.RecordedBy, &r.ClockedAt, &r.Note); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attendance{}, ErrInternal("inserted but not found")
		}
		return Attendance{}, err
	}
	return r.toModel(), nil
}

// Exists: does the student already have a row in the day bucket.
func (s *Store) Exists(ctx context.Context, student, on string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
	SELECT 1 FROM attendances
	WHERE student_number = ? AND attended_on = ? LIMIT 1`, student, on,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) || db.IsMissingTable(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteDay: bulk delete keyed by the day bucket, not by record id.
func (s *Store) DeleteDay(ctx context.Context, student, on string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
	DELETE FROM attendances
	WHERE student_number = ? AND attended_on = ?`, student, on)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// List: dynamic WHERE + ORDER + LIMIT/OFFSET.
func (s *Store) List(ctx context.Context, q ListQuery) ([]Attendance, int64, error) {
	var (
		buf    bytes.Buffer
		args   []any
		wheres []string
	)

	buf.WriteString(`
	SELECT attendance_id, student_number, DATE_FORMAT(attended_on, '%Y-%m-%d') AS attended_on,
	       class_type, recorded_by, clocked_at, note
	FROM attendances
	`)
	if q.StudentNumber != nil && *q.StudentNumber != "" {
		wheres = append(wheres, "student_number = ?")
		args = append(args, *q.StudentNumber)
	}
	if q.ClassType != nil && *q.ClassType != "" {
		wheres = append(wheres, "class_type = ?")
		args = append(args, *q.ClassType)
	}
	if q.On != nil && *q.On != "" {
		wheres = append(wheres, "attended_on = ?")
		args = append(args, *q.On)
	} else {
		if q.From != nil && *q.From != "" {
			wheres = append(wheres, "attended_on >= ?")
			args = append(args, *q.From)
		}
		if q.To != nil && *q.To != "" {
			wheres = append(wheres, "attended_on <= ?")
			args = append(args, *q.To)
		}
	}
	if len(wheres) > 0 {
		buf.WriteString(" WHERE " + strings.Join(wheres, " AND "))
	}

	switch q.Sort {
	case SortClockedAtAsc:
		buf.WriteString(" ORDER BY clocked_at ASC, attendance_id ASC")
	case SortAttendedOnDesc:
		buf.WriteString(" ORDER BY attended_on DESC, clocked_at DESC, attendance_id DESC")
	case SortAttendedOnAsc:
		buf.WriteString(" ORDER BY attended_on ASC, clocked_at ASC, attendance_id ASC")
	default:
		buf.WriteString(" ORDER BY clocked_at DESC, attendance_id DESC")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	buf.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, q.Offset))

	rows, err := s.db.QueryContext(ctx, buf.String(), args...)
	if db.IsMissingTable(err) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Attendance
	for rows.Next() {
		var r attendanceRow
		if err := rows.Scan(&r.AttendanceID, &r.StudentNumber, &r.AttendedOn, &r.ClassType, &r.RecordedBy, &r.ClockedAt, &r.Note); err != nil {
			return nil, 0, err
		}
		out = append(out, r.toModel())
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// COUNT over the same WHERE
	var cntBuf bytes.Buffer
	cntBuf.WriteString("SELECT COUNT(*) FROM attendances")
	if len(wheres) > 0 {
		cntBuf.WriteString(" WHERE " + strings.Join(wheres, " AND "))
	}
	var total int64
	if err := s.db.QueryRowContext(ctx, cntBuf.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Stats: per-student totals over a date range (TOP N).
func (s *Store) Stats(ctx context.Context, from, to string, limit int) ([]StatsRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT student_number, COUNT(*) AS cnt
	FROM attendances
	WHERE attended_on BETWEEN ? AND ?
	GROUP BY student_number
	ORDER BY cnt DESC, student_number ASC
	LIMIT ?`, from, to, limit)
	if db.IsMissingTable(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StatsRow
	for rows.Next() {
		var row StatsRow
		if err := rows.Scan(&row.StudentNumber, &row.Count); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ===== helpers =====

func noteOrNil(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
