package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ===== Error model (members/students と同型) =====

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrConflict(msg string) *APIError { return &APIError{Code: CodeConflict, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return 400
		case CodeNotFound:
			return 404
		case CodeConflict:
			return 409
		default:
			return 500
		}
	}
	return 500
}

// ===== Service =====

type Service struct {
	store RecordStore
	loc   *time.Location
}

// NewService takes the reference timezone used for day bucketing.
func NewService(store RecordStore, loc *time.Location) *Service {
	return &Service{store: store, loc: loc}
}

// Record creates at most one attendance per (student, day). A second check-in
// on the same day is a CONFLICT whatever the class type; the unique key in
// the store makes the check race-safe.
func (s *Service) Record(ctx context.Context, recordedBy string, in CreateAttendanceRequest) (AttendanceResponse, error) {
	if in.StudentNumber == "" {
		return AttendanceResponse{}, ErrInvalid("student_number is required")
	}
	if in.ClassType == "" {
		return AttendanceResponse{}, ErrInvalid("class_type is required")
	}

	on := s.today()
	if in.AttendedOn != nil && *in.AttendedOn != "" {
		parsed, err := s.parseOn(*in.AttendedOn)
		if err != nil {
			return AttendanceResponse{}, ErrInvalid("attended_on must be YYYY-MM-DD or 'today'")
		}
		on = parsed
	}

	rec := Attendance{
		StudentNumber: in.StudentNumber,
		AttendedOn:    on,
		ClassType:     in.ClassType,
		RecordedBy:    recordedBy,
		Note:          in.Note,
	}
	created, err := s.store.Insert(ctx, rec)
	if err != nil {
		if errors.Is(err, ErrDuplicateDay) {
			return AttendanceResponse{}, ErrConflict("attendance already recorded for " + on)
		}
		return AttendanceResponse{}, err
	}
	return created.toDTO(), nil
}

// Exists reports whether the student already has a record on the given day.
func (s *Service) Exists(ctx context.Context, studentNumber, onStr string) (bool, error) {
	if studentNumber == "" {
		return false, ErrInvalid("student_number is required")
	}
	on, err := s.parseOn(onStr)
	if err != nil {
		return false, ErrInvalid("on must be YYYY-MM-DD or 'today'")
	}
	return s.store.Exists(ctx, studentNumber, on)
}

// DeleteDay removes every record in the student's day bucket. Used to correct
// mis-taps; keyed by the bucket, not by record id.
func (s *Service) DeleteDay(ctx context.Context, studentNumber, onStr string) (int64, error) {
	if studentNumber == "" {
		return 0, ErrInvalid("student_number is required")
	}
	on, err := s.parseOn(onStr)
	if err != nil {
		return 0, ErrInvalid("on must be YYYY-MM-DD or 'today'")
	}
	n, err := s.store.DeleteDay(ctx, studentNumber, on)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrNotFound("no attendance on " + on)
	}
	return n, nil
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]AttendanceResponse, int64, error) {
	if q.Sort == "" {
		q.Sort = DefaultSort
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}

	rows, total, err := s.store.List(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	out := make([]AttendanceResponse, 0, len(rows))
	for i := 0; i < len(rows); i++ {
		out = append(out, rows[i].toDTO())
	}
	return out, total, nil
}

func (s *Service) Stats(ctx context.Context, req StatsRequest) ([]StatsRow, error) {
	from, err := time.ParseInLocation(DateLayout, req.From, s.loc)
	if err != nil {
		return nil, ErrInvalid("from must be YYYY-MM-DD")
	}
	to, err := time.ParseInLocation(DateLayout, req.To, s.loc)
	if err != nil {
		return nil, ErrInvalid("to must be YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, ErrInvalid("to must be >= from")
	}
	return s.store.Stats(ctx, from.Format(DateLayout), to.Format(DateLayout), req.Limit)
}

// ===== day bucketing =====

func (s *Service) today() string {
	return time.Now().In(s.loc).Format(DateLayout)
}

// parseOn normalizes "today" or a YYYY-MM-DD string to the bucket date in the
// reference timezone.
func (s *Service) parseOn(v string) (string, error) {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "today" {
		return s.today(), nil
	}
	t, err := time.ParseInLocation(DateLayout, v, s.loc)
	if err != nil {
		return "", err
	}
	return t.Format(DateLayout), nil
}
