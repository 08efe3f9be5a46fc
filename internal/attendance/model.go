package attendance

import "time"

// DB row shape (scan target).
type attendanceRow struct {
	AttendanceID  uint64
	StudentNumber string
	AttendedOn    string // DATE → "YYYY-MM-DD"
	ClassType     string
	RecordedBy    string
	ClockedAt     time.Time
	Note          *string
}

// Attendance is the Service ↔ Store model. One row per student per day; the
// day bucket is the calendar date in the configured reference timezone,
// regardless of class type.
type Attendance struct {
	AttendanceID  uint64
	StudentNumber string
	AttendedOn    string
	ClassType     string
	RecordedBy    string
	ClockedAt     time.Time
	Note          *string
}

func (r attendanceRow) toModel() Attendance {
	return Attendance{
		AttendanceID:  r.AttendanceID,
		StudentNumber: r.StudentNumber,
		AttendedOn:    r.AttendedOn,
		ClassType:     r.ClassType,
		RecordedBy:    r.RecordedBy,
		ClockedAt:     r.ClockedAt.UTC(),
		Note:          r.Note,
	}
}

func (a Attendance) toDTO() AttendanceResponse {
	return AttendanceResponse{
		AttendanceID:  a.AttendanceID,
		StudentNumber: a.StudentNumber,
		AttendedOn:    a.AttendedOn,
		ClassType:     a.ClassType,
		RecordedBy:    a.RecordedBy,
		ClockedAt:     a.ClockedAt,
		Note:          a.Note,
	}
}
