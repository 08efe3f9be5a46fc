package students

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"DOJO-backend/internal/platform/db"

	"golang.org/x/text/width"
)

const AdmissionPrefix = "DOJO"

// ErrAllocationRace means the admission-number unique key fired because a
// concurrent transaction allocated the same suffix. The store retries the
// whole transaction once; callers never see this error.
var ErrAllocationRace = errors.New("admission number allocation race")

// FormatAdmissionNumber builds PREFIX-year-NNN. Three digits zero-padded;
// past 999 the number widens, it never wraps.
func FormatAdmissionNumber(year, seq int) string {
	return fmt.Sprintf("%s-%d-%03d", AdmissionPrefix, year, seq)
}

// NextAdmissionNumber counts the scope's existing allocations under a row
// lock and formats count+1. Must run inside the provisioning transaction;
// the FOR UPDATE plus the unique key on admission_number close the classic
// count-then-write race.
func NextAdmissionNumber(ctx context.Context, q db.DBTX, year int) (string, error) {
	pattern := fmt.Sprintf("%s-%d-%%", AdmissionPrefix, year)
	var n int
	err := q.QueryRowContext(ctx, `
SELECT COUNT(*) FROM students
WHERE admission_number LIKE ?
FOR UPDATE`, pattern).Scan(&n)
	if err != nil {
		return "", err
	}
	return FormatAdmissionNumber(year, n+1), nil
}

// NormalizeField folds full-width digits and latin characters to their
// half-width forms before validation and encryption, so "０９０−..." and
// "090-..." store identically.
func NormalizeField(s string) string {
	return width.Fold.String(strings.TrimSpace(s))
}
