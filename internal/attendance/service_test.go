package attendance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRecordStore enforces the (student, day) unique key like the backing
// table does.
type fakeRecordStore struct {
	mu   sync.Mutex
	rows map[string]Attendance // key: student|date
	seq  uint64
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{rows: make(map[string]Attendance)}
}

func dayKey(student, on string) string { return student + "|" + on }

func (f *fakeRecordStore) Insert(_ context.Context, rec Attendance) (Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := dayKey(rec.StudentNumber, rec.AttendedOn)
	if _, dup := f.rows[k]; dup {
		return Attendance{}, ErrDuplicateDay
	}
	f.seq++
	rec.AttendanceID = f.seq
	rec.ClockedAt = time.Now().UTC()
	f.rows[k] = rec
	return rec, nil
}

func (f *fakeRecordStore) Exists(_ context.Context, student, on string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[dayKey(student, on)]
	return ok, nil
}

func (f *fakeRecordStore) DeleteDay(_ context.Context, student, on string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := dayKey(student, on)
	if _, ok := f.rows[k]; !ok {
		return 0, nil
	}
	delete(f.rows, k)
	return 1, nil
}

func (f *fakeRecordStore) List(_ context.Context, q ListQuery) ([]Attendance, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Attendance
	for _, r := range f.rows {
		if q.StudentNumber != nil && r.StudentNumber != *q.StudentNumber {
			continue
		}
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRecordStore) Stats(_ context.Context, from, to string, _ int) ([]StatsRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[string]int64)
	for _, r := range f.rows {
		if r.AttendedOn >= from && r.AttendedOn <= to {
			counts[r.StudentNumber]++
		}
	}
	var out []StatsRow
	for s, n := range counts {
		out = append(out, StatsRow{StudentNumber: s, Count: n})
	}
	return out, nil
}

func newSvc(loc *time.Location) *Service {
	return NewService(newFakeRecordStore(), loc)
}

func TestRecordOncePerDayRegardlessOfClassType(t *testing.T) {
	svc := newSvc(time.UTC)
	day := "2025-06-02"

	first, err := svc.Record(context.Background(), "01SENSEI000000000000000000", CreateAttendanceRequest{
		StudentNumber: "DOJO-2025-001",
		ClassType:     "Adults",
		AttendedOn:    &day,
	})
	require.NoError(t, err)
	assert.Equal(t, day, first.AttendedOn)
	assert.Equal(t, "01SENSEI000000000000000000", first.RecordedBy)

	// same day, different class: still a conflict
	_, err = svc.Record(context.Background(), "01SENSEI000000000000000000", CreateAttendanceRequest{
		StudentNumber: "DOJO-2025-001",
		ClassType:     "Kids",
		AttendedOn:    &day,
	})
	var api *APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, CodeConflict, api.Code)
	assert.Equal(t, 409, toHTTPStatus(err))
	assert.Contains(t, api.Message, "2025-06-02")

	// next day is fine
	next := "2025-06-03"
	_, err = svc.Record(context.Background(), "01SENSEI000000000000000000", CreateAttendanceRequest{
		StudentNumber: "DOJO-2025-001",
		ClassType:     "Adults",
		AttendedOn:    &next,
	})
	assert.NoError(t, err)

	// a different student on the original day is unaffected
	_, err = svc.Record(context.Background(), "01SENSEI000000000000000000", CreateAttendanceRequest{
		StudentNumber: "DOJO-2025-002",
		ClassType:     "Adults",
		AttendedOn:    &day,
	})
	assert.NoError(t, err)
}

func TestRecordValidation(t *testing.T) {
	svc := newSvc(time.UTC)

	_, err := svc.Record(context.Background(), "x", CreateAttendanceRequest{ClassType: "Adults"})
	var api *APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, CodeInvalidArgument, api.Code)

	_, err = svc.Record(context.Background(), "x", CreateAttendanceRequest{StudentNumber: "DOJO-2025-001"})
	require.ErrorAs(t, err, &api)
	assert.Equal(t, CodeInvalidArgument, api.Code)

	bad := "2025/06/02"
	_, err = svc.Record(context.Background(), "x", CreateAttendanceRequest{
		StudentNumber: "DOJO-2025-001", ClassType: "Adults", AttendedOn: &bad,
	})
	require.ErrorAs(t, err, &api)
	assert.Equal(t, CodeInvalidArgument, api.Code)
}

func TestRecordTodayUsesReferenceTimezone(t *testing.T) {
	jst := time.FixedZone("JST", 9*3600)
	svc := newSvc(jst)
	today := "today"

	res, err := svc.Record(context.Background(), "x", CreateAttendanceRequest{
		StudentNumber: "DOJO-2025-001", ClassType: "Adults", AttendedOn: &today,
	})
	require.NoError(t, err)

	wantDay := time.Now().In(jst).Format(DateLayout)
	assert.Equal(t, wantDay, res.AttendedOn)

	ok, err := svc.Exists(context.Background(), "DOJO-2025-001", "today")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeleteDayClearsBucket(t *testing.T) {
	svc := newSvc(time.UTC)
	day := "2025-06-02"
	_, err := svc.Record(context.Background(), "x", CreateAttendanceRequest{
		StudentNumber: "DOJO-2025-001", ClassType: "Adults", AttendedOn: &day,
	})
	require.NoError(t, err)

	n, err := svc.DeleteDay(context.Background(), "DOJO-2025-001", day)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// bucket is free again after the correction
	_, err = svc.Record(context.Background(), "x", CreateAttendanceRequest{
		StudentNumber: "DOJO-2025-001", ClassType: "Kids", AttendedOn: &day,
	})
	assert.NoError(t, err)

	// deleting an empty bucket is NOT_FOUND
	_, err = svc.DeleteDay(context.Background(), "DOJO-2025-001", "2025-06-09")
	var api *APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, CodeNotFound, api.Code)
}

// Concurrent check-ins for the same student and day: exactly one wins.
func TestConcurrentRecordSingleWinner(t *testing.T) {
	svc := newSvc(time.UTC)
	day := "2025-06-02"

	const n = 20
	var wg sync.WaitGroup
	okCount := make(chan struct{}, n)
	conflicts := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Record(context.Background(), "x", CreateAttendanceRequest{
				StudentNumber: "DOJO-2025-001", ClassType: "Adults", AttendedOn: &day,
			})
			if err == nil {
				okCount <- struct{}{}
				return
			}
			var api *APIError
			if assert.ErrorAs(t, err, &api) {
				assert.Equal(t, CodeConflict, api.Code)
			}
			conflicts <- struct{}{}
		}()
	}
	wg.Wait()
	close(okCount)
	close(conflicts)
	assert.Len(t, okCount, 1)
	assert.Len(t, conflicts, n-1)
}

func TestStatsRange(t *testing.T) {
	svc := newSvc(time.UTC)
	for _, d := range []string{"2025-06-02", "2025-06-03", "2025-06-04"} {
		day := d
		_, err := svc.Record(context.Background(), "x", CreateAttendanceRequest{
			StudentNumber: "DOJO-2025-001", ClassType: "Adults", AttendedOn: &day,
		})
		require.NoError(t, err)
	}
	day := "2025-06-03"
	_, err := svc.Record(context.Background(), "x", CreateAttendanceRequest{
		StudentNumber: "DOJO-2025-002", ClassType: "Kids", AttendedOn: &day,
	})
	require.NoError(t, err)

	rows, err := svc.Stats(context.Background(), StatsRequest{From: "2025-06-02", To: "2025-06-03"})
	require.NoError(t, err)
	counts := map[string]int64{}
	for _, r := range rows {
		counts[r.StudentNumber] = r.Count
	}
	assert.EqualValues(t, 2, counts["DOJO-2025-001"])
	assert.EqualValues(t, 1, counts["DOJO-2025-002"])

	_, err = svc.Stats(context.Background(), StatsRequest{From: "2025-06-04", To: "2025-06-02"})
	var api *APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, CodeInvalidArgument, api.Code)
}
