package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestIsDuplicateEntry(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@b' for key 'accounts.email'"}

	assert.True(t, IsDuplicateEntry(dup))
	assert.True(t, IsDuplicateEntry(fmt.Errorf("insert: %w", dup)))
	assert.False(t, IsDuplicateEntry(nil))
	assert.False(t, IsDuplicateEntry(errors.New("duplicate entry")))
	assert.False(t, IsDuplicateEntry(&mysql.MySQLError{Number: 1146}))
}

func TestIsDuplicateEntryOn(t *testing.T) {
	onEmail := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@b' for key 'accounts.email'"}
	onNumber := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'DOJO-2025-001' for key 'students.admission_number'"}

	assert.True(t, IsDuplicateEntryOn(onEmail, "email"))
	assert.False(t, IsDuplicateEntryOn(onEmail, "admission_number"))
	assert.True(t, IsDuplicateEntryOn(onNumber, "admission_number"))
	assert.False(t, IsDuplicateEntryOn(errors.New("email"), "email"))
}

func TestIsLockContention(t *testing.T) {
	deadlock := &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock; try restarting transaction"}
	lockWait := &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded; try restarting transaction"}

	assert.True(t, IsLockContention(deadlock))
	assert.True(t, IsLockContention(fmt.Errorf("tx: %w", deadlock)))
	assert.True(t, IsLockContention(lockWait))
	assert.False(t, IsLockContention(nil))
	assert.False(t, IsLockContention(&mysql.MySQLError{Number: 1062}))
	assert.False(t, IsLockContention(errors.New("deadlock")))
}

func TestIsMissingTable(t *testing.T) {
	missing := &mysql.MySQLError{Number: 1146, Message: "Table 'dojo.attendances' doesn't exist"}

	assert.True(t, IsMissingTable(missing))
	assert.True(t, IsMissingTable(fmt.Errorf("query: %w", missing)))
	assert.False(t, IsMissingTable(nil))
	assert.False(t, IsMissingTable(&mysql.MySQLError{Number: 1062}))
}
