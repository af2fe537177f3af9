// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as the
// services to distinguish between different failure scenarios without
// inspecting driver errors.  ErrSeatTaken and ErrDuplicatePayment both wrap
// ErrConflict, so callers that only care about "the write lost against
// existing state" can test for ErrConflict alone.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write cannot be performed because of
// conflicting state already stored.
var ErrConflict = errors.New("conflict")

// ErrSeatTaken is returned when one of the seats or tables in a booking is
// already claimed by another booking.
var ErrSeatTaken = fmt.Errorf("%w: seat already claimed", ErrConflict)

// ErrDuplicatePayment is returned when a booking with the same payment
// reference already exists.
var ErrDuplicatePayment = fmt.Errorf("%w: payment reference already used", ErrConflict)

// ErrAlreadyRedeemed is returned when a ticket has been scanned before.
var ErrAlreadyRedeemed = errors.New("already redeemed")

// MySQL server error numbers the repositories react to.
const (
	mysqlDuplicateEntry  = 1062
	mysqlDeadlock        = 1213
	mysqlLockWaitTimeout = 1205
)

func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicateKey(err error) bool {
	return mysqlErrNumber(err) == mysqlDuplicateEntry
}

// isLockContention reports a deadlock or lock wait timeout.  Two bookings
// racing for overlapping seats surface this way when InnoDB picks a victim.
func isLockContention(err error) bool {
	n := mysqlErrNumber(err)
	return n == mysqlDeadlock || n == mysqlLockWaitTimeout
}
