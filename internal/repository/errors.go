// Package repository holds the MySQL data access layer.  The sentinel
// values below let higher layers such as the service and the handlers
// tell failure scenarios apart with errors.Is.
package repository

import (
	stderrors "errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.  Handlers
// translate it into an HTTP 404 response.
var ErrNotFound = stderrors.New("not found")

// ErrConflict is returned when a write cannot proceed because of the
// current state of the row, such as generating coupons for a batch that
// has already left production.  Handlers translate it into HTTP 409.
var ErrConflict = stderrors.New("conflict")

// ErrDuplicate is returned when an insert or update violates a unique key.
var ErrDuplicate = stderrors.New("duplicate")

// MySQL server error numbers.
const (
	mysqlDuplicateEntry = 1062 // ER_DUP_ENTRY
	mysqlNoParentRow    = 1452 // ER_NO_REFERENCED_ROW_2
)

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return stderrors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// isMissingParent reports a foreign key pointing at a row that does not exist.
func isMissingParent(err error) bool {
	var me *mysql.MySQLError
	return stderrors.As(err, &me) && me.Number == mysqlNoParentRow
}
