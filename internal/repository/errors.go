// Package repository persists users, tokens, blogs, comments and likes with
// database/sql.  Queries use the SQL subset shared by MySQL and SQLite.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a unique value is already taken.
	ErrConflict = errors.New("conflict")

	ErrEmailExists    = errors.New("email already exists")
	ErrUsernameExists = errors.New("username already exists")

	ErrAlreadyLiked = errors.New("already liked")
	ErrNotLiked     = errors.New("not liked")
)

const mysqlDuplicateEntry = 1062

// isDuplicate reports a unique constraint violation on either driver.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

// duplicateOn reports whether a duplicate error names column.  Only the key
// part of the message is inspected so the offending value cannot match.
func duplicateOn(err error, column string) bool {
	if !isDuplicate(err) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"for key", "constraint failed:"} {
		if i := strings.LastIndex(msg, marker); i >= 0 {
			msg = msg[i:]
			break
		}
	}
	return strings.Contains(msg, column)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// lockClause returns the row lock suffix understood by the driver behind db.
// SQLite serialises writers on its own.
func lockClause(db *sql.DB) string {
	if _, ok := db.Driver().(*mysql.MySQLDriver); ok {
		return " FOR UPDATE"
	}
	return ""
}

func newID() string { return uuid.NewString() }

// now is second precision UTC: MySQL DATETIME keeps no fraction and SQLite
// compares the stored text.
func now() time.Time { return time.Now().UTC().Truncate(time.Second) }

// withTx runs fn in a transaction, committing on success.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	return fn(tx)
}

// Page bounds a list query.
type Page struct {
	Limit  int
	Offset int
}
