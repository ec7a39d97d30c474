package library

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// IssueBook lends bookID to memberID, recording the loan and decrementing
// availability in one immediate transaction.
//
// The sequence is: validate member, read the book's count under the write
// lock, reject if absent or exhausted, allocate the next loan id, insert the
// Pending loan (due = issue + loanPeriodDays), decrement available_copies,
// commit. Any mid-flight failure rolls the whole unit back; nothing is
// visible to other readers until commit. The new loan id is reported only
// on successful commit.
func (d *Database) IssueBook(memberID, bookID int64, issueDate time.Time, loanPeriodDays int) (int64, error) {
	if memberID <= 0 || bookID <= 0 {
		return 0, fmt.Errorf("%w: member and book ids must be positive", ErrValidation)
	}

	tx, err := d.begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.Get(&exists, `SELECT EXISTS(SELECT 1 FROM members WHERE id=?)`, memberID); err != nil {
		return 0, mapSQLiteErr(err)
	}
	if !exists {
		return 0, fmt.Errorf("%w: member %d is not enrolled", ErrValidation, memberID)
	}

	var available int
	err = tx.Get(&available, `SELECT available_copies FROM books WHERE id=?`, bookID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("book %d: %w", bookID, ErrBookNotFound)
	}
	if err != nil {
		return 0, mapSQLiteErr(err)
	}
	if available <= 0 {
		return 0, fmt.Errorf("book %d: %w", bookID, ErrBookUnavailable)
	}

	// Allocated under the same lock as the availability check, so concurrent
	// issuances cannot mint duplicate ids.
	var next int64
	if err := tx.Get(&next, `SELECT COALESCE(MAX(id),0)+1 FROM loans`); err != nil {
		return 0, mapSQLiteErr(err)
	}

	dueDate := issueDate.AddDate(0, 0, loanPeriodDays)
	if _, err := tx.Exec(
		`INSERT INTO loans(id,member_id,book_id,issue_date,due_date,fine_cents,status) VALUES(?,?,?,?,?,0,?)`,
		next, memberID, bookID, issueDate, dueDate, StatusPending); err != nil {
		return 0, mapSQLiteErr(err)
	}

	res, err := tx.Exec(
		`UPDATE books SET available_copies = available_copies - 1 WHERE id=? AND available_copies > 0`,
		bookID)
	if err != nil {
		return 0, mapSQLiteErr(err)
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		return 0, fmt.Errorf("book %d availability changed mid-issue: %w", bookID, ErrConcurrencyConflict)
	}

	if err := tx.Commit(); err != nil {
		return 0, mapSQLiteErr(err)
	}
	return next, nil
}
