package library

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ReturnLoan closes a loan: status flips to Returned, return_date and the
// final fine are persisted, and the book's available_copies is incremented,
// all in one immediate transaction. This is the sole path by which
// availability increases.
//
// The transition is edge-triggered. A loan that is already Returned is left
// untouched and reported with restocked=false, so replaying a return never
// double-counts a copy.
func (d *Database) ReturnLoan(loanID int64, returnDate time.Time, fineRateCents int64) (*Loan, bool, error) {
	tx, err := d.begin()
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	var ln Loan
	err = tx.Get(&ln, `SELECT `+loanColumns+` FROM loans WHERE id=?`, loanID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("loan %d: %w", loanID, ErrLoanNotFound)
	}
	if err != nil {
		return nil, false, mapSQLiteErr(err)
	}

	if ln.Status == StatusReturned {
		return &ln, false, nil
	}

	fine := FineCents(ln.DueDate, &returnDate, returnDate, fineRateCents)

	res, err := tx.Exec(
		`UPDATE loans SET status=?, return_date=?, fine_cents=? WHERE id=? AND status != ?`,
		StatusReturned, returnDate, fine, loanID, StatusReturned)
	if err != nil {
		return nil, false, mapSQLiteErr(err)
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		// Lost the edge to a concurrent return of the same loan.
		return &ln, false, nil
	}

	res, err = tx.Exec(
		`UPDATE books SET available_copies = available_copies + 1 WHERE id=? AND available_copies < total_copies`,
		ln.BookID)
	if err != nil {
		return nil, false, mapSQLiteErr(err)
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		return nil, false, fmt.Errorf("restock of book %d would exceed total copies: %w", ln.BookID, ErrConcurrencyConflict)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, mapSQLiteErr(err)
	}

	ln.Status = StatusReturned
	ln.ReturnDate = &returnDate
	ln.FineCents = fine
	return &ln, true, nil
}

// MarkOverdueLoans flips Pending loans past their due date to Overdue and
// reports how many changed. The fine formula depends only on dates, so the
// sweep can run at any cadence without affecting amounts owed.
func (d *Database) MarkOverdueLoans(asOf time.Time) (int64, error) {
	res, err := d.db.Exec(
		`UPDATE loans SET status=? WHERE status=? AND due_date < ?`,
		StatusOverdue, StatusPending, asOf)
	if err != nil {
		return 0, mapSQLiteErr(err)
	}
	return res.RowsAffected()
}
