package library

import "time"

// FineCents computes the fine owed on a loan, in minor units.
//
// Overdue days are whole calendar days between the due date and the return
// date if the loan is closed, else between the due date and now. Negative
// day counts (early returns, loans not yet due) clamp to zero. The same
// formula applies to open and historical loans; only the comparison date
// differs. Pure, no side effects.
func FineCents(dueDate time.Time, returnDate *time.Time, now time.Time, ratePerDayCents int64) int64 {
	ref := now
	if returnDate != nil {
		ref = *returnDate
	}
	days := daysBetween(dueDate, ref)
	if days <= 0 {
		return 0
	}
	return int64(days) * ratePerDayCents
}

// daysBetween counts whole calendar days from a to b, negative when b
// precedes a. Time-of-day and zone are discarded so a loan due "today"
// carries no fine regardless of the hour.
func daysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bd.Sub(ad) / (24 * time.Hour))
}

// CalculateFine derives the fine owed on the identified loan as of now.
// The loan record itself is not modified.
func (d *Database) CalculateFine(loanID int64, now time.Time, ratePerDayCents int64) (int64, error) {
	ln, err := d.GetLoan(loanID)
	if err != nil {
		return 0, err
	}
	return FineCents(ln.DueDate, ln.ReturnDate, now, ratePerDayCents), nil
}
