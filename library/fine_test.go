package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func Test_FineCents_ReturnedLate(t *testing.T) {
	due := date(2025, time.June, 10)
	returned := date(2025, time.June, 15)

	fine := FineCents(due, &returned, date(2025, time.July, 1), DefaultFineRateCents)

	assert.Equal(t, int64(2500), fine, "5 overdue days at 5.00/day")
}

func Test_FineCents_OpenLoanDueToday(t *testing.T) {
	due := date(2025, time.June, 10)

	fine := FineCents(due, nil, date(2025, time.June, 10), DefaultFineRateCents)

	assert.Equal(t, int64(0), fine)
}

func Test_FineCents_EarlyReturnClampsToZero(t *testing.T) {
	due := date(2025, time.June, 10)
	returned := date(2025, time.June, 8)

	fine := FineCents(due, &returned, date(2025, time.July, 1), DefaultFineRateCents)

	assert.Equal(t, int64(0), fine)
}

func Test_FineCents_OpenLoanAccruesAgainstNow(t *testing.T) {
	due := date(2025, time.June, 10)

	fine := FineCents(due, nil, date(2025, time.June, 20), DefaultFineRateCents)

	assert.Equal(t, int64(5000), fine, "10 open overdue days")
}

func Test_FineCents_IgnoresTimeOfDay(t *testing.T) {
	due := time.Date(2025, time.June, 10, 23, 50, 0, 0, time.UTC)
	returned := time.Date(2025, time.June, 11, 0, 5, 0, 0, time.UTC)

	fine := FineCents(due, &returned, returned, DefaultFineRateCents)

	assert.Equal(t, int64(500), fine, "crossing midnight is one whole day")
}

func Test_FineCents_RespectsConfiguredRate(t *testing.T) {
	due := date(2025, time.June, 10)
	returned := date(2025, time.June, 13)

	fine := FineCents(due, &returned, returned, 125)

	assert.Equal(t, int64(375), fine)
}

func Test_CalculateFine_SameFormulaOpenAndClosed(t *testing.T) {
	db := tempDB(t)
	bookID, err := db.AddBook("Fines", "Author", "Fiction", 2)
	require.NoError(t, err)
	memberID, err := db.AddMember("Alice", "alice@lib.test", "555-1000", MemberStudent, "secret")
	require.NoError(t, err)

	issue := time.Now().AddDate(0, 0, -20) // due 6 days ago
	loanID, err := db.IssueBook(memberID, bookID, issue, DefaultLoanPeriodDays)
	require.NoError(t, err)

	open, err := db.CalculateFine(loanID, time.Now(), DefaultFineRateCents)
	require.NoError(t, err)
	assert.Equal(t, int64(6*DefaultFineRateCents), open)

	loan, _, err := db.ReturnLoan(loanID, time.Now(), DefaultFineRateCents)
	require.NoError(t, err)

	// Historical loans keep yielding the identical amount, with the stored
	// return date substituting for now.
	closed, err := db.CalculateFine(loanID, time.Now().AddDate(0, 0, 30), DefaultFineRateCents)
	require.NoError(t, err)
	assert.Equal(t, loan.FineCents, closed)
}

func Test_CalculateFine_UnknownLoan(t *testing.T) {
	db := tempDB(t)

	_, err := db.CalculateFine(424242, time.Now(), DefaultFineRateCents)

	require.ErrorIs(t, err, ErrLoanNotFound)
}
