package library

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issueForReturn(t *testing.T, db *Database, issue time.Time) (bookID, loanID int64) {
	t.Helper()
	bookID, err := db.AddBook("Returnable", "Author", "Fiction", 2)
	require.NoError(t, err)
	memberID, err := db.AddMember("Alice", "alice@lib.test", "555-0001", MemberStudent, "pw")
	require.NoError(t, err)
	loanID, err = db.IssueBook(memberID, bookID, issue, DefaultLoanPeriodDays)
	require.NoError(t, err)
	return bookID, loanID
}

func Test_ReturnLoan_RestocksAndPersistsFine(t *testing.T) {
	db := tempDB(t)
	issue := time.Now().AddDate(0, 0, -20) // due 6 days ago
	bookID, loanID := issueForReturn(t, db, issue)

	loan, restocked, err := db.ReturnLoan(loanID, time.Now(), DefaultFineRateCents)
	require.NoError(t, err)
	assert.True(t, restocked)
	assert.Equal(t, StatusReturned, loan.Status)
	require.NotNil(t, loan.ReturnDate)
	assert.Equal(t, int64(6*DefaultFineRateCents), loan.FineCents)

	book, err := db.GetBook(bookID)
	require.NoError(t, err)
	assert.Equal(t, 2, book.AvailableCopies)

	// The mutation is durable, not just reflected in the returned struct.
	stored, err := db.GetLoan(loanID)
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, stored.Status)
	assert.Equal(t, loan.FineCents, stored.FineCents)
	require.NotNil(t, stored.ReturnDate)
}

func Test_ReturnLoan_OnTimeReturnHasNoFine(t *testing.T) {
	db := tempDB(t)
	_, loanID := issueForReturn(t, db, time.Now())

	loan, restocked, err := db.ReturnLoan(loanID, time.Now(), DefaultFineRateCents)

	require.NoError(t, err)
	assert.True(t, restocked)
	assert.Zero(t, loan.FineCents)
}

func Test_ReturnLoan_EdgeTriggered(t *testing.T) {
	db := tempDB(t)
	bookID, loanID := issueForReturn(t, db, time.Now())

	_, restocked, err := db.ReturnLoan(loanID, time.Now(), DefaultFineRateCents)
	require.NoError(t, err)
	require.True(t, restocked)

	// Re-saving an already-Returned loan is a no-op: availability moves once
	// in total, and the stored record is untouched.
	before, err := db.GetLoan(loanID)
	require.NoError(t, err)

	loan, restocked, err := db.ReturnLoan(loanID, time.Now().Add(time.Hour), DefaultFineRateCents)
	require.NoError(t, err)
	assert.False(t, restocked)
	assert.Equal(t, StatusReturned, loan.Status)

	after, err := db.GetLoan(loanID)
	require.NoError(t, err)
	assert.Equal(t, before.FineCents, after.FineCents)
	assert.True(t, before.ReturnDate.Equal(*after.ReturnDate))

	book, err := db.GetBook(bookID)
	require.NoError(t, err)
	assert.Equal(t, 2, book.AvailableCopies, "double return must not double-count")
}

func Test_ReturnLoan_UnknownLoan(t *testing.T) {
	db := tempDB(t)

	_, _, err := db.ReturnLoan(31337, time.Now(), DefaultFineRateCents)

	require.ErrorIs(t, err, ErrLoanNotFound)
}

func Test_ReturnLoan_ScopedToOneLoan(t *testing.T) {
	db := tempDB(t)
	bookID, err := db.AddBook("Shared Title", "Author", "Fiction", 3)
	require.NoError(t, err)
	alice, err := db.AddMember("Alice", "alice@lib.test", "555-0001", MemberStudent, "pw")
	require.NoError(t, err)
	bob, err := db.AddMember("Bob", "bob@lib.test", "555-0002", MemberStaff, "pw")
	require.NoError(t, err)

	now := time.Now()
	loan1, err := db.IssueBook(alice, bookID, now, DefaultLoanPeriodDays)
	require.NoError(t, err)
	loan2, err := db.IssueBook(bob, bookID, now, DefaultLoanPeriodDays)
	require.NoError(t, err)

	// Returning Alice's copy restores exactly one; Bob's loan stays open.
	_, restocked, err := db.ReturnLoan(loan1, now, DefaultFineRateCents)
	require.NoError(t, err)
	require.True(t, restocked)

	book, err := db.GetBook(bookID)
	require.NoError(t, err)
	assert.Equal(t, 2, book.AvailableCopies)

	other, err := db.GetLoan(loan2)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, other.Status)
}

func Test_ConcurrentIssueAndReturn_NoLostUpdates(t *testing.T) {
	mgr := tempManager(t)
	bookID, err := mgr.AddBook("Churn", "Author", "Fiction", 2)
	require.NoError(t, err)
	alice, err := mgr.AddMember("Alice", "alice@lib.test", "555-0001", MemberStudent, "pw")
	require.NoError(t, err)
	bob, err := mgr.AddMember("Bob", "bob@lib.test", "555-0002", MemberStaff, "pw")
	require.NoError(t, err)

	loan1, err := mgr.IssueBook(alice, bookID)
	require.NoError(t, err)
	loan2, err := mgr.IssueBook(bob, bookID)
	require.NoError(t, err)

	// Returns and fresh issues race on the same book row.
	var wg sync.WaitGroup
	for _, loanID := range []int64{loan1, loan2} {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := mgr.ReturnLoan(id)
			assert.NoError(t, err)
		}(loanID)
	}
	for _, memberID := range []int64{alice, bob} {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			// May win or lose the race for a copy; both outcomes are legal.
			if _, err := mgr.IssueBook(id, bookID); err != nil {
				assert.ErrorIs(t, err, ErrBookUnavailable)
			}
		}(memberID)
	}
	wg.Wait()

	requireInventoryInvariants(t, mgr, bookID)
}

func Test_MarkOverdueLoans_SweepsOnlyPastDuePending(t *testing.T) {
	db := tempDB(t)
	bookID, err := db.AddBook("Sweep", "Author", "Fiction", 3)
	require.NoError(t, err)
	memberID, err := db.AddMember("Alice", "alice@lib.test", "555-0001", MemberStudent, "pw")
	require.NoError(t, err)

	now := time.Now()
	late, err := db.IssueBook(memberID, bookID, now.AddDate(0, 0, -30), DefaultLoanPeriodDays)
	require.NoError(t, err)
	fresh, err := db.IssueBook(memberID, bookID, now, DefaultLoanPeriodDays)
	require.NoError(t, err)
	closed, err := db.IssueBook(memberID, bookID, now.AddDate(0, 0, -30), DefaultLoanPeriodDays)
	require.NoError(t, err)
	_, _, err = db.ReturnLoan(closed, now, DefaultFineRateCents)
	require.NoError(t, err)

	n, err := db.MarkOverdueLoans(now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	lateLoan, err := db.GetLoan(late)
	require.NoError(t, err)
	assert.Equal(t, StatusOverdue, lateLoan.Status)

	freshLoan, err := db.GetLoan(fresh)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, freshLoan.Status)

	closedLoan, err := db.GetLoan(closed)
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, closedLoan.Status, "sweep must not touch returned loans")

	// An Overdue loan still returns and restocks normally.
	_, restocked, err := db.ReturnLoan(late, now, DefaultFineRateCents)
	require.NoError(t, err)
	assert.True(t, restocked)
}
