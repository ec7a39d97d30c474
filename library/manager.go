package library

import (
	"math/rand"
	"time"
)

// Retry schedule for lock contention: 0ms, 10ms, 20ms, 40ms, 80ms with 30%
// jitter, ~200ms worst case.
const (
	retryMaxAttempts  = 5
	retryBaseDelay    = 10 * time.Millisecond
	retryJitterFactor = 0.3
)

// ReturnHook observes a loan that has just transitioned to Returned. Hooks
// fire after commit, once per transition, and must not assume they run on
// any particular goroutine.
type ReturnHook func(loan Loan)

// LibraryManager is a thin façade over the Database: it binds the lending
// policy from Config, retries contended operations, and fans returned-loan
// notifications out to registered hooks.
type LibraryManager struct {
	db    *Database
	cfg   *Config
	hooks []ReturnHook
}

// NewLibraryManager opens (or creates) the SQLite database named by cfg.
func NewLibraryManager(cfg *Config) (*LibraryManager, error) {
	db, err := NewDatabase(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return &LibraryManager{db: db, cfg: cfg}, nil
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

// OnReturn registers a hook invoked after each committed return. Register
// hooks during setup, before circulation traffic starts.
func (lm *LibraryManager) OnReturn(hook ReturnHook) {
	lm.hooks = append(lm.hooks, hook)
}

// ------------------ Circulation ------------------

// IssueBook lends a book to a member and returns the new loan id. Lock
// contention is retried with exponential backoff; all other failures are
// permanent and reported as one of the sentinel errors.
func (lm *LibraryManager) IssueBook(memberID, bookID int64) (int64, error) {
	var (
		id      int64
		lastErr error
	)
	for attempt := 0; attempt < retryMaxAttempts; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay * time.Duration(1<<(attempt-1))
			jitter := time.Duration(rand.Float64() * float64(delay) * retryJitterFactor)
			time.Sleep(delay + jitter)
		}

		id, lastErr = lm.db.IssueBook(memberID, bookID, time.Now(), lm.cfg.LoanPeriodDays)
		if lastErr == nil {
			return id, nil
		}
		if !IsRetryable(lastErr) {
			return 0, lastErr
		}
	}
	return 0, lastErr
}

// ReturnLoan closes the loan and restocks the book, then notifies hooks.
// Returning an already-closed loan is a no-op and fires nothing.
func (lm *LibraryManager) ReturnLoan(loanID int64) (*Loan, error) {
	ln, restocked, err := lm.db.ReturnLoan(loanID, time.Now(), lm.cfg.FineRateCents)
	if err != nil {
		return nil, err
	}
	if restocked {
		for _, hook := range lm.hooks {
			hook(*ln)
		}
	}
	return ln, nil
}

// CalculateFine reports the fine owed on a loan as of now without
// modifying it.
func (lm *LibraryManager) CalculateFine(loanID int64) (int64, error) {
	return lm.db.CalculateFine(loanID, time.Now(), lm.cfg.FineRateCents)
}

// MarkOverdueLoans sweeps Pending loans past due into Overdue.
func (lm *LibraryManager) MarkOverdueLoans() (int64, error) {
	return lm.db.MarkOverdueLoans(time.Now())
}

// ------------------ Catalog helpers ------------------

func (lm *LibraryManager) AddBook(title, author, category string, totalCopies int) (int64, error) {
	return lm.db.AddBook(title, author, category, totalCopies)
}

func (lm *LibraryManager) GetBook(id int64) (*Book, error) { return lm.db.GetBook(id) }
func (lm *LibraryManager) GetAllBooks() ([]*Book, error)   { return lm.db.GetAllBooks() }

// ------------------ Member helpers ------------------

func (lm *LibraryManager) AddMember(name, email, phone string, mtype MembershipType, password string) (int64, error) {
	return lm.db.AddMember(name, email, phone, mtype, password)
}

func (lm *LibraryManager) GetMember(id int64) (*Member, error) { return lm.db.GetMember(id) }
func (lm *LibraryManager) GetAllMembers() ([]*Member, error)   { return lm.db.GetAllMembers() }

func (lm *LibraryManager) AuthenticateMember(id int64, password string) error {
	return lm.db.AuthenticateMember(id, password)
}

func (lm *LibraryManager) ResetMemberPassword(id int64, password string) error {
	return lm.db.ResetMemberPassword(id, password)
}

// ------------------ Ledger helpers ------------------

func (lm *LibraryManager) GetLoan(id int64) (*Loan, error)    { return lm.db.GetLoan(id) }
func (lm *LibraryManager) GetAllLoans() ([]*Loan, error)      { return lm.db.GetAllLoans() }
func (lm *LibraryManager) GetMemberLoans(id int64) ([]*Loan, error) {
	return lm.db.GetMemberLoans(id)
}
func (lm *LibraryManager) OpenLoanCount(bookID int64) (int, error) {
	return lm.db.OpenLoanCount(bookID)
}
