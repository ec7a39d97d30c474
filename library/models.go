package library

import (
	"fmt"
	"time"
)

// MembershipType classifies a registered member.
type MembershipType string

const (
	MemberStudent MembershipType = "Student"
	MemberFaculty MembershipType = "Faculty"
	MemberStaff   MembershipType = "Staff"
)

// LoanStatus tracks a loan through its lifecycle. Returned is terminal.
type LoanStatus string

const (
	StatusPending  LoanStatus = "Pending"
	StatusOverdue  LoanStatus = "Overdue"
	StatusReturned LoanStatus = "Returned"
)

// Book represents a catalog entry and its copy counts.
// total_copies is fixed at creation; available_copies moves only through
// issuance (decrement) and return (increment) and stays within [0, total_copies].
type Book struct {
	ID              int64  `db:"id" json:"id"`
	Title           string `db:"title" json:"title"`
	Author          string `db:"author" json:"author"`
	Category        string `db:"category" json:"category"`
	TotalCopies     int    `db:"total_copies" json:"total_copies"`
	AvailableCopies int    `db:"available_copies" json:"available_copies"`
}

// Member represents a registered library member. The lending engine only
// ever reads members; enrollment and password resets are administrative.
type Member struct {
	ID           int64          `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Email        string         `db:"email" json:"email"`
	Phone        string         `db:"phone" json:"phone"`
	Type         MembershipType `db:"membership_type" json:"membership_type"`
	PasswordHash string         `db:"password_hash" json:"-"` // Don't serialize password hash
}

// Loan is one lending transaction. Identifier, member/book references,
// issue_date and due_date are immutable once created; status, return_date
// and fine_cents change only on the return path.
type Loan struct {
	ID         int64      `db:"id" json:"id"`
	MemberID   int64      `db:"member_id" json:"member_id"`
	BookID     int64      `db:"book_id" json:"book_id"`
	IssueDate  time.Time  `db:"issue_date" json:"issue_date"`
	DueDate    time.Time  `db:"due_date" json:"due_date"`
	ReturnDate *time.Time `db:"return_date" json:"return_date,omitempty"`
	FineCents  int64      `db:"fine_cents" json:"fine_cents"`
	Status     LoanStatus `db:"status" json:"status"`
}

// Open reports whether the loan still holds a copy.
func (l *Loan) Open() bool {
	return l.Status != StatusReturned
}

// FormatAmount renders an amount held in minor units as "12.50".
func FormatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
