package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

// Database provides high-level helpers around a SQLite connection.
//
// Every circulation write runs as a single immediate transaction: SQLite has
// no SELECT ... FOR UPDATE, but BEGIN IMMEDIATE takes the database write lock
// up front, so a check-then-write sequence observes no stale counts. Lock
// contention surfaces as ErrConcurrencyConflict and is safe to retry.
type Database struct {
	db *sqlx.DB

	addBookStmt   *sqlx.Stmt
	addMemberStmt *sqlx.Stmt
}

// NewDatabase opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and prepares common statements.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// busy_timeout bounds lock waits, txlock=immediate makes every Begin take
	// the write lock at once instead of on first write.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1&_txlock=immediate", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{db: db}
	if err := database.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	if d.addBookStmt != nil {
		d.addBookStmt.Close()
	}
	if d.addMemberStmt != nil {
		d.addMemberStmt.Close()
	}
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sqlx.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS members (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            phone TEXT NOT NULL UNIQUE,
            membership_type TEXT NOT NULL CHECK (membership_type IN ('Student','Faculty','Staff')),
            password_hash TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            category TEXT NOT NULL DEFAULT '',
            total_copies INTEGER NOT NULL CHECK (total_copies >= 0),
            available_copies INTEGER NOT NULL
                CHECK (available_copies >= 0 AND available_copies <= total_copies)
        );`,
		// Loan ids are allocated by the issuance path, not AUTOINCREMENT, so
		// that id generation happens under the same lock as the availability
		// check.
		`CREATE TABLE IF NOT EXISTS loans (
            id INTEGER PRIMARY KEY,
            member_id INTEGER NOT NULL REFERENCES members(id),
            book_id INTEGER NOT NULL REFERENCES books(id),
            issue_date DATETIME NOT NULL,
            due_date DATETIME NOT NULL,
            return_date DATETIME,
            fine_cents INTEGER NOT NULL DEFAULT 0 CHECK (fine_cents >= 0),
            status TEXT NOT NULL DEFAULT 'Pending'
                CHECK (status IN ('Pending','Overdue','Returned'))
        );`,
		`CREATE INDEX IF NOT EXISTS idx_loans_book_status ON loans(book_id, status);`,
		`CREATE INDEX IF NOT EXISTS idx_loans_member ON loans(member_id);`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.addBookStmt, err = d.db.Preparex(
		`INSERT INTO books(title,author,category,total_copies,available_copies) VALUES(?,?,?,?,?)`); err != nil {
		return err
	}
	if d.addMemberStmt, err = d.db.Preparex(
		`INSERT INTO members(name,email,phone,membership_type,password_hash) VALUES(?,?,?,?,?)`); err != nil {
		return err
	}
	return nil
}

// mapSQLiteErr converts driver-level failures into the store's error
// taxonomy. Busy/locked means another writer holds the database lock;
// constraint violations mean the caller supplied conflicting input.
func mapSQLiteErr(err error) error {
	if err == nil {
		return nil
	}
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		switch serr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
		case sqlite3.ErrConstraint:
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	return err
}

func (d *Database) begin() (*sqlx.Tx, error) {
	tx, err := d.db.Beginx()
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	return tx, nil
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

// AddBook inserts a catalog entry with all copies available.
func (d *Database) AddBook(title, author, category string, totalCopies int) (int64, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(author) == "" {
		return 0, fmt.Errorf("%w: title and author are required", ErrValidation)
	}
	if totalCopies < 0 {
		return 0, fmt.Errorf("%w: total copies must not be negative", ErrValidation)
	}
	res, err := d.addBookStmt.Exec(title, author, category, totalCopies, totalCopies)
	if err != nil {
		return 0, mapSQLiteErr(err)
	}
	return res.LastInsertId()
}

func (d *Database) GetBook(id int64) (*Book, error) {
	var b Book
	err := d.db.Get(&b,
		`SELECT id,title,author,category,total_copies,available_copies FROM books WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %d: %w", id, ErrBookNotFound)
	}
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	return &b, nil
}

// GetAllBooks returns the catalog ordered by id.
func (d *Database) GetAllBooks() ([]*Book, error) {
	var books []*Book
	err := d.db.Select(&books,
		`SELECT id,title,author,category,total_copies,available_copies FROM books ORDER BY id`)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	return books, nil
}

// ---------------------------------------------------------------------------
// Membership
// ---------------------------------------------------------------------------

// AddMember enrolls a member. Email and phone must be unique; the password
// is stored as a bcrypt hash.
func (d *Database) AddMember(name, email, phone string, mtype MembershipType, password string) (int64, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || strings.TrimSpace(phone) == "" {
		return 0, fmt.Errorf("%w: name, email and phone are required", ErrValidation)
	}
	switch mtype {
	case MemberStudent, MemberFaculty, MemberStaff:
	default:
		return 0, fmt.Errorf("%w: unknown membership type %q", ErrValidation, mtype)
	}
	if strings.TrimSpace(password) == "" {
		return 0, fmt.Errorf("%w: password cannot be empty", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	res, err := d.addMemberStmt.Exec(name, email, phone, mtype, string(hash))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, fmt.Errorf("%w: email or phone already registered", ErrValidation)
		}
		return 0, mapSQLiteErr(err)
	}
	return res.LastInsertId()
}

// GetMember fetches a single member.
func (d *Database) GetMember(id int64) (*Member, error) {
	var m Member
	err := d.db.Get(&m,
		`SELECT id,name,email,phone,membership_type,password_hash FROM members WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %d: %w", id, ErrMemberNotFound)
	}
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	return &m, nil
}

// GetAllMembers returns all members.
func (d *Database) GetAllMembers() ([]*Member, error) {
	var members []*Member
	err := d.db.Select(&members,
		`SELECT id,name,email,phone,membership_type,password_hash FROM members ORDER BY id`)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	return members, nil
}

// AuthenticateMember verifies a member's password.
func (d *Database) AuthenticateMember(id int64, password string) error {
	m, err := d.GetMember(id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(password)); err != nil {
		return fmt.Errorf("%w: wrong password for member %d", ErrValidation, id)
	}
	return nil
}

// ResetMemberPassword replaces a member's password hash.
func (d *Database) ResetMemberPassword(id int64, password string) error {
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: password cannot be empty", ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	res, err := d.db.Exec(`UPDATE members SET password_hash=? WHERE id=?`, string(hash), id)
	if err != nil {
		return mapSQLiteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("member %d: %w", id, ErrMemberNotFound)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Ledger lookups
// ---------------------------------------------------------------------------

const loanColumns = `id,member_id,book_id,issue_date,due_date,return_date,fine_cents,status`

// GetLoan fetches a single loan record.
func (d *Database) GetLoan(id int64) (*Loan, error) {
	var ln Loan
	err := d.db.Get(&ln, `SELECT `+loanColumns+` FROM loans WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loan %d: %w", id, ErrLoanNotFound)
	}
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	return &ln, nil
}

// GetAllLoans returns every loan record ordered by id.
func (d *Database) GetAllLoans() ([]*Loan, error) {
	var loans []*Loan
	err := d.db.Select(&loans, `SELECT `+loanColumns+` FROM loans ORDER BY id`)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	return loans, nil
}

// GetMemberLoans returns a member's loans, newest first.
func (d *Database) GetMemberLoans(memberID int64) ([]*Loan, error) {
	var loans []*Loan
	err := d.db.Select(&loans,
		`SELECT `+loanColumns+` FROM loans WHERE member_id=? ORDER BY id DESC`, memberID)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	return loans, nil
}

// OpenLoanCount counts Pending/Overdue loans for a book. Committed state
// always satisfies open loans == total_copies - available_copies.
func (d *Database) OpenLoanCount(bookID int64) (int, error) {
	var n int
	err := d.db.Get(&n,
		`SELECT COUNT(*) FROM loans WHERE book_id=? AND status IN (?,?)`,
		bookID, StatusPending, StatusOverdue)
	if err != nil {
		return 0, mapSQLiteErr(err)
	}
	return n, nil
}
