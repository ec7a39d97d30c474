package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-circulation/library"
)

var manager *library.LibraryManager

// readPassword securely reads a password with masking.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(bytePassword)), nil
}

// authenticateMember prompts for and verifies a member's credentials before
// a circulation operation runs on their behalf.
func authenticateMember(mgr *library.LibraryManager, memberID int64) error {
	password, err := readPassword("Enter your password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	return mgr.AuthenticateMember(memberID, password)
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id: %s", what, arg)
	}
	return id, nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	root := &cobra.Command{
		Use:           "library",
		Short:         "Library circulation: catalog, membership and lending",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := library.LoadConfig()
			var err error
			manager, err = library.NewLibraryManager(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			manager.OnReturn(func(loan library.Loan) {
				slog.Info("book restocked",
					"loan_id", loan.ID,
					"book_id", loan.BookID,
					"member_id", loan.MemberID,
					"fine", library.FormatAmount(loan.FineCents))
			})
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if manager != nil {
				manager.Close()
			}
		},
	}

	root.AddCommand(
		newIssueCmd(),
		newReturnCmd(),
		newFineCmd(),
		newOverdueCmd(),
		newAddBookCmd(),
		newBooksCmd(),
		newEnrollCmd(),
		newMembersCmd(),
		newLoansCmd(),
		newResetPasswordCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func newIssueCmd() *cobra.Command {
	var skipAuth bool
	cmd := &cobra.Command{
		Use:   "issue <book-id> <member-id>",
		Short: "Lend a book to a member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID(args[0], "book")
			if err != nil {
				return err
			}
			memberID, err := parseID(args[1], "member")
			if err != nil {
				return err
			}

			if !skipAuth {
				if err := authenticateMember(manager, memberID); err != nil {
					return fmt.Errorf("authentication failed: %w", err)
				}
			}

			loanID, err := manager.IssueBook(memberID, bookID)
			if err != nil {
				return err
			}

			loan, err := manager.GetLoan(loanID)
			if err != nil {
				return err
			}
			book, _ := manager.GetBook(bookID)
			member, _ := manager.GetMember(memberID)
			fmt.Printf("Loan %d: '%s' issued to %s, due %s\n",
				loanID, book.Title, member.Name, loan.DueDate.Format("2006-01-02"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipAuth, "no-auth", false, "skip the member password check (desk operator mode)")
	return cmd
}

func newReturnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return <loan-id>",
		Short: "Return a lent book and settle its fine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loanID, err := parseID(args[0], "loan")
			if err != nil {
				return err
			}

			loan, err := manager.ReturnLoan(loanID)
			if err != nil {
				return err
			}

			book, _ := manager.GetBook(loan.BookID)
			title := fmt.Sprintf("book %d", loan.BookID)
			if book != nil {
				title = fmt.Sprintf("'%s'", book.Title)
			}
			if loan.FineCents > 0 {
				fmt.Printf("Loan %d closed: %s returned, fine %s\n",
					loan.ID, title, library.FormatAmount(loan.FineCents))
			} else {
				fmt.Printf("Loan %d closed: %s returned, no fine\n", loan.ID, title)
			}
			return nil
		},
	}
}

func newFineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fine <loan-id>",
		Short: "Show the fine owed on a loan as of today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loanID, err := parseID(args[0], "loan")
			if err != nil {
				return err
			}
			amount, err := manager.CalculateFine(loanID)
			if err != nil {
				return err
			}
			fmt.Printf("Fine for loan %d: %s\n", loanID, library.FormatAmount(amount))
			return nil
		},
	}
}

func newOverdueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "Mark pending loans past their due date as overdue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := manager.MarkOverdueLoans()
			if err != nil {
				return err
			}
			fmt.Printf("%d loan(s) marked overdue\n", n)
			return nil
		},
	}
}

func newAddBookCmd() *cobra.Command {
	var (
		title    string
		author   string
		category string
		copies   int
	)
	cmd := &cobra.Command{
		Use:   "add-book",
		Short: "Add a book to the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := manager.AddBook(title, author, category, copies)
			if err != nil {
				return err
			}
			fmt.Printf("Added book ID %d with %d copies\n", id, copies)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "book title")
	cmd.Flags().StringVar(&author, "author", "", "book author")
	cmd.Flags().StringVar(&category, "category", "", "book category")
	cmd.Flags().IntVar(&copies, "copies", 1, "number of copies")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("author")
	return cmd
}

func newBooksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "books",
		Short: "List the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			books, err := manager.GetAllBooks()
			if err != nil {
				return err
			}
			if len(books) == 0 {
				fmt.Println("No books in library.")
				return nil
			}
			fmt.Printf("%-5s %-35s %-25s %-15s %-10s %s\n",
				"ID", "Title", "Author", "Category", "Available", "Total")
			fmt.Println(strings.Repeat("-", 100))
			for _, b := range books {
				fmt.Printf("%-5d %-35s %-25s %-15s %-10d %d\n",
					b.ID,
					truncateString(b.Title, 35),
					truncateString(b.Author, 25),
					truncateString(b.Category, 15),
					b.AvailableCopies,
					b.TotalCopies)
			}
			return nil
		},
	}
}

func newEnrollCmd() *cobra.Command {
	var (
		name  string
		email string
		phone string
		mtype string
	)
	cmd := &cobra.Command{
		Use:   "enroll",
		Short: "Enroll a new member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(fmt.Sprintf("Enter password for %s: ", name))
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			id, err := manager.AddMember(name, email, phone, library.MembershipType(mtype), password)
			if err != nil {
				return err
			}
			fmt.Printf("Enrolled member '%s' with ID %d\n", name, id)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "member name")
	cmd.Flags().StringVar(&email, "email", "", "member email (unique)")
	cmd.Flags().StringVar(&phone, "phone", "", "member phone (unique)")
	cmd.Flags().StringVar(&mtype, "type", string(library.MemberStudent), "membership type: Student, Faculty or Staff")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("phone")
	return cmd
}

func newMembersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "members",
		Short: "List registered members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			members, err := manager.GetAllMembers()
			if err != nil {
				return err
			}
			if len(members) == 0 {
				fmt.Println("No members registered.")
				return nil
			}
			fmt.Printf("%-5s %-25s %-30s %-15s %s\n", "ID", "Name", "Email", "Phone", "Type")
			fmt.Println(strings.Repeat("-", 90))
			for _, m := range members {
				fmt.Printf("%-5d %-25s %-30s %-15s %s\n",
					m.ID, truncateString(m.Name, 25), truncateString(m.Email, 30), m.Phone, m.Type)
			}
			return nil
		},
	}
}

func newLoansCmd() *cobra.Command {
	var memberID int64
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "List loans, optionally for a single member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				loans []*library.Loan
				err   error
			)
			if memberID > 0 {
				loans, err = manager.GetMemberLoans(memberID)
			} else {
				loans, err = manager.GetAllLoans()
			}
			if err != nil {
				return err
			}
			if len(loans) == 0 {
				fmt.Println("No loans recorded.")
				return nil
			}
			fmt.Printf("%-5s %-8s %-8s %-12s %-12s %-12s %-10s %s\n",
				"ID", "Member", "Book", "Issued", "Due", "Returned", "Status", "Fine")
			fmt.Println(strings.Repeat("-", 90))
			for _, ln := range loans {
				returned := "-"
				if ln.ReturnDate != nil {
					returned = ln.ReturnDate.Format("2006-01-02")
				}
				fmt.Printf("%-5d %-8d %-8d %-12s %-12s %-12s %-10s %s\n",
					ln.ID, ln.MemberID, ln.BookID,
					ln.IssueDate.Format("2006-01-02"),
					ln.DueDate.Format("2006-01-02"),
					returned, ln.Status,
					library.FormatAmount(ln.FineCents))
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&memberID, "member", 0, "only show loans for this member id")
	return cmd
}

func newResetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <member-id>",
		Short: "Reset a member's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			memberID, err := parseID(args[0], "member")
			if err != nil {
				return err
			}
			member, err := manager.GetMember(memberID)
			if err != nil {
				return err
			}
			password, err := readPassword(fmt.Sprintf("Enter new password for %s (ID: %d): ", member.Name, memberID))
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			if err := manager.ResetMemberPassword(memberID, password); err != nil {
				return err
			}
			fmt.Printf("Password successfully reset for %s (ID: %d)\n", member.Name, memberID)
			return nil
		},
	}
}

// exitCode maps the sentinel taxonomy to distinct shell exit codes so
// scripted callers can discriminate failure kinds.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, library.ErrBookNotFound),
		errors.Is(err, library.ErrMemberNotFound),
		errors.Is(err, library.ErrLoanNotFound):
		return 2
	case errors.Is(err, library.ErrBookUnavailable):
		return 3
	case errors.Is(err, library.ErrValidation):
		return 4
	default:
		return 1
	}
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}
