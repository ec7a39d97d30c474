package main

import (
	"fmt"
	"os"
	"strings"

	"library-circulation/library"
)

type bookSeed struct {
	title    string
	author   string
	category string
	copies   int
}

type memberSeed struct {
	name  string
	email string
	phone string
	mtype library.MembershipType
}

func main() {
	// Clean up any existing database files.
	fmt.Println("Cleaning up existing database files...")
	cfg := library.LoadConfig()
	dbFiles := []string{cfg.DBPath, cfg.DBPath + "-shm", cfg.DBPath + "-wal"}
	for _, file := range dbFiles {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			fmt.Printf("Warning: Could not remove %s: %v\n", file, err)
		}
	}
	fmt.Println("Database cleanup complete.")

	manager, err := library.NewLibraryManager(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating database: %v\n", err)
		os.Exit(1)
	}
	defer manager.Close()

	books := []bookSeed{
		{"1984", "George Orwell", "Fiction", 3},
		{"Animal Farm", "George Orwell", "Fiction", 2},
		{"The Art of War", "Sun Tzu", "Philosophy", 2},
		{"The Fellowship of the Ring", "J.R.R. Tolkien", "Fantasy", 4},
		{"The Two Towers", "J.R.R. Tolkien", "Fantasy", 4},
		{"The Return of the King", "J.R.R. Tolkien", "Fantasy", 4},
		{"Romeo and Juliet", "William Shakespeare", "Drama", 2},
		{"The Three Musketeers", "Alexandre Dumas", "Adventure", 3},
		{"The Diary of a Young Girl", "Anne Frank", "Biography", 2},
		{"A Brief History of Time", "Stephen Hawking", "Science", 2},
	}

	members := []memberSeed{
		{"Alice Johnson", "alice@example.edu", "555-0101", library.MemberStudent},
		{"Bob Martinez", "bob@example.edu", "555-0102", library.MemberFaculty},
		{"Carol Chen", "carol@example.edu", "555-0103", library.MemberStaff},
		{"David Okafor", "david@example.edu", "555-0104", library.MemberStudent},
	}

	fmt.Println("Seeding catalog...")
	successCount := 0
	errorCount := 0
	for _, b := range books {
		fmt.Printf("Adding: %s by %s... ", b.title, b.author)
		id, err := manager.AddBook(b.title, b.author, b.category, b.copies)
		if err != nil {
			fmt.Printf("ERROR - %v\n", err)
			errorCount++
			continue
		}
		fmt.Printf("SUCCESS (ID: %d, %d copies)\n", id, b.copies)
		successCount++
	}

	fmt.Println("Seeding members (default password: changeme)...")
	for _, m := range members {
		fmt.Printf("Enrolling: %s (%s)... ", m.name, m.mtype)
		id, err := manager.AddMember(m.name, m.email, m.phone, m.mtype, "changeme")
		if err != nil {
			fmt.Printf("ERROR - %v\n", err)
			errorCount++
			continue
		}
		fmt.Printf("SUCCESS (ID: %d)\n", id)
		successCount++
	}

	fmt.Printf("\nSeed complete!\n")
	fmt.Printf("Successfully created: %d records\n", successCount)
	fmt.Printf("Errors: %d\n", errorCount)

	if successCount > 0 {
		fmt.Println("\nCatalog:")
		all, err := manager.GetAllBooks()
		if err != nil {
			fmt.Printf("Error retrieving books: %v\n", err)
			return
		}
		fmt.Printf("%-3s %-40s %-25s %s\n", "ID", "Title", "Author", "Copies")
		fmt.Println(strings.Repeat("-", 80))
		for _, book := range all {
			fmt.Printf("%-3d %-40s %-25s %d\n",
				book.ID, truncateString(book.Title, 40), truncateString(book.Author, 25), book.TotalCopies)
		}
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
