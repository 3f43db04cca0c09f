// Package main provides a read-only inspection tool for the DocMark
// database.
//
// Usage:
//
//	DATA_PATH=~/DocMark/data go run ./cmd/dbinspect
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

func main() {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/DocMark/data")
	}
	dbPath := filepath.Join(dataPath, "docmark.db")

	db, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	for _, table := range []string{"users", "documents", "segments", "categories", "tags", "segment_associations", "sync_logs"} {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			log.Fatalf("Failed to count %s: %v", table, err)
		}
		fmt.Printf("%-22s %d\n", table, count)
	}

	fmt.Println()
	fmt.Println("Segments per document:")
	rows, err := db.Query(`
		SELECT d.title, d.is_active, COUNT(s.id)
		FROM documents d
		LEFT JOIN segments s ON s.document_id = d.id
		GROUP BY d.id
		ORDER BY COUNT(s.id) DESC`)
	if err != nil {
		log.Fatalf("Failed to query documents: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var title string
		var active bool
		var segments int
		if err := rows.Scan(&title, &active, &segments); err != nil {
			log.Fatalf("Failed to scan row: %v", err)
		}
		status := "active"
		if !active {
			status = "inactive"
		}
		fmt.Printf("  %-40s %-8s %d\n", title, status, segments)
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("Row iteration failed: %v", err)
	}

	fmt.Println()
	fmt.Println("Orphan check (segments whose document is gone):")
	var orphans int
	err = db.QueryRow(`
		SELECT COUNT(*)
		FROM segments s
		LEFT JOIN documents d ON d.id = s.document_id
		WHERE d.id IS NULL`).Scan(&orphans)
	if err != nil {
		log.Fatalf("Failed to count orphans: %v", err)
	}
	fmt.Printf("  %d\n", orphans)
}
