// cleanup-test-data removes test-like batches from the database. Farming records, inspections,
// logistics records, feedback, alerts and disposals go with them via cascade.
//
// A batch is test-like when its variety matches one of (case-insensitive):
// - ^test
// - test$
// - ^debug
// - ^dummy
// - ^sample
// - ^example
// - ^测试
//
// Usage: go run ./scripts/cleanup-test-data [-dry-run=false] [-before=2025-01-01]
//
// Database connection: Uses standard PG* environment variables
//
// Flags:
//
//	-dry-run   Show what would be deleted without actually deleting (default: true)
//	-before    Only consider batches created before this date (YYYY-MM-DD)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
)

// testVarietyPatterns are matched with PostgreSQL's ~* operator.
var testVarietyPatterns = []string{
	`^test`,
	`test$`,
	`^debug`,
	`^dummy`,
	`^sample`,
	`^example`,
	`^测试`,
}

func main() {
	dryRun := flag.Bool("dry-run", true, "Show what would be deleted without actually deleting")
	before := flag.String("before", "", "Only consider batches created before this date (YYYY-MM-DD)")
	flag.Parse()

	cutoff := time.Now().Add(24 * time.Hour)
	if *before != "" {
		t, err := time.Parse(time.DateOnly, *before)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -before date: %v\n", err)
			os.Exit(1)
		}
		cutoff = t
	}

	ctx := context.Background()

	conn, err := pgx.Connect(ctx, buildConnString())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	if *dryRun {
		fmt.Println("DRY RUN - no changes will be made")
		fmt.Println("Run with -dry-run=false to actually delete batches")
		fmt.Println()
	}

	totalDeleted := 0
	for _, pattern := range testVarietyPatterns {
		count, err := cleanupTestBatches(ctx, conn, pattern, cutoff, *dryRun)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error cleaning pattern %q: %v\n", pattern, err)
			os.Exit(1)
		}
		totalDeleted += count
	}

	if *dryRun {
		fmt.Printf("\nTotal batches that would be deleted: %d\n", totalDeleted)
	} else {
		fmt.Printf("\nTotal batches deleted: %d\n", totalDeleted)
	}
}

// cleanupTestBatches deletes batches whose variety matches pattern.
// If dryRun is true, it only lists them along with their alert counts.
func cleanupTestBatches(ctx context.Context, conn *pgx.Conn, pattern string, cutoff time.Time, dryRun bool) (int, error) {
	if dryRun {
		rows, err := conn.Query(ctx, `
			SELECT b.batch_no, b.variety, b.status,
			       (SELECT COUNT(*) FROM alerts a WHERE a.batch_id = b.id)
			FROM batches b
			WHERE b.variety ~* $1
			  AND b.created_at < $2
			ORDER BY b.created_at
		`, pattern, cutoff)
		if err != nil {
			return 0, fmt.Errorf("query failed: %w", err)
		}
		defer rows.Close()

		var count int
		for rows.Next() {
			var batchNo, variety, status string
			var alerts int
			if err := rows.Scan(&batchNo, &variety, &status, &alerts); err != nil {
				return 0, fmt.Errorf("scan failed: %w", err)
			}
			count++
			fmt.Printf("  [%s] %s %q (%s, %d alerts)\n", pattern, batchNo, truncate(variety, 40), status, alerts)
		}
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("rows iteration failed: %w", err)
		}

		if count == 0 {
			fmt.Printf("  [%s] No matching batches\n", pattern)
		}
		return count, nil
	}

	result, err := conn.Exec(ctx, `
		DELETE FROM batches
		WHERE variety ~* $1
		  AND created_at < $2
	`, pattern, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}

	count := int(result.RowsAffected())
	fmt.Printf("Deleted %d batches matching pattern: %s\n", count, pattern)
	return count, nil
}

func buildConnString() string {
	host := getEnvOrDefault("PGHOST", "localhost")
	port := getEnvOrDefault("PGPORT", "5432")
	user := getEnvOrDefault("PGUSER", "melontrace")
	password := os.Getenv("PGPASSWORD")
	dbname := getEnvOrDefault("PGDATABASE", "melontrace")

	connStr := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
		host, port, user, dbname)
	if password != "" {
		connStr += fmt.Sprintf(" password=%s", password)
	}
	return connStr
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// truncate shortens s to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
