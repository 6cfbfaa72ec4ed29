// Package main is a diagnostic tool for testing database connectivity and
// inspecting live platform data. It connects using the same configuration as
// the server, pings the database, and prints row counts for the core tables.
// The binary exits non-zero on any failure so it can gate deployments on a
// reachable, migrated database.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/prism-hq/prism-server/internal/config"
	"github.com/prism-hq/prism-server/internal/db"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer database.Close()

	fmt.Printf("Connected to %s:%d/%s\n\n", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)

	tables := []string{"users", "projects", "memberships", "invitations", "dashboards", "reports", "segments", "audit_logs"}
	for _, table := range tables {
		count, err := countRows(database, table)
		if err != nil {
			log.Fatalf("Failed to count %s: %v", table, err)
		}
		fmt.Printf("%-12s %d\n", table, count)
	}
}

func countRows(database *sql.DB, table string) (int64, error) {
	var count int64
	err := database.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
	return count, err
}
