package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"safestep/internal/config"
	"safestep/internal/logger"
	"safestep/internal/repository/sqlite"
	"safestep/internal/service/storage"
)

func main() {
	cfg := config.Load()

	imagesDir := flag.String("images", cfg.ImageDirectory, "Directory containing snapshots")
	dbPath := flag.String("db", cfg.DatabasePath, "Database path")
	reindex := flag.Bool("reindex", false, "Record snapshot files missing from the database")
	pruneDays := flag.Int("prune-days", 0, "Delete detection events older than this many days (0 keeps all)")
	flag.Parse()

	if !*reindex && *pruneDays <= 0 {
		flag.Usage()
		return
	}

	l := logger.NewLogger(cfg)
	defer l.Close()

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if *reindex {
		fmt.Printf("Indexing snapshots from %s into %s\n", *imagesDir, *dbPath)
		added, skipped, err := storage.Reindex(*imagesDir, sqlite.NewImageRepository(db), l)
		if err != nil {
			log.Fatalf("Reindex failed: %v", err)
		}
		fmt.Printf("✅ Indexed %d snapshots\n", added)
		if skipped > 0 {
			fmt.Printf("⚠️  Skipped %d files (invalid name or errors)\n", skipped)
		}
	}

	if *pruneDays > 0 {
		events := sqlite.NewEventRepository(db)
		cutoff := time.Now().AddDate(0, 0, -*pruneDays)
		deleted, err := events.DeleteBefore(cutoff)
		if err != nil {
			log.Fatalf("Prune failed: %v", err)
		}

		remaining, err := events.Count(nil)
		if err != nil {
			log.Fatalf("Failed to count events: %v", err)
		}
		fmt.Printf("🧹 Deleted %d events older than %s (%d remaining)\n", deleted, cutoff.Format(time.RFC3339), remaining)
	}
}
