package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/leplonghi/Horamed-AG-sub003/common/database"
	"github.com/leplonghi/Horamed-AG-sub003/common/logger"
	"github.com/leplonghi/Horamed-AG-sub003/internal/config"
	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
	"github.com/leplonghi/Horamed-AG-sub003/internal/repository"
)

// Prints one user's medications, dose window and stock, then checks the
// dose table for rows that break the (medication_id, due_at) key or are
// stuck in scheduled.
//
//	go run ./scripts/check <user_id>
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	log, err := logger.NewLogger(cfg.Log.Level, "console", "horamed-check")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	if len(os.Args) < 2 {
		log.Fatal("usage: check <user_id>")
	}
	userID := os.Args[1]

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	now := time.Now()
	meds := repository.NewPostgresMedicationRepo(db, log)
	doses := repository.NewPostgresDoseRepo(db, log)
	stock := repository.NewPostgresStockRepo(db, log)

	fmt.Printf("\n=== Checking user: %s ===\n\n", userID)

	// 1. medications
	list, err := meds.ListMedications(ctx, userID, true)
	if err != nil {
		log.Fatal("Failed to list medications", zap.Error(err))
	}
	fmt.Println("MEDICATIONS:")
	fmt.Printf("  %-38s %-24s %-12s %-6s\n", "medication_id", "name", "category", "active")
	for _, m := range list {
		fmt.Printf("  %-38s %-24s %-12s %-6v\n", m.MedicationID, m.Name, m.Category, m.Active)
	}

	// 2. dose window
	window, err := doses.ListDoses(ctx, userID, now.Add(-24*time.Hour), now.Add(time.Duration(cfg.Schedule.WindowDays)*24*time.Hour), repository.DoseFilter{})
	if err != nil {
		log.Fatal("Failed to list doses", zap.Error(err))
	}
	counts := map[models.DoseStatus]int{}
	for _, d := range window {
		counts[d.Status]++
	}
	fmt.Printf("\nDOSES (last 24h + next %d days): %d\n", cfg.Schedule.WindowDays, len(window))
	for _, st := range []models.DoseStatus{models.DoseScheduled, models.DoseTaken, models.DoseMissed, models.DoseSkipped} {
		fmt.Printf("  %-10s %d\n", st, counts[st])
	}

	// 3. stock
	records, err := stock.ListStock(ctx, userID)
	if err != nil {
		log.Fatal("Failed to list stock", zap.Error(err))
	}
	fmt.Println("\nSTOCK:")
	for _, r := range records {
		projected := "-"
		if r.ProjectedDepletionAt != nil {
			projected = r.ProjectedDepletionAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("  %-38s qty=%-5d unit=%-12s depletes=%s\n", r.MedicationID, r.Quantity, r.Unit, projected)
	}

	// 4. invariants
	fmt.Println("\nCHECKS:")
	var duplicates int
	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM (
			SELECT medication_id, due_at
			FROM dose_instances
			WHERE profile_id = $1
			GROUP BY medication_id, due_at
			HAVING COUNT(*) > 1
		) d
	`, userID).Scan(&duplicates)
	if err != nil {
		log.Fatal("Failed to check duplicate doses", zap.Error(err))
	}
	fmt.Printf("  duplicate (medication_id, due_at) keys: %d %s\n", duplicates, mark(duplicates == 0))

	var stale int
	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM dose_instances
		WHERE profile_id = $1 AND status = 'scheduled' AND due_at < $2
	`, userID, now.Add(-cfg.Schedule.MissedGrace)).Scan(&stale)
	if err != nil {
		log.Fatal("Failed to check stale doses", zap.Error(err))
	}
	fmt.Printf("  scheduled doses older than %s: %d %s\n", cfg.Schedule.MissedGrace, stale, mark(stale == 0))

	var negative []string
	for _, r := range records {
		if r.Quantity < 0 {
			negative = append(negative, r.MedicationID)
		}
	}
	fmt.Printf("  negative stock: %s %s\n", strings.Join(negative, ","), mark(len(negative) == 0))
}

func mark(ok bool) string {
	if ok {
		return "OK"
	}
	return "FAIL"
}
