package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"driveschool/internal/database"
	"driveschool/internal/modules/billing"
)

// Reclassifies unpaid/partially paid invoices past their due date as
// overdue. Idempotent; intended for cron.
func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	svc := billing.NewService(db, 0, log.Printf)

	affected, err := svc.SweepOverdue(context.Background(), time.Now().UTC())
	if err != nil {
		log.Fatalf("overdue sweep failed: %v", err)
	}

	log.Printf("overdue sweep completed: invoices=%d", affected)
}
