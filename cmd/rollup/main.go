// FilePath: cmd/rollup/main.go
// One-shot rollup runner for cron-external setups and manual reruns. The
// hub binary schedules the same cycle internally when
// retention.rollup_enabled is set.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/greenmind-iot/hub/internal/config"
	"github.com/greenmind-iot/hub/internal/database"
	"github.com/greenmind-iot/hub/internal/repository/postgres"
	"github.com/greenmind-iot/hub/internal/rollup"
	nuts "github.com/vaudience/go-nuts"
)

func main() {
	nuts.InitVersion()
	nuts.L.Infof("[Rollup] Starting one-shot rollup v%s", nuts.GetVersion())

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewPostgresDB(cfg.Database)
	if err != nil {
		nuts.L.Fatalf("[Rollup] Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	engine := rollup.New(postgres.NewRollupStore(db), cfg.Retention)
	if err := engine.RunCycle(ctx); err != nil {
		nuts.L.Errorf("[Rollup] Cycle failed: %v", err)
		os.Exit(1)
	}
}
