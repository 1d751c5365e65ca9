// fuelx-accessctl is the administrative companion to fuelx-access: schema
// migrations, catalog seeding, permission renames, and audit retention.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/akivmoovex/fuelx-crm-sub001/pkg/access"
	"github.com/akivmoovex/fuelx-crm-sub001/pkg/audit"
	"github.com/akivmoovex/fuelx-crm-sub001/pkg/config"
	"github.com/akivmoovex/fuelx-crm-sub001/pkg/directory"
	"github.com/akivmoovex/fuelx-crm-sub001/pkg/storage/postgres"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: fuelx-accessctl <command> [flags]

Commands:
  migrate              Apply schema migrations
  seed                 Seed default grants and menu items
  rename-permissions   Rename catalog permissions from a JSON plan file
  retention            Delete audit events past the retention window

`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	command := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	switch command {
	case "migrate":
		runMigrate(ctx, db)
	case "seed":
		runSeed(ctx, db)
	case "rename-permissions":
		runRename(ctx, db, os.Args[2:])
	case "retention":
		runRetention(ctx, db, cfg, os.Args[2:])
	default:
		usage()
	}
}

func runMigrate(ctx context.Context, db *sql.DB) {
	if err := access.RunMigrations(ctx, db); err != nil {
		log.Fatalf("Migrations failed: %v", err)
	}
	log.Println("Migrations applied")
}

func runSeed(ctx context.Context, db *sql.DB) {
	catalog := access.NewCatalog(db)
	if err := access.SeedDefaultGrants(ctx, catalog); err != nil {
		log.Fatalf("Failed to seed grants: %v", err)
	}
	log.Println("Default grants seeded")

	store := directory.NewStore(db)
	if err := store.SeedMenu(ctx, directory.DefaultMenu()); err != nil {
		log.Fatalf("Failed to seed menu: %v", err)
	}
	log.Println("Default menu seeded")

	auditStore := audit.NewStore(db)
	if err := auditStore.EnsureSchema(ctx); err == nil {
		_ = auditStore.Insert(ctx, &audit.Event{
			EventType: audit.EventTypeSeed,
			Status:    audit.EventStatusSuccess,
			Message:   "default grants and menu seeded",
		})
	}
}

// renamePlan is the JSON file format consumed by rename-permissions.
type renamePlan struct {
	Old []access.PermissionKey `json:"old"`
	New []access.PermissionDef `json:"new"`
}

func runRename(ctx context.Context, db *sql.DB, args []string) {
	fs := flag.NewFlagSet("rename-permissions", flag.ExitOnError)
	planPath := fs.String("plan", "", "Path to a JSON rename plan file")
	fs.Parse(args)

	if *planPath == "" {
		log.Fatal("--plan is required")
	}

	data, err := os.ReadFile(*planPath)
	if err != nil {
		log.Fatalf("Failed to read plan: %v", err)
	}
	var plan renamePlan
	if err := json.Unmarshal(data, &plan); err != nil {
		log.Fatalf("Invalid plan file: %v", err)
	}

	catalog := access.NewCatalog(db)
	if err := catalog.RenamePermissions(ctx, plan.Old, plan.New); err != nil {
		log.Fatalf("Rename failed, no changes applied: %v", err)
	}
	log.Printf("Renamed %d permissions to %d definitions", len(plan.Old), len(plan.New))
}

func runRetention(ctx context.Context, db *sql.DB, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("retention", flag.ExitOnError)
	runOnce := fs.Bool("run-once", false, "Run one sweep and exit")
	schedule := fs.String("schedule", "30 0 * * *", "Cron schedule for the sweep (default: 00:30 UTC)")
	fs.Parse(args)

	store := audit.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure audit schema: %v", err)
	}

	sweep := func() {
		cutoff := time.Now().UTC().AddDate(0, 0, -cfg.Audit.RetentionDays)
		deleted, err := store.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			log.Printf("Retention sweep failed: %v", err)
			return
		}
		log.Printf("Retention sweep deleted %d events older than %s", deleted, cutoff.Format("2006-01-02"))
		_ = store.Insert(ctx, &audit.Event{
			EventType: audit.EventTypeRetentionSweep,
			Status:    audit.EventStatusSuccess,
			Message:   fmt.Sprintf("deleted %d events older than %s", deleted, cutoff.Format(time.RFC3339)),
			Metadata:  map[string]interface{}{"deleted": deleted, "cutoff": cutoff.Format(time.RFC3339)},
		})
	}

	if *runOnce {
		sweep()
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(*schedule, sweep); err != nil {
		log.Fatalf("Failed to schedule retention sweep: %v", err)
	}
	c.Start()
	log.Printf("Retention sweep scheduled: %s", *schedule)

	<-ctx.Done()
	log.Println("Shutting down")
	cronCtx := c.Stop()
	<-cronCtx.Done()
}
