package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/inkhouse/backoffice/pkg/config"
	"github.com/inkhouse/backoffice/pkg/db"
	"github.com/inkhouse/backoffice/pkg/logger"
	"github.com/inkhouse/backoffice/pkg/migrate"
)

const (
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	cmd := flag.String("cmd", "up", "up|down|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "ledger migrations directory")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "migrate"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	// create and validate only touch the filesystem.
	switch *cmd {
	case "create":
		if *name == "" {
			usage("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			fail(context.Background(), logg, "create migration", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			fail(context.Background(), logg, "validate migrations", err)
		}
		fmt.Println("migrations valid")
		return
	case "up", "down", "status":
	case "version":
		if *version == "" {
			usage("missing -version for version")
		}
	default:
		usage("unknown -cmd value: " + *cmd)
	}

	cfg, err := config.Load()
	if err != nil {
		fail(context.Background(), logg, "load config", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		fail(ctx, logg, "bootstrap database", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()
	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		fail(ctx, logg, "extract sql.DB", err)
	}

	switch *cmd {
	case "up":
		// A malformed file would otherwise stop goose halfway through the set.
		if err := migrate.ValidateDir(*dir); err != nil {
			fail(ctx, logg, "validate migrations", err)
		}
		runGoose(ctx, logg, sqlDB, *dir, "up")
		printLedgerStatus(ctx, logg, dbClient)
	case "down":
		runGoose(ctx, logg, sqlDB, *dir, "down")
	case "status":
		runGoose(ctx, logg, sqlDB, *dir, "status")
		printLedgerStatus(ctx, logg, dbClient)
	case "version":
		if err := migrate.ValidateDir(*dir); err != nil {
			fail(ctx, logg, "validate migrations", err)
		}
		if err := migrate.MigrateToVersion(ctx, sqlDB, *dir, *version); err != nil {
			fail(ctx, logg, "migrate to version "+*version, err)
		}
		printLedgerStatus(ctx, logg, dbClient)
	}
}

func runGoose(ctx context.Context, logg *logger.Logger, sqlDB *sql.DB, dir, command string) {
	if err := migrate.Run(ctx, sqlDB, dir, command); err != nil {
		fail(ctx, logg, "goose "+command, err)
	}
	logg.Info(ctx, "goose "+command+" completed")
}

func printLedgerStatus(ctx context.Context, logg *logger.Logger, client *db.Client) {
	statuses, err := migrate.LedgerStatus(ctx, client)
	if err != nil {
		fail(ctx, logg, "read ledger status", err)
	}
	missing := 0
	for _, st := range statuses {
		if !st.Present {
			missing++
			fmt.Printf("%-28s missing\n", st.Table)
			continue
		}
		fmt.Printf("%-28s %d rows\n", st.Table, st.Rows)
	}
	if missing > 0 {
		logg.Warn(logg.WithField(ctx, "missing_tables", missing), "ledger schema incomplete")
	}
}

func usage(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	flag.Usage()
	os.Exit(exitUsage)
}

func fail(ctx context.Context, logg *logger.Logger, action string, err error) {
	logg.Error(ctx, action+" failed", err)
	os.Exit(exitFailure)
}
