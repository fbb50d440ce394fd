package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"lodge-ops/internal/config"
	"lodge-ops/internal/database"
	"lodge-ops/internal/finance"
	"lodge-ops/internal/logger"
	"lodge-ops/internal/seed"
	"lodge-ops/internal/session"
	"lodge-ops/internal/session/db"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

func openDB(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	if cfg.Driver != database.DriverPostgres {
		return database.Open(ctx, cfg, log)
	}

	// --- PostgreSQL Setup ---
	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN))
	sqldb := sql.OpenDB(connector)
	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

func main() {
	reset := flag.Bool("reset", false, "drop and recreate the schema before seeding")
	flag.Parse()

	cfg := config.Load()
	log := logger.NewLogger()
	ctx := context.Background()

	bunDB, err := openDB(ctx, cfg.Database, log)
	if err != nil {
		log.Error("DATABASE", err.Error())
		os.Exit(1)
	}
	defer bunDB.Close()

	if *reset {
		if err := db.DropSchema(ctx, bunDB); err != nil {
			log.Error("DATABASE", fmt.Sprintf("Drop schema failed: %v", err))
			return
		}
		log.Info("DATABASE", "Schema dropped")
	}
	if err := db.CreateSchema(ctx, bunDB); err != nil {
		log.Error("DATABASE", fmt.Sprintf("Create schema failed: %v", err))
		return
	}

	store := &db.DB{Bun: bunDB}
	ledger := finance.NewLedger(bunDB)
	svc := session.NewService(store, ledger, session.NewLocalGuard(), session.NewMemoryReviews(), nil, nil, log, session.Options{
		Window: cfg.Attendance.RollingWindow,
		Streak: cfg.Attendance.AlertStreak,
	})

	res, err := seed.Run(ctx, store, ledger, svc)
	if err != nil {
		log.Error("SEED", err.Error())
		return
	}
	log.Info("SEED", fmt.Sprintf("Seeded %d members, %d accounts, %d events, %d sessions, %d transactions",
		res.Members, res.Accounts, res.Events, res.Sessions, res.Transactions))
}
