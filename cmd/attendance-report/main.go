package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"lodge-ops/internal/config"
	"lodge-ops/internal/database"
	"lodge-ops/internal/finance"
	"lodge-ops/internal/logger"
	"lodge-ops/internal/reports"
	"lodge-ops/internal/session"
	"lodge-ops/internal/session/db"
	sessionredis "lodge-ops/internal/session/redis"

	"github.com/fatih/color"
	"github.com/go-redis/redis/v8"
)

func main() {
	xlsxPath := flag.String("xlsx", "", "write the attendance workbook to this path")
	sheetEvent := flag.String("sheet", "", "event id to render an attendance sheet for")
	sheetPath := flag.String("out", "attendance-sheet.pdf", "output path for -sheet")
	flag.Parse()

	cfg := config.Load()
	log := logger.NewLogger()
	ctx := context.Background()

	if err := run(ctx, cfg, log, *xlsxPath, *sheetEvent, *sheetPath); err != nil {
		log.Error("REPORT", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, xlsxPath, sheetEvent, sheetPath string) error {
	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer bunDB.Close()

	// Reviewed members only survive restarts when they live in Redis.
	var reviews session.ReviewStore = session.NewMemoryReviews()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer client.Close()
		reviews = sessionredis.NewRedis(client, cfg.Attendance.SaveLockTTL, log)
	}

	svc := session.NewService(&db.DB{Bun: bunDB}, finance.NewLedger(bunDB), session.NewLocalGuard(), reviews, nil, nil, log, session.Options{
		Window: cfg.Attendance.RollingWindow,
		Streak: cfg.Attendance.AlertStreak,
	})

	summary, err := svc.Summary(ctx)
	if err != nil {
		return err
	}
	members, err := svc.ListMembers(ctx)
	if err != nil {
		return err
	}

	color.New(color.Bold).Printf("Attendance over the last %d sessions: %.2f%%\n", summary.SessionsConsidered, summary.RollingPercentage)
	if len(summary.Alerts) == 0 {
		color.Green("No frequency alerts")
	} else {
		color.Red("%d frequency alert(s)", len(summary.Alerts))
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "MEMBER\tDEGREE\tABSENCES")
		for _, alert := range summary.Alerts {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", alert.Member.Name, alert.Member.Degree, alert.ConsecutiveUnjustifiedAbsences)
		}
		tw.Flush()
	}

	if xlsxPath != "" {
		sessions, rows, err := svc.RecentSessions(ctx)
		if err != nil {
			return err
		}
		content, err := reports.AttendanceWorkbook(reports.WorkbookData{
			Sessions:   sessions,
			Attendance: rows,
			Members:    members,
			Summary:    *summary,
		})
		if err != nil {
			return err
		}
		if err := os.WriteFile(xlsxPath, content, 0o644); err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
		log.Info("REPORT", fmt.Sprintf("Workbook written to %s", xlsxPath))
	}

	if sheetEvent != "" {
		detail, err := svc.GetSessionDetail(ctx, sheetEvent)
		if err != nil {
			return err
		}
		content, err := reports.NewSheetGenerator(cfg.Reports).Generate(*detail, members)
		if err != nil {
			return err
		}
		if err := os.WriteFile(sheetPath, content, 0o644); err != nil {
			return fmt.Errorf("write attendance sheet: %w", err)
		}
		log.Info("REPORT", fmt.Sprintf("Attendance sheet for %s written to %s", sheetEvent, sheetPath))
	}
	return nil
}
