// Command tasktrail-import copies tasks and task logs from a legacy Flask
// tasks.db (tables "task" and "task_log") into the PostgreSQL schema.
//
// Usage:
//
//	LEGACY_DB=/path/to/tasks.db DATABASE_URL=postgres://... tasktrail-import
//
// Everything is written in one transaction: either every row lands or none
// does. Task and log ids are preserved and the id sequences are moved past
// the imported values.
package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// settings holds environment-driven import settings.
type settings struct {
	LegacyPath  string
	DatabaseURL string
	DryRun      bool
}

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := loadSettings()
	if cfg.DatabaseURL == "" && !cfg.DryRun {
		log.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.WithFields(logrus.Fields{
		"legacy_db": cfg.LegacyPath,
		"dry_run":   cfg.DryRun,
	}).Info("starting import")

	start := time.Now()
	r, err := runImport(ctx, cfg, log)
	r.Duration = time.Since(start)
	if err != nil {
		r.Err = err
		log.WithError(err).Error("import failed")
	}

	printReport(os.Stdout, &r)
	if err != nil {
		stop()
		os.Exit(1)
	}
}

func loadSettings() settings {
	return settings{
		LegacyPath:  envOr("LEGACY_DB", "tasks.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DryRun:      os.Getenv("DRY_RUN") == "true" || os.Getenv("DRY_RUN") == "1",
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// sanitizeURL removes credentials from a database URL for display.
func sanitizeURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[unparseable URL]"
	}
	u.User = nil
	return u.String()
}

// runImport reads the legacy file, converts its rows and writes them to
// PostgreSQL unless cfg.DryRun is set.
func runImport(ctx context.Context, cfg settings, log *logrus.Logger) (report, error) {
	r := report{
		Source: cfg.LegacyPath,
		Target: sanitizeURL(cfg.DatabaseURL),
		DryRun: cfg.DryRun,
	}

	legacy, err := openLegacy(cfg.LegacyPath)
	if err != nil {
		return r, err
	}
	defer legacy.Close()

	rawTasks, err := readLegacyTasks(ctx, legacy)
	if err != nil {
		return r, fmt.Errorf("read tasks: %w", err)
	}
	rawLogs, err := readLegacyLogs(ctx, legacy)
	if err != nil {
		return r, fmt.Errorf("read task logs: %w", err)
	}
	r.TasksRead, r.LogsRead = len(rawTasks), len(rawLogs)
	log.WithFields(logrus.Fields{"tasks": r.TasksRead, "logs": r.LogsRead}).Info("read legacy rows")

	tasks, taskSkips := convertTasks(rawTasks)
	logs, logSkips := convertLogs(rawLogs)
	r.Skipped = append(taskSkips, logSkips...)

	if cfg.DryRun {
		log.Info("dry run, skipping PostgreSQL writes")
		r.TasksInserted, r.LogsInserted = len(tasks), len(logs)
		return r, nil
	}

	if err := writeAll(ctx, cfg.DatabaseURL, tasks, logs, &r, log); err != nil {
		return r, err
	}
	return r, nil
}
