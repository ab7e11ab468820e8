// Package backup takes scheduled logical dumps of the chat database.
// Only the postgres driver is supported; other drivers skip scheduling.
package backup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/onurbyrmv0/chat-relay/pkg/database"
	"github.com/onurbyrmv0/chat-relay/pkg/log"
)

// Scheduler runs pg_dump on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
	db   database.Config
	dir  string
}

// NewScheduler creates a backup scheduler writing dumps into dir.
func NewScheduler(db database.Config, dir string) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		db:   db,
		dir:  dir,
	}
}

// Start registers the schedule and begins running. Non-postgres drivers
// are skipped with a warning; dumps without pg_dump on PATH fail per
// run, not at startup.
func (s *Scheduler) Start(schedule string) error {
	if s.db.Driver != "postgres" {
		l := log.L()
		l.Warn().Str("driver", s.db.Driver).Msg("database backups only support postgres, skipping")
		return nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create backup dir: %w", err)
	}

	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	l := log.L()
	l.Info().Str("schedule", schedule).Str("dir", s.dir).Msg("database backups scheduled")
	return nil
}

// Stop halts the schedule and waits for a running dump to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) run() {
	l := log.L()
	start := time.Now()

	name := fmt.Sprintf("chat-backup-%s.sql", start.UTC().Format("20060102-150405"))
	path := filepath.Join(s.dir, name)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, "pg_dump",
		"--host", s.db.Host,
		"--port", strconv.Itoa(s.db.Port),
		"--username", s.db.User,
		"--dbname", s.db.DBName,
		"--file", path,
		"--no-owner",
	)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+s.db.Password)

	if out, err := cmd.CombinedOutput(); err != nil {
		l.Error().Err(err).Str("output", string(out)).Msg("database backup failed")
		os.Remove(path)
		return
	}

	l.Info().Str("file", path).Dur("took", time.Since(start)).Msg("database backup written")
}
