// Package migrate rewrites job configurations that still carry inline
// hostPort/codePage settings to reference a named registry connection
// instead. Earlier releases stored the connection inline on every job; the
// registry replaced that with shared, identified entries.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mainframe-ci/endevor-fetch/internal/model"
	"github.com/mainframe-ci/endevor-fetch/internal/registry"
)

// Jobs is the slice of job persistence the sweeper needs.
type Jobs interface {
	List(ctx context.Context) ([]model.JobConfig, error)
	Save(ctx context.Context, cfg model.JobConfig) error
}

// Normalize is the explicit pipeline stage run on a configuration right
// after it has been read from persisted data. A configuration with both
// legacy fields set is resolved against the registry and stamped with the
// entry's identifier; anything else is left untouched.
//
// The legacy fields are not cleared, so a configuration that was migrated,
// reverted and loaded again simply resolves to the same registry entry;
// FindOrCreate makes the repeat harmless.
func Normalize(ctx context.Context, reg registry.Registry, cfg *model.JobConfig) (migrated bool, err error) {
	if !cfg.HasLegacyConnection() {
		return false, nil
	}

	conn, err := reg.FindOrCreate(ctx, cfg.HostPort, cfg.CodePage)
	if err != nil {
		return false, fmt.Errorf("resolving connection for job %s: %w", cfg.ID, err)
	}
	cfg.ConnectionID = conn.ID
	return true, nil
}

// Sweeper walks every job once per process lifetime, after all jobs have
// been loaded, and persists the ones Normalize rewrote.
type Sweeper struct {
	once sync.Once
	reg  registry.Registry
	jobs Jobs
}

func NewSweeper(reg registry.Registry, jobs Jobs) *Sweeper {
	return &Sweeper{
		reg:  reg,
		jobs: jobs,
	}
}

// Sweep migrates and saves jobs with legacy connection settings. A single
// job failing to migrate or save is logged and skipped, never aborting the
// sweep. Repeated calls are no-ops.
func (s *Sweeper) Sweep(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		err = s.sweep(ctx)
	})
	return err
}

func (s *Sweeper) sweep(ctx context.Context) error {
	slog.DebugContext(ctx, "all jobs loaded, checking for legacy connection settings")
	jobs, err := s.jobs.List(ctx)
	if err != nil {
		return fmt.Errorf("listing jobs: %w", err)
	}

	for _, job := range jobs {
		migrated, err := Normalize(ctx, s.reg, &job)
		if err != nil {
			slog.ErrorContext(ctx, "failed to migrate job", "job", job.ID, "error", err)
			continue
		}
		if !migrated {
			continue
		}
		if err := s.jobs.Save(ctx, job); err != nil {
			slog.ErrorContext(ctx, "failed to upgrade job", "job", job.ID, "error", err)
			continue
		}
		slog.InfoContext(ctx, "job has been migrated", "job", job.ID, "connectionId", job.ConnectionID)
	}
	return nil
}
