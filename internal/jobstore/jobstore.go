package jobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mainframe-ci/endevor-fetch/internal/model"
)

var ErrNotFound = errors.New("job not found")

// Store persists job configurations as one YAML file per job under dir.
// It stands in for the hosting framework's job persistence.
type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// List reads every job configuration in the directory, sorted by job id.
func (s *Store) List(ctx context.Context) ([]model.JobConfig, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading jobs directory %s: %w", s.dir, err)
	}

	var out []model.JobConfig
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cfg, err := s.load(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Load returns the configuration of a single job or ErrNotFound.
func (s *Store) Load(_ context.Context, id string) (model.JobConfig, error) {
	cfg, err := s.load(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return model.JobConfig{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cfg, err
}

// Save writes the configuration via a temporary file and rename, so a
// crashed save never leaves a truncated job file behind.
func (s *Store) Save(_ context.Context, cfg model.JobConfig) error {
	if cfg.ID == "" {
		return errors.New("job id is empty")
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding job %s: %w", cfg.ID, err)
	}

	tmp, err := os.CreateTemp(s.dir, cfg.ID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("saving job %s: %w", cfg.ID, err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("saving job %s: %w", cfg.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("saving job %s: %w", cfg.ID, err)
	}
	if err := os.Rename(tmp.Name(), s.path(cfg.ID)); err != nil {
		return fmt.Errorf("saving job %s: %w", cfg.ID, err)
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".yaml")
}

func (s *Store) load(path string) (model.JobConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.JobConfig{}, err
	}
	var cfg model.JobConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return model.JobConfig{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	if cfg.ID == "" {
		cfg.ID = strings.TrimSuffix(filepath.Base(path), ".yaml")
	}
	return cfg, nil
}
