package migrate_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mainframe-ci/endevor-fetch/internal/migrate"
	"github.com/mainframe-ci/endevor-fetch/internal/model"
	"github.com/mainframe-ci/endevor-fetch/internal/registry"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	type given struct {
		hostPort     string
		codePage     string
		connectionID string
	}
	type then struct {
		migrated     bool
		connectionID string // "" means unchanged from given
	}
	cases := []struct {
		scenario string
		given    given
		then     then
	}{
		{"legacy_fields_present", given{"MF1:1234", "037", ""}, then{true, "set"}},
		{"no_legacy_fields", given{"", "", ""}, then{false, ""}},
		{"host_port_only", given{"MF1:1234", "", ""}, then{false, ""}},
		{"code_page_only", given{"", "037", ""}, then{false, ""}},
		{"already_referencing", given{"", "", "existing-id"}, then{false, ""}},
	}

	for _, tc := range cases {
		t.Run(tc.scenario, func(t *testing.T) {
			reg := registry.NewMemory()
			cfg := model.JobConfig{
				ID:           "job",
				ConnectionID: tc.given.connectionID,
				HostPort:     tc.given.hostPort,
				CodePage:     tc.given.codePage,
			}

			migrated, err := migrate.Normalize(t.Context(), reg, &cfg)
			require.NoError(t, err)
			require.Equal(t, tc.then.migrated, migrated)

			if tc.then.connectionID == "set" {
				require.NotEmpty(t, cfg.ConnectionID)
			} else {
				require.Equal(t, tc.given.connectionID, cfg.ConnectionID)
			}
			// legacy fields survive migration untouched
			require.Equal(t, tc.given.hostPort, cfg.HostPort)
			require.Equal(t, tc.given.codePage, cfg.CodePage)
		})
	}
}

func TestNormalize_SharedConnection(t *testing.T) {
	reg := registry.NewMemory()
	ctx := t.Context()

	a := model.JobConfig{ID: "a", HostPort: "MF1:1234", CodePage: "037"}
	b := model.JobConfig{ID: "b", HostPort: "MF1:1234", CodePage: "037"}

	migrated, err := migrate.Normalize(ctx, reg, &a)
	require.NoError(t, err)
	require.True(t, migrated)
	migrated, err = migrate.Normalize(ctx, reg, &b)
	require.NoError(t, err)
	require.True(t, migrated)

	require.Equal(t, a.ConnectionID, b.ConnectionID)

	all, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "MF1:1234 037", all[0].Description)
}

func TestNormalize_RepeatedLoadReusesEntry(t *testing.T) {
	// Legacy fields are never cleared, so normalization re-runs on every
	// load of an old configuration and must keep resolving the same entry.
	reg := registry.NewMemory()
	ctx := t.Context()

	cfg := model.JobConfig{ID: "job", HostPort: "MF1:1234", CodePage: "037"}
	_, err := migrate.Normalize(ctx, reg, &cfg)
	require.NoError(t, err)
	first := cfg.ConnectionID

	_, err = migrate.Normalize(ctx, reg, &cfg)
	require.NoError(t, err)
	require.Equal(t, first, cfg.ConnectionID)

	all, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

// fakeJobs records saves and can fail them for chosen job ids.
type fakeJobs struct {
	mx     sync.Mutex
	jobs   []model.JobConfig
	failID string
	saved  []string
}

func (f *fakeJobs) List(context.Context) ([]model.JobConfig, error) {
	return f.jobs, nil
}

func (f *fakeJobs) Save(_ context.Context, cfg model.JobConfig) error {
	f.mx.Lock()
	defer f.mx.Unlock()
	if cfg.ID == f.failID {
		return errors.New("disk full")
	}
	f.saved = append(f.saved, cfg.ID)
	return nil
}

func TestSweep(t *testing.T) {
	reg := registry.NewMemory()
	jobs := &fakeJobs{
		jobs: []model.JobConfig{
			{ID: "legacy-1", HostPort: "MF1:1234", CodePage: "037"},
			{ID: "current", ConnectionID: "some-id"},
			{ID: "legacy-2", HostPort: "MF2:4321", CodePage: "1047"},
		},
	}

	sweeper := migrate.NewSweeper(reg, jobs)
	require.NoError(t, sweeper.Sweep(t.Context()))

	// only migrated jobs are persisted
	require.Equal(t, []string{"legacy-1", "legacy-2"}, jobs.saved)
}

func TestSweep_ContinuesPastFailedSave(t *testing.T) {
	reg := registry.NewMemory()
	jobs := &fakeJobs{
		jobs: []model.JobConfig{
			{ID: "first", HostPort: "MF1:1234", CodePage: "037"},
			{ID: "broken", HostPort: "MF2:1234", CodePage: "037"},
			{ID: "last", HostPort: "MF3:1234", CodePage: "037"},
		},
		failID: "broken",
	}

	sweeper := migrate.NewSweeper(reg, jobs)
	require.NoError(t, sweeper.Sweep(t.Context()))

	// the failing job is skipped, the rest still saved
	require.Equal(t, []string{"first", "last"}, jobs.saved)
}

func TestSweep_RunsOnce(t *testing.T) {
	reg := registry.NewMemory()
	jobs := &fakeJobs{
		jobs: []model.JobConfig{
			{ID: "legacy", HostPort: "MF1:1234", CodePage: "037"},
		},
	}

	sweeper := migrate.NewSweeper(reg, jobs)
	require.NoError(t, sweeper.Sweep(t.Context()))
	require.NoError(t, sweeper.Sweep(t.Context()))

	require.Equal(t, []string{"legacy"}, jobs.saved)
}
