package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/mainframe-ci/endevor-fetch/internal/credentials"
	"github.com/mainframe-ci/endevor-fetch/internal/fetch"
	"github.com/mainframe-ci/endevor-fetch/internal/jobstore"
	"github.com/mainframe-ci/endevor-fetch/internal/log"
	"github.com/mainframe-ci/endevor-fetch/internal/migrate"
	"github.com/mainframe-ci/endevor-fetch/internal/model"
	"github.com/mainframe-ci/endevor-fetch/internal/registry"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

var (
	userConfigPath string // default config directory for this OS
	configPath     string // actual config file used (if loaded)
	config         model.Config

	flagConfigFilePath string // value of --config flag
	flagVerbose        bool   // value of --verbose flag
	flagWorkspace      string // value of --workspace flag
	flagParallel       int    // value of --parallel flag
)

func init() {
	d, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	userConfigPath = filepath.Join(d, "endevor-fetch")
}

func main() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFilePath, "config", "", "Config file to load - default is endevor-fetch.yaml in current directory or in "+userConfigPath)
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")

	fetchCmd.Flags().StringVar(&flagWorkspace, "workspace", ".", "workspace root, every job downloads into <workspace>/<job-id>")
	fetchCmd.Flags().IntVar(&flagParallel, "parallel", 2, "how many jobs to download at once")

	connectionsCmd.AddCommand(connectionsListCmd)
	connectionsCmd.AddCommand(connectionsAddCmd)

	connectionsAddCmd.Flags().String("description", "", "connection description")
	connectionsAddCmd.Flags().String("host", "", "mainframe host")
	connectionsAddCmd.Flags().String("port", "", "mainframe port")
	connectionsAddCmd.Flags().String("protocol", "", "encryption protocol, empty or 'none' to disable")
	connectionsAddCmd.Flags().String("code-page", "", "EBCDIC code page")
	connectionsAddCmd.Flags().String("timeout", "", "connection timeout in seconds")
	_ = connectionsAddCmd.MarkFlagRequired("host")
	_ = connectionsAddCmd.MarkFlagRequired("port")
	_ = connectionsAddCmd.MarkFlagRequired("code-page")

	// never print messages
	rootCmd.SilenceErrors = true

	// parse or create a config, setup logging
	rootCmd.PersistentPreRunE = initConfig

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(connectionsCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("endevor-fetch failed", "err", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "endevor-fetch",
	Short:        "Downloads Endevor source members through the Topaz SCM Downloader CLI",
	SilenceUsage: true,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [job-id ...]",
	Short: "fetch downloads the sources of the named jobs (all jobs when none are named)",
	RunE:  doFetch,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "migrate rewrites legacy hostPort/codePage job settings to registry connections",
	RunE:  doMigrate,
}

var connectionsCmd = &cobra.Command{
	Use:   "connections",
	Short: "connections inspects and extends the host connection registry",
}

var connectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "list registered host connections",
	RunE:  doConnectionsList,
}

var connectionsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "add a host connection to the registry",
	RunE:  doConnectionsAdd,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provides the version of endevor-fetch",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("endevor-fetch: version info not available")
			return
		}

		if configPath != "" {
			fmt.Printf("config: %s\n", configPath)
		}
		fmt.Printf("endevor-fetch: %s\n", info.Main.Version)
		fmt.Printf("go:            %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Printf("commit: %s\n", s.Value)
			case "vcs.time":
				fmt.Printf("date:   %s\n", s.Value)
			case "vcs.modified":
				fmt.Printf("dirty:  %s\n", s.Value)
			}
		}
	},
}

func doFetch(cmd *cobra.Command, args []string) error {
	ctx := log.ContextAttrs(cmd.Context(), slog.Group("endevor-fetch",
		slog.String("cmd", "fetch"),
		slog.Int("pid", os.Getpid()),
	))

	reg, jobs, cleanup, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	creds, err := credentials.Load(resolve(config.Credentials.File))
	if err != nil {
		return err
	}

	// normalize-and-persist stage: runs once, before any download
	if err := migrate.NewSweeper(reg, jobs).Sweep(ctx); err != nil {
		return err
	}

	selected, err := selectJobs(ctx, reg, jobs, args)
	if err != nil {
		return err
	}

	node := fetch.NewLocalNode(config.CLI.Dir)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(flagParallel)
	for _, job := range selected {
		g.Go(func() error {
			// downloads are independent, each gets its own workspace
			workspace, err := filepath.Abs(filepath.Join(flagWorkspace, job.ID))
			if err != nil {
				return err
			}
			d := fetch.NewDownloader(reg, creds, job)
			if err := d.GetSource(gctx, node, workspace, os.Stdout); err != nil {
				return fmt.Errorf("job %s: %w", job.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func doMigrate(cmd *cobra.Command, _ []string) error {
	ctx := log.ContextAttrs(cmd.Context(), slog.Group("endevor-fetch",
		slog.String("cmd", "migrate"),
		slog.Int("pid", os.Getpid()),
	))

	reg, jobs, cleanup, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	return migrate.NewSweeper(reg, jobs).Sweep(ctx)
}

func doConnectionsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	reg, _, cleanup, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	conns, err := reg.List(ctx)
	if err != nil {
		return err
	}
	for _, conn := range conns {
		fmt.Printf("%s\t%s\t%s\t%s\t%q\n",
			conn.ID, conn.HostPort(), conn.CodePage, conn.Protocol, conn.Description)
	}
	return nil
}

func doConnectionsAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	reg, _, cleanup, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	flag := cmd.Flags().Lookup
	hostPort := flag("host").Value.String() + ":" + flag("port").Value.String()
	conn := model.NewHostConnection(
		flag("description").Value.String(),
		hostPort,
		flag("code-page").Value.String(),
		flag("protocol").Value.String(),
		flag("timeout").Value.String(),
	)
	if err := reg.Add(ctx, conn); err != nil {
		return err
	}

	// Add suppresses duplicates, report the surviving entry
	stored, err := reg.FindByHostAndCodePage(ctx, conn.HostPort(), conn.CodePage)
	if err != nil {
		return err
	}
	fmt.Println(stored.ID)
	return nil
}

// openStores opens the sqlite connection registry (seeding configured
// connections) and the job store.
func openStores(ctx context.Context) (*registry.Store, *jobstore.Store, func(), error) {
	reg, err := registry.Open(ctx, resolve(config.Registry.Path))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening connection registry: %w", err)
	}
	if err := registry.Seed(ctx, reg, config.Connections); err != nil {
		_ = reg.Close()
		return nil, nil, nil, fmt.Errorf("seeding connection registry: %w", err)
	}

	jobs := jobstore.New(resolve(config.Jobs.Dir))
	cleanup := func() {
		if err := reg.Close(); err != nil {
			slog.Warn("closing connection registry", "error", err)
		}
	}
	return reg, jobs, cleanup, nil
}

func selectJobs(ctx context.Context, reg registry.Registry, jobs *jobstore.Store, ids []string) ([]model.JobConfig, error) {
	var out []model.JobConfig
	if len(ids) == 0 {
		all, err := jobs.List(ctx)
		if err != nil {
			return nil, err
		}
		out = all
	} else {
		out = make([]model.JobConfig, 0, len(ids))
		for _, id := range ids {
			cfg, err := jobs.Load(ctx, id)
			if err != nil {
				return nil, err
			}
			out = append(out, cfg)
		}
	}

	// normalize again after loading: a legacy job whose upgraded form the
	// sweep could not write back still builds against the registry entry
	for i := range out {
		if _, err := migrate.Normalize(ctx, reg, &out[i]); err != nil {
			return nil, fmt.Errorf("job %s: %w", out[i].ID, err)
		}
	}
	return out, nil
}

// resolve interprets a config-relative path against the config file's
// directory, so a config can keep its registry and jobs next to itself.
func resolve(path string) string {
	if filepath.IsAbs(path) || configPath == "" {
		return path
	}
	return filepath.Join(filepath.Dir(configPath), path)
}

func initConfig(_ *cobra.Command, _ []string) error {
	if envConfig, ok := os.LookupEnv("ENDEVOR_FETCH_CONFIG"); ok {
		configPath = envConfig
	} else if flagConfigFilePath != "" {
		configPath = flagConfigFilePath
	} else {
		for _, d := range []string{userConfigPath, "."} {
			path := filepath.Join(d, "endevor-fetch.yaml")
			if exists(path) {
				configPath = path
				break
			}
		}
	}

	// store default configuration
	if configPath == "" {
		config = model.DefaultConfig()
		configPath = filepath.Join(userConfigPath, "endevor-fetch.yaml")
		err := os.MkdirAll(filepath.Dir(configPath), 0755)
		if err != nil {
			return fmt.Errorf("creating directory %s: %w", filepath.Dir(configPath), err)
		}

		f, err := os.Create(configPath)
		if err != nil {
			return fmt.Errorf("creating file %s: %w", configPath, err)
		}
		defer func() {
			_ = f.Close()
		}()
		enc := yaml.NewEncoder(f)
		if err := enc.Encode(config); err != nil {
			return fmt.Errorf("storing configuration: %w", err)
		}
	} else {
		f, err := os.Open(configPath)
		if err != nil {
			return fmt.Errorf("opening config file: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		config, err = model.LoadConfig(f)
		if err != nil {
			for _, d := range model.CueErrDetails(err) {
				slog.Error("invalid configuration", d.Attr("detail"))
			}
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	// --verbose has precedence over the config file
	verbose := flagVerbose
	target := log.Stderr
	if config.Log != nil {
		if config.Log.Verbose != nil && !verbose {
			verbose = *config.Log.Verbose
		}
		if config.Log.Target != nil {
			target = *config.Log.Target
		}
	}
	slog.SetDefault(log.New(target, verbose))

	slog.Debug("endevor-fetch run", "configPath", configPath)
	return nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
