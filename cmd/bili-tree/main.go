package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bili-tree/internal/config"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
)

type app struct {
	v      *viper.Viper
	cfg    config.Config
	logger *log.Logger
}

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(versionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

func versionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	rootCmd := &cobra.Command{
		Use:   "bili-tree",
		Short: "Build a collection tree from downloaded videoInfo.json files",
		Long: `bili-tree scans a download directory for videoInfo.json metadata files,
groups the episodes into collection -> title -> tab and writes the
resulting tree as JSON or YAML.

Settings are read from config.json (or --config), overridden by
BILITREE_* environment variables and then by flags.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         a.runBuild,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default is ./config.json)")
	flags.String("root", "", "directory to scan")
	flags.StringP("output", "o", "", "output file (default is tree.json)")
	flags.String("format", "", "output format: json or yaml (default inferred from --output)")
	flags.IntP("workers", "w", 0, "parallel workers (default is the number of CPUs)")
	flags.StringArray("exclude", nil, "glob pattern, relative to root, to skip (repeatable, comma-separated)")
	flags.BoolP("verbose", "v", false, "enable debug logging")

	for _, name := range []string{"config", "root", "output", "format", "workers", "exclude", "verbose"} {
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(a.newBuildCmd())
	rootCmd.AddCommand(a.newWatchCmd())
	rootCmd.AddCommand(a.newStreamsCmd())
	rootCmd.AddCommand(a.newShowCmd())
	return rootCmd
}

// load resolves the configuration and the logger. Each command calls it
// first so help and completion work without a configured root.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger = log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Prefix:          "bili-tree",
		ReportTimestamp: true,
	})
	if cfg.Verbose {
		a.logger.SetLevel(log.DebugLevel)
	}
	if cfg.ConfigFile != "" {
		a.logger.Debugf("using config %s", cfg.ConfigFile)
	}
	return nil
}
