package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/Joseda-hg/lazytodo/internal/tui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRootCommand builds the command tree. Running it without a subcommand
// starts the terminal UI.
func NewRootCommand(version string) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "lazytodo",
		Short: "Terminal to-do list with tags, subtasks and undo",
		Long: `lazytodo keeps a to-do list with tags, priorities, due dates and subtasks.

Without a subcommand it opens the terminal UI. Pass --web to also serve
the JSON API while the UI runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(flags)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file path")
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file with LAZYTODO_* overrides")
	pf.StringVar(&flags.dbPath, "db", "", "sqlite db path")
	pf.StringVar(&flags.store, "store", "", "storage backend: sqlite, bolt or memory")
	pf.BoolVar(&flags.web, "web", false, "enable web server")
	pf.IntVar(&flags.port, "port", 0, "web server port")
	pf.BoolVar(&flags.ephemeral, "ephemeral", false, "keep everything in memory and leave the config untouched")

	rootCmd.AddCommand(
		newServeCommand(flags),
		newListCommand(flags),
		newAddCommand(flags),
		newToggleCommand(flags),
		newRemoveCommand(flags),
		newTagsCommand(flags),
	)
	return rootCmd
}

// Execute runs the root command.
func Execute(version string) error {
	if err := NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func runTUI(flags *globalFlags) error {
	a, err := openApp(flags)
	if err != nil {
		return err
	}
	defer a.Close()

	var opts []tui.Option
	if a.cfg.WebEnabled {
		srv := newHTTPServer(a)
		go func() {
			a.log.Info("web server listening", zap.String("addr", srv.Addr))
			if err := serveHTTP(srv); err != nil {
				a.log.Error("web server error", zap.Error(err))
			}
		}()
		defer shutdownHTTP(srv, a.log)
		opts = append(opts, tui.WithRefresh(time.Second))
	}

	return tui.Run(a.engine, a.log, opts...)
}
