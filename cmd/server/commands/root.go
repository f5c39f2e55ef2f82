// Package commands wires the investhub command line: the web server, the
// terminal browser and database maintenance.
package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"investhub/internal/adapters/cms"
	"investhub/internal/adapters/http/perf"
	"investhub/internal/config"
	"investhub/internal/logging"
)

// version is set at build time via -ldflags "-X investhub/cmd/server/commands.version=..."
var version = "dev"

var (
	configPath string
	cfg        config.Config
	logCloser  io.Closer
)

// Execute runs the root command.
func Execute() error {
	root := &cobra.Command{
		Use:           "investhub",
		Short:         "Investment hub directory server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath, os.Getenv)
			if err != nil {
				return err
			}
			logCloser, err = logging.Setup(cfg.Log, logOutput(cmd))
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logCloser != nil {
				logCloser.Close()
			}
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("HUB_CONFIG"), "path to a YAML config file")

	root.AddCommand(serveCmd(), browseCmd(), migrateCmd())
	if err := root.Execute(); err != nil {
		slog.Error("command_failed", "error", err)
		return err
	}
	return nil
}

// logOutput keeps console logs off the terminal while the browser owns it.
// The rotating log file, when configured, still receives them.
func logOutput(cmd *cobra.Command) io.Writer {
	if cmd.Name() == "browse" {
		return io.Discard
	}
	return os.Stdout
}

// newContent builds the CMS fetcher, cached unless the TTL is negative.
func newContent(collector *perf.Collector) (cms.Fetcher, error) {
	client, err := cms.NewClient(cms.Options{
		BaseURL:   cfg.CMS.BaseURL,
		Token:     cfg.CMS.Token,
		Timeout:   cfg.CMS.Timeout,
		Collector: collector,
	})
	if err != nil {
		return nil, err
	}
	if cfg.CMS.CacheTTL < 0 {
		return client, nil
	}
	return cms.NewCachedClient(client, cfg.CMS.CacheSize, cfg.CMS.CacheTTL, cfg.CMS.Timeout), nil
}
