package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Alimustoofaa/Stream-Log/internal/api"
	"github.com/Alimustoofaa/Stream-Log/internal/config"
	"github.com/Alimustoofaa/Stream-Log/internal/logging"
	"github.com/Alimustoofaa/Stream-Log/internal/metrics"
)

// Set by -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "streamlog",
		Short:        "Stream the tail of a dated log tree to the browser",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the log viewer HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath, cmd)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "config file (yaml, toml or json)")
	_ = cmd.MarkFlagFilename("config", "yaml", "yml", "toml", "json")
	f.String("log-root", "", "root of the YYYY/MM/DD log tree")
	f.String("image-root", "", "root of the YYYY/MM/DD image tree")
	f.String("log-file", "", "default log file name under the log root")
	f.Duration("poll-interval", 0, "how often each stream re-reads the log")
	f.Int("tail-lines", 0, "lines sent per stream message")
	f.String("host", "", "bind host")
	f.IntP("port", "p", 0, "bind port")
	f.String("static-dir", "", "serve /static from this directory instead of the built-in assets")
	f.String("title", "", "page title")
	f.String("log-level", "", "log level (debug, info, warn, error)")
	f.String("log-format", "", "log format (text, json)")
	return cmd
}

func serve(ctx context.Context, configPath string, cmd *cobra.Command) error {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := api.New(ctx, cfg, logger, metrics.New())
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"version":    version,
		"log_root":   cfg.LogRoot,
		"image_root": cfg.ImageRoot,
		"log_file":   cfg.LogFile,
	}).Info("starting streamlog")
	return srv.Run(ctx)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "streamlog %s (%s)\n", version, commit)
		},
	}
}
