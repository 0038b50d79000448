package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/kingdom-assetgen/internal/batch"
	"github.com/example/kingdom-assetgen/internal/blob"
	"github.com/example/kingdom-assetgen/internal/catalog"
	"github.com/example/kingdom-assetgen/internal/comfy"
	"github.com/example/kingdom-assetgen/internal/config"
	"github.com/example/kingdom-assetgen/internal/job"
	"github.com/example/kingdom-assetgen/internal/logutil"
	"github.com/example/kingdom-assetgen/internal/store"
	"github.com/example/kingdom-assetgen/internal/workflow"
)

// options holds the persistent flags and what they resolve to.
type options struct {
	configPath string
	logLevel   string

	cfg    config.Config
	logger *zap.Logger
}

func (o *options) addFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&o.configPath, "config", "", "path of a TOML config file (default $"+config.EnvConfigFile+")")
	cmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "log level (debug|info|warn|error), overrides the config")
}

// complete loads the configuration and builds the logger.
func (o *options) complete() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	logger, err := logutil.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.logger = logger
	return nil
}

func (o *options) client() *comfy.Client {
	return comfy.New(o.cfg.ServerURL,
		comfy.WithTimeout(o.cfg.HTTPTimeout),
		comfy.WithLogger(o.logger.Named("comfy")),
	)
}

func (o *options) openLedger() (*store.SQLite, error) {
	if err := os.MkdirAll(o.cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir data dir: %w", err)
	}
	ledger, err := store.Open(filepath.Join(o.cfg.DataDir, "jobs.db"))
	if err != nil {
		return nil, fmt.Errorf("open job ledger: %w", err)
	}
	return ledger, nil
}

func (o *options) driver(ledger batch.Ledger) *batch.Driver {
	client := o.client()
	logger := o.logger
	opts := []batch.Option{
		batch.WithLogger(logger.Named("batch")),
		batch.WithWorkflowDir(o.cfg.WorkflowDir),
		batch.WithPolling(catalog.KindImage, o.cfg.Image.Interval, o.cfg.Image.MaxPolls),
		batch.WithPolling(catalog.KindAudio, o.cfg.Audio.Interval, o.cfg.Audio.MaxPolls),
	}
	if ledger != nil {
		opts = append(opts, batch.WithLedger(ledger))
	}
	return batch.NewDriver(
		job.NewResolver(client, o.cfg.ModelPreference, o.cfg.DefaultModel, logger.Named("resolver")),
		workflow.NewBuilder(o.cfg.PostProcessNode),
		job.NewRunner(client, logger.Named("runner")),
		job.NewFetcher(client, blob.LocalFS{Root: o.cfg.AssetRoot}, logger.Named("fetcher")),
		opts...,
	)
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:           "assetgen",
		Short:         "Generate game art and audio with a node-graph diffusion server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.complete()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if o.logger != nil {
				_ = o.logger.Sync()
			}
		},
	}
	o.addFlags(cmd)

	for _, name := range catalog.Names() {
		cmd.AddCommand(newCmdCategory(o, name))
	}
	cmd.AddCommand(newCmdAll(o))
	cmd.AddCommand(newCmdProbe(o))
	cmd.AddCommand(newCmdServe(o))
	cmd.AddCommand(newCmdJobs(o))
	return cmd
}
