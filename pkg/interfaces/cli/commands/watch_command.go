package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vsinha/capitation/pkg/infrastructure/config"
)

// WatchCommand runs the pipeline once and again after every policy file change
type WatchCommand struct {
	config Config
	runner *RunCommand
	logger *slog.Logger
}

// NewWatchCommand creates a new watch command; a nil logger uses slog.Default()
func NewWatchCommand(config Config, logger *slog.Logger) *WatchCommand {
	if logger == nil {
		logger = slog.Default()
	}
	return &WatchCommand{
		config: config,
		runner: NewRunCommand(config, logger),
		logger: logger,
	}
}

// Execute blocks until ctx is cancelled. A failed rerun is logged and the
// watcher keeps going; only the initial run's failure is returned.
func (c *WatchCommand) Execute(ctx context.Context) error {
	if c.config.ConfigPath == "" {
		return fmt.Errorf("validation error: a policy file is required")
	}

	policy, err := config.Load(c.config.ConfigPath)
	if err != nil {
		return err
	}
	if _, err := c.runner.run(ctx, policy); err != nil {
		return err
	}

	return config.Watch(ctx, c.config.ConfigPath, func(policy *config.Config) {
		result, err := c.runner.run(ctx, policy)
		if err != nil {
			c.logger.Error("watch: rerun failed", "error", err)
			return
		}
		c.logger.Info("watch: rerun completed", "run_id", result.RunID, "warnings", result.WarningCount())
	})
}
