package cmd

import (
	"fmt"

	"github.com/Iron-Ham/handoff/internal/config"
	"github.com/Iron-Ham/handoff/internal/tui"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Start the interactive dispatcher demo",
	Long: `Start a terminal UI that spawns background tasks on the current screen.

Keys:
  n  spawn a task that succeeds
  f  spawn a task that fails
  p  spawn a task that panics
  c  close the current screen; its pending tasks are discarded
  q  quit

Set logging.enabled and logging.dir to watch the dispatcher's decisions
in handoff.log while the demo runs.`,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Close() }()

	return tui.New(cfg, logger).Run()
}
