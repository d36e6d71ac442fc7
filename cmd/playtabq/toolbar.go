package main

import (
	"context"
	"os"

	"github.com/bananameter/playtabq/pkg/executor/headless"
	"github.com/bananameter/playtabq/pkg/executor/tui"
)

// runTUI draws the toolbar in the terminal.
func runTUI(ctx context.Context, d *daemon) error {
	executor := tui.NewExecutor(tui.Config{
		Tabs:     d.browser,
		Settings: d.settings,
		Matcher:  d.matcher,
		Logger:   d.log.With("tui"),
	})

	ctrl, stop, err := d.start(ctx, executor)
	if err != nil {
		return err
	}
	defer stop()

	return executor.Run(ctx, ctrl)
}

// runHeadless logs the toolbar and reads click commands from stdin.
func runHeadless(ctx context.Context, d *daemon) error {
	console := headless.NewLogger(headless.ParseLogLevel(d.cfg.Logging.Verbosity))
	executor := headless.NewExecutor(d.browser, console, d.log.With("headless"))

	ctrl, stop, err := d.start(ctx, executor)
	if err != nil {
		return err
	}
	defer stop()

	console.Successf("browser connected (%s backend)", d.cfg.Backend)
	return executor.Run(ctx, ctrl, os.Stdin)
}
