package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/modlingo/modlingo/internal/shared"
	"github.com/modlingo/modlingo/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive task monitor.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/modlingo-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	orch, db, err := r.openOrchestrator(config)
	if err != nil {
		return err
	}
	defer db.Close()

	model := ui.NewModel(ctx, orch)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
