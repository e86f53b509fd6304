package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/showsync/internal/shared"
	"github.com/desertthunder/showsync/internal/ui"
)

// TUI launches the interactive terminal UI for reviewing the queue and running a sync.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/showsync-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	unlock, err := r.lock()
	if err != nil {
		return err
	}
	defer unlock()

	s, err := r.repositories(ctx)
	if err != nil {
		return err
	}
	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, s.queue, s.runs, engine)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
