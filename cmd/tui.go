package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/genie/internal/shared"
	"github.com/desertthunder/genie/internal/ui"
	"github.com/urfave/cli/v3"
)

const defaultTUILog = "./tmp/genie-tui.log"

// TUI launches the interactive meal plan and chat UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	logPath := r.config.Log.File
	if logPath == "" {
		logPath = defaultTUILog
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	if err := shared.ApplyLogLevel(fileLogger, r.config.Log.Level); err != nil {
		fileLogger.Warn("ignoring log level", "error", err)
	}
	r.SetLogger(fileLogger)

	session, err := r.authenticate(ctx)
	if err != nil {
		return err
	}
	defer r.saveSession(context.WithoutCancel(ctx))

	if r.mealPlans != nil {
		if cached, err := r.cachedPlans(ctx, ""); err == nil {
			r.store.UpsertFromFetch(cached)
		}
	}

	manager, stop := r.startRealtime(ctx, session, false)
	defer stop()

	model := ui.NewModel(ctx, ui.Deps{
		Conn:   manager,
		Store:  r.store,
		Plans:  r.engine,
		Chats:  r.chats,
		Logger: fileLogger,
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
