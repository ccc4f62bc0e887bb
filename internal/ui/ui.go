package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/sift/internal/state"
)

// Options configure the watch view.
type Options struct {
	Store        *state.Store
	ThemeName    string
	RefreshEvery time.Duration
	Output       io.Writer
}

// Result reports how the view ended.
type Result struct {
	ThemeName string
	Aborted   bool
}

// Run renders the store until every tracked task is done, the user quits, or
// ctx is cancelled.
func Run(ctx context.Context, opts Options) (Result, error) {
	if opts.Store == nil {
		return Result{}, fmt.Errorf("ui requires a data store")
	}

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Output != nil {
		programOpts = append(programOpts, tea.WithOutput(opts.Output))
	}

	m := NewModel(opts.Store, opts.ThemeName, opts.RefreshEvery)
	final, err := tea.NewProgram(m, programOpts...).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return Result{ThemeName: m.ThemeName(), Aborted: true}, ctx.Err()
		}
		return Result{}, fmt.Errorf("run watch view: %w", err)
	}

	fm, ok := final.(Model)
	if !ok {
		return Result{ThemeName: m.ThemeName()}, nil
	}
	return Result{ThemeName: fm.ThemeName(), Aborted: fm.Aborted()}, nil
}
