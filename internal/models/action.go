package models

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ErrEmptyCommand is returned when a command action has no argv.
var ErrEmptyCommand = errors.New("empty command")

// CommandAction starts a detached process.
type CommandAction struct {
	Label string
	Argv  []string
}

// Name returns the action label, defaulting to "Run".
func (a *CommandAction) Name() string {
	if a.Label != "" {
		return a.Label
	}
	return "Run"
}

// Run starts the command without waiting for it to exit.
func (a *CommandAction) Run(ctx context.Context) error {
	if len(a.Argv) == 0 {
		return ErrEmptyCommand
	}
	cmd := exec.Command(a.Argv[0], a.Argv[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", a.Argv[0], err)
	}
	return cmd.Process.Release()
}

// URLAction opens a URL with the desktop's default handler.
type URLAction struct {
	URL string
	// Opener is the helper binary; defaults to xdg-open.
	Opener string
}

// Name returns "Open URL".
func (a *URLAction) Name() string { return "Open URL" }

// Run hands the URL to the opener.
func (a *URLAction) Run(ctx context.Context) error {
	opener := a.Opener
	if opener == "" {
		opener = "xdg-open"
	}
	return (&CommandAction{Argv: []string{opener, a.URL}}).Run(ctx)
}

// FuncAction adapts a function to Action. Used by tests and simple providers.
type FuncAction struct {
	Label string
	Fn    func(ctx context.Context) error
}

// Name returns the label.
func (a *FuncAction) Name() string { return a.Label }

// Run calls Fn.
func (a *FuncAction) Run(ctx context.Context) error {
	if a.Fn == nil {
		return nil
	}
	return a.Fn(ctx)
}
