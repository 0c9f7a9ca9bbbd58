package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"brick/internal/driver"
	"brick/internal/hir"
	"brick/internal/ui"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	}
	return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

func shouldUseTUI(mode uiMode) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	}
	return isTerminal(os.Stdout)
}

type checkOutcome struct {
	res *driver.Result
	err error
}

// runCheckWithUI checks m in the background while a Bubble Tea program
// renders per-function progress.
func runCheckWithUI(ctx context.Context, title string, funcs []string, m *hir.Module, opts driver.Options) (*driver.Result, error) {
	events := make(chan driver.Event, 256)
	outcome := make(chan checkOutcome, 1)
	go func() {
		opts.Progress = driver.ChannelSink{Ch: events}
		res, err := driver.CheckModule(ctx, m, opts)
		outcome <- checkOutcome{res: res, err: err}
		close(events)
	}()

	program := tea.NewProgram(ui.NewProgressModel(title, funcs, events), tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// the program may quit early; keep the checker from blocking on a full channel
	go func() {
		for range events {
		}
	}()
	out := <-outcome
	if uiErr != nil {
		return out.res, uiErr
	}
	return out.res, out.err
}
