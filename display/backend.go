package display

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

// Button identifies a control panel input.
type Button int

const (
	ButtonNext Button = iota
	ButtonPrev
	ButtonSelect
	ButtonWrite
	ButtonDevices
	ButtonExit
)

func (b Button) String() string {
	switch b {
	case ButtonNext:
		return "next"
	case ButtonPrev:
		return "prev"
	case ButtonSelect:
		return "select"
	case ButtonWrite:
		return "write"
	case ButtonDevices:
		return "devices"
	case ButtonExit:
		return "exit"
	}
	return "unknown"
}

// ButtonEvent is a press or release of a button.
type ButtonEvent struct {
	Button  Button
	Pressed bool
	At      time.Time
}

// Backend is a character display with buttons.
type Backend interface {
	Name() string
	Size() (cols, rows int)
	Clear() error
	Write(col, row int, text string) error
	DrawGlyph(col, row, index int) error
	StoreGlyph(index int, bitmap Bitmap) error
	Scroll(left bool) error
	// SignalError flags a failure to the operator, e.g. by blinking.
	SignalError() error
	// Alert draws attention at startup.
	Alert() error
	Buttons() <-chan ButtonEvent
	// Prompt takes over the display until the operator has entered a value.
	Prompt(label, format string) (string, error)
	Close() error
}

// New returns the named backend. "auto" picks the terminal when attached to
// one and falls back to headless.
func New(name string, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch name {
	case "terminal":
		return NewTerminal(nil, logger)
	case "headless":
		return NewHeadless(logger), nil
	case "auto", "":
		if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
			t, err := NewTerminal(nil, logger)
			if err == nil {
				return t, nil
			}
			logger.Warn("Terminal display unavailable, running headless", slog.String("error", err.Error()))
		}
		return NewHeadless(logger), nil
	}
	return nil, fmt.Errorf("unknown display backend %q", name)
}

// PromptText renders a prompt format with the answer typed so far.
func PromptText(format, answer string) string {
	if strings.Contains(format, "%s") {
		return strings.Replace(format, "%s", answer, 1)
	}
	return format + answer
}
