package display

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Headless logs what a display would show. Prompts are answered from
// BAKERY_VAR_<NAME> environment variables.
type Headless struct {
	logger  *slog.Logger
	buttons chan ButtonEvent

	mu    sync.Mutex
	lines [2][]rune
}

func NewHeadless(logger *slog.Logger) *Headless {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Headless{
		logger:  logger,
		buttons: make(chan ButtonEvent),
	}
	h.blank()
	return h
}

func (h *Headless) blank() {
	for i := range h.lines {
		h.lines[i] = []rune(strings.Repeat(" ", DefaultCells))
	}
}

func (h *Headless) Name() string { return "headless" }

func (h *Headless) Size() (int, int) { return DefaultCells, len(h.lines) }

func (h *Headless) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.blank()
	return nil
}

func (h *Headless) put(col, row int, r rune) {
	if row < 0 || row >= len(h.lines) || col < 0 || col >= len(h.lines[row]) {
		return
	}
	h.lines[row][col] = r
}

func (h *Headless) Write(col, row int, text string) error {
	h.mu.Lock()
	for i, r := range []rune(text) {
		h.put(col+i, row, r)
	}
	var line string
	if row >= 0 && row < len(h.lines) {
		line = strings.TrimRight(string(h.lines[row]), " ")
	}
	h.mu.Unlock()

	h.logger.Debug("Display", slog.Int("row", row), slog.String("text", line))
	return nil
}

func (h *Headless) DrawGlyph(col, row, index int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.put(col, row, '#')
	return nil
}

func (h *Headless) StoreGlyph(index int, bitmap Bitmap) error { return nil }

func (h *Headless) Scroll(left bool) error { return nil }

func (h *Headless) SignalError() error {
	h.logger.Warn("Display error signal", slog.String("row0", h.Line(0)), slog.String("row1", h.Line(1)))
	return nil
}

func (h *Headless) Alert() error {
	h.logger.Info("Display ready")
	return nil
}

// Buttons never delivers events.
func (h *Headless) Buttons() <-chan ButtonEvent { return h.buttons }

func (h *Headless) Prompt(label, format string) (string, error) {
	value := os.Getenv("BAKERY_VAR_" + strings.ToUpper(label))
	h.logger.Info("Answered prompt from environment",
		slog.String("variable", label),
		slog.String("prompt", PromptText(format, value)))
	return value, nil
}

func (h *Headless) Close() error { return nil }

// Line returns the current text of row without trailing blanks.
func (h *Headless) Line(row int) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if row < 0 || row >= len(h.lines) {
		return ""
	}
	return strings.TrimRight(string(h.lines[row]), " ")
}
