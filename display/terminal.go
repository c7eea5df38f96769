package display

import (
	"errors"
	"log/slog"
	"math/bits"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
)

const (
	lcdCols = 16
	lcdRows = 2
	// HD44780 style controllers keep 40 columns per line; Scroll moves the
	// visible window over them.
	lineMemory = 40

	// Terminals report key repeats, not releases. A held key is considered
	// released once repeats stop for this long.
	holdRelease = 750 * time.Millisecond
)

var levelRunes = []rune{' ', '▏', '▎', '▌', '▊', '█'}

// Terminal emulates a 16x2 character display with buttons in a tcell screen.
type Terminal struct {
	screen tcell.Screen
	logger *slog.Logger

	buttons chan ButtonEvent
	done    chan struct{}

	mu        sync.Mutex
	cells     [lcdRows][lineMemory]rune
	glyphs    map[int]Bitmap
	offset    int
	status    string
	prompt    chan *tcell.EventKey
	writeHeld bool
	release   *time.Timer
	closed    bool
}

var (
	styleFrame  = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleLCD    = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorGreenYellow)
	styleHelp   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleStatus = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
)

// NewTerminal takes over screen, or the controlling terminal when screen is nil.
func NewTerminal(screen tcell.Screen, logger *slog.Logger) (*Terminal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if screen == nil {
		var err error
		screen, err = tcell.NewScreen()
		if err != nil {
			return nil, err
		}
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.DisableMouse()
	screen.HideCursor()

	t := &Terminal{
		screen:  screen,
		logger:  logger,
		buttons: make(chan ButtonEvent, 32),
		done:    make(chan struct{}),
		glyphs:  make(map[int]Bitmap),
	}
	t.blank()
	t.render()

	go t.eventLoop()
	return t, nil
}

func (t *Terminal) blank() {
	for r := range t.cells {
		for c := range t.cells[r] {
			t.cells[r][c] = ' '
		}
	}
}

func (t *Terminal) Name() string { return "terminal" }

func (t *Terminal) Size() (int, int) { return lcdCols, lcdRows }

func (t *Terminal) Clear() error {
	t.mu.Lock()
	t.blank()
	t.offset = 0
	t.status = ""
	t.mu.Unlock()
	t.render()
	return nil
}

func (t *Terminal) Write(col, row int, text string) error {
	t.mu.Lock()
	t.putLocked(col, row, []rune(text))
	t.mu.Unlock()
	t.render()
	return nil
}

func (t *Terminal) putLocked(col, row int, runes []rune) {
	if row < 0 || row >= lcdRows {
		return
	}
	for i, r := range runes {
		if c := col + i; c >= 0 && c < lineMemory {
			t.cells[row][c] = r
		}
	}
}

func (t *Terminal) DrawGlyph(col, row, index int) error {
	t.mu.Lock()
	bitmap, ok := t.glyphs[index]
	r := '?'
	if ok {
		r = glyphRune(bitmap)
	}
	t.putLocked(col, row, []rune{r})
	t.mu.Unlock()
	t.render()
	if !ok {
		return errors.New("glyph slot not defined")
	}
	return nil
}

func (t *Terminal) StoreGlyph(index int, bitmap Bitmap) error {
	if index < 0 || index > 7 {
		return errors.New("glyph slot out of range")
	}
	t.mu.Lock()
	t.glyphs[index] = bitmap
	t.mu.Unlock()
	return nil
}

// glyphRune approximates a bitmap with a block character of similar width.
func glyphRune(b Bitmap) rune {
	widest := 0
	for _, row := range b {
		if n := bits.OnesCount8(row & 0x1f); n > widest {
			widest = n
		}
	}
	return levelRunes[widest]
}

func (t *Terminal) Scroll(left bool) error {
	t.mu.Lock()
	if left {
		t.offset = (t.offset + 1) % lineMemory
	} else {
		t.offset = (t.offset - 1 + lineMemory) % lineMemory
	}
	t.mu.Unlock()
	t.render()
	return nil
}

func (t *Terminal) SignalError() error {
	t.mu.Lock()
	t.status = "ERROR"
	t.mu.Unlock()
	t.render()
	return nil
}

func (t *Terminal) Alert() error {
	t.mu.Lock()
	t.status = "bakery ready"
	t.mu.Unlock()
	t.render()
	return nil
}

func (t *Terminal) Buttons() <-chan ButtonEvent { return t.buttons }

// Line returns the visible text of row.
func (t *Terminal) Line(row int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if row < 0 || row >= lcdRows {
		return ""
	}
	return strings.TrimRight(string(t.visibleLocked(row)), " ")
}

func (t *Terminal) visibleLocked(row int) []rune {
	out := make([]rune, lcdCols)
	for c := range out {
		out[c] = t.cells[row][(c+t.offset)%lineMemory]
	}
	return out
}

func (t *Terminal) render() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	s := t.screen
	s.Clear()

	// frame
	for x := 0; x < lcdCols+2; x++ {
		s.SetContent(x, 0, '─', nil, styleFrame)
		s.SetContent(x, lcdRows+1, '─', nil, styleFrame)
	}
	for y := 1; y <= lcdRows; y++ {
		s.SetContent(0, y, '│', nil, styleFrame)
		s.SetContent(lcdCols+1, y, '│', nil, styleFrame)
	}

	for row := 0; row < lcdRows; row++ {
		for c, r := range t.visibleLocked(row) {
			s.SetContent(c+1, row+1, r, nil, styleLCD)
		}
	}

	drawText(s, 0, lcdRows+2, "←/→ browse  s select  hold w write", styleHelp)
	drawText(s, 0, lcdRows+3, "d devices  q quit", styleHelp)
	if t.status != "" {
		drawText(s, 0, lcdRows+4, t.status, styleStatus)
	}
	s.Show()
}

func drawText(s tcell.Screen, x, y int, text string, style tcell.Style) {
	for i, r := range []rune(text) {
		s.SetContent(x+i, y, r, nil, style)
	}
}

func (t *Terminal) eventLoop() {
	defer close(t.done)
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			t.handleKey(ev)
		case *tcell.EventResize:
			t.screen.Sync()
			t.render()
		}
	}
}

func (t *Terminal) handleKey(ev *tcell.EventKey) {
	t.mu.Lock()
	prompt := t.prompt
	t.mu.Unlock()

	if prompt != nil {
		select {
		case prompt <- ev:
		default:
		}
		return
	}

	switch {
	case ev.Key() == tcell.KeyCtrlC || ev.Key() == tcell.KeyEscape || ev.Rune() == 'q':
		t.click(ButtonExit)
	case ev.Key() == tcell.KeyRight || ev.Rune() == 'n':
		t.click(ButtonNext)
	case ev.Key() == tcell.KeyLeft || ev.Rune() == 'p':
		t.click(ButtonPrev)
	case ev.Key() == tcell.KeyEnter || ev.Rune() == ' ' || ev.Rune() == 's':
		t.click(ButtonSelect)
	case ev.Rune() == 'd':
		t.click(ButtonDevices)
	case ev.Rune() == 'w':
		t.holdWrite()
	case ev.Rune() == 'W':
		t.toggleWrite()
	}
}

func (t *Terminal) emit(b Button, pressed bool) {
	select {
	case t.buttons <- ButtonEvent{Button: b, Pressed: pressed, At: time.Now()}:
	default:
		t.logger.Debug("Dropping button event", slog.String("button", b.String()))
	}
}

func (t *Terminal) click(b Button) {
	t.emit(b, true)
	t.emit(b, false)
}

// holdWrite turns a stream of key repeats into one press and one release.
func (t *Terminal) holdWrite() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.writeHeld {
		if t.release != nil {
			t.release.Reset(holdRelease)
		}
		return
	}
	t.writeHeld = true
	t.emit(ButtonWrite, true)
	t.release = time.AfterFunc(holdRelease, func() {
		t.mu.Lock()
		held := t.writeHeld
		t.writeHeld = false
		t.mu.Unlock()
		if held {
			t.emit(ButtonWrite, false)
		}
	})
}

// toggleWrite presses on the first W and releases on the second, for
// terminals that do not repeat keys.
func (t *Terminal) toggleWrite() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.release != nil {
		t.release.Stop()
		t.release = nil
	}
	t.writeHeld = !t.writeHeld
	t.emit(ButtonWrite, t.writeHeld)
}

// Prompt edits a value on row 1 until Enter.
func (t *Terminal) Prompt(label, format string) (string, error) {
	keys := make(chan *tcell.EventKey, 16)
	t.mu.Lock()
	t.prompt = keys
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.prompt = nil
		t.mu.Unlock()
	}()

	var answer []rune
	show := func() {
		t.mu.Lock()
		t.blank()
		t.offset = 0
		t.putLocked(0, 0, []rune(label))
		t.putLocked(0, 1, []rune(PromptText(format, string(answer))))
		t.mu.Unlock()
		t.render()
	}
	show()

	for {
		select {
		case <-t.done:
			return string(answer), errors.New("display closed")
		case ev := <-keys:
			switch ev.Key() {
			case tcell.KeyEnter:
				return string(answer), nil
			case tcell.KeyBackspace, tcell.KeyBackspace2:
				if len(answer) > 0 {
					answer = answer[:len(answer)-1]
				}
			case tcell.KeyRune:
				answer = append(answer, ev.Rune())
			}
			show()
		}
	}
}

func (t *Terminal) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	if t.release != nil {
		t.release.Stop()
	}
	t.mu.Unlock()

	t.screen.Fini()
	<-t.done
	return nil
}
