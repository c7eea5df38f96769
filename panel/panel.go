package panel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bakery/catalog"
	"bakery/device"
	"bakery/display"
	"bakery/flash"
	apperrors "bakery/internal/errors"
)

// Up to two adapters fit on the device row.
const (
	maxSlots  = 2
	slotWidth = 8
)

// Images is the catalog as seen from the panel.
type Images interface {
	Len() int
	Current() (catalog.Image, bool)
	Next() (catalog.Image, bool)
	Prev() (catalog.Image, bool)
	Select()
	CurrentIsSelected() bool
	Target() (catalog.Image, bool)
	Subscribe(h func())
}

// Devices is the registry as seen from the panel.
type Devices interface {
	DeviceCount() int
	DeviceAt(i int) (device.Device, bool)
	FirstPresent() (device.Device, bool)
	Subscribe(h device.Handler)
}

// Writer runs a write to completion.
type Writer interface {
	Write(ctx context.Context, device string, img catalog.Image, sink flash.Sink) bool
}

type Options struct {
	LongPress time.Duration // hold time of the write button
	Dwell     time.Duration // completion and failure screens
	Notice    time.Duration // guard messages such as "No disk present"
	Cells     int
	Logger    *slog.Logger
}

type mode int

const (
	modeMenu mode = iota
	modeDevices
)

// Panel is the button driven menu on a two line display.
type Panel struct {
	backend  display.Backend
	reporter *display.Reporter
	images   Images
	devices  Devices
	writer   Writer
	opts     Options
	logger   *slog.Logger

	bar       *display.ProgressBar
	glyphs    sync.Once
	changed   chan struct{}
	rescanned chan struct{}

	mode      mode
	devView   int
	pressedAt time.Time

	// drawn device row
	slots     int
	slotState []bool
}

func New(backend display.Backend, reporter *display.Reporter, images Images, devices Devices, writer Writer, opts Options) *Panel {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.LongPress <= 0 {
		opts.LongPress = 5 * time.Second
	}
	if opts.Dwell <= 0 {
		opts.Dwell = 5 * time.Second
	}
	if opts.Notice <= 0 {
		opts.Notice = 2 * time.Second
	}
	if opts.Cells <= 0 {
		opts.Cells = display.DefaultCells
	}

	p := &Panel{
		backend:   backend,
		reporter:  reporter,
		images:    images,
		devices:   devices,
		writer:    writer,
		opts:      opts,
		logger:    opts.Logger,
		bar:       display.NewProgressBar(opts.Cells, display.DefaultLevels, 1),
		changed:   make(chan struct{}, 1),
		rescanned: make(chan struct{}, 1),
	}
	devices.Subscribe(func(device.Event) {
		select {
		case p.changed <- struct{}{}:
		default:
		}
	})
	images.Subscribe(func() {
		select {
		case p.rescanned <- struct{}{}:
		default:
		}
	})
	return p
}

// Menu runs the panel until the exit button, ctx cancellation or the end of
// the button stream.
func (p *Panel) Menu(ctx context.Context) error {
	p.storeGlyphs()

	if err := p.backend.Alert(); err != nil {
		p.logger.Warn("Display alert failed", slog.String("error", err.Error()))
	}
	p.refresh()

	buttons := p.backend.Buttons()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.changed:
			if p.mode == modeDevices {
				p.showDevice()
			} else {
				p.devicesLine(false)
			}
		case <-p.rescanned:
			if p.mode == modeMenu {
				p.imageLine()
			}
		case ev, ok := <-buttons:
			if !ok {
				return nil
			}
			if ev.Button == display.ButtonExit && ev.Pressed {
				p.logger.Info("Exit requested from panel")
				return nil
			}
			p.handle(ctx, ev)
		}
	}
}

func (p *Panel) handle(ctx context.Context, ev display.ButtonEvent) {
	if ev.Button == display.ButtonWrite {
		p.handleWrite(ctx, ev)
		return
	}
	if !ev.Pressed {
		return
	}

	if p.mode == modeDevices {
		if ev.Button == display.ButtonDevices {
			p.devView++
			p.showDevice()
			return
		}
		p.mode = modeMenu
		p.refresh()
		return
	}

	switch ev.Button {
	case display.ButtonNext:
		p.images.Next()
		p.imageLine()
	case display.ButtonPrev:
		p.images.Prev()
		p.imageLine()
	case display.ButtonSelect:
		p.images.Select()
		p.imageLine()
	case display.ButtonDevices:
		p.mode = modeDevices
		p.devView = 0
		p.showDevice()
	}
}

// handleWrite starts a write when the button is released after being held
// for at least LongPress. Shorter presses do nothing.
func (p *Panel) handleWrite(ctx context.Context, ev display.ButtonEvent) {
	if ev.Pressed {
		p.pressedAt = ev.At
		return
	}
	pressedAt := p.pressedAt
	p.pressedAt = time.Time{}
	if pressedAt.IsZero() {
		return
	}
	held := ev.At.Sub(pressedAt)
	if held < p.opts.LongPress {
		p.logger.Debug("Write button released early", slog.Duration("held", held))
		return
	}
	p.mode = modeMenu
	p.trigger(ctx)
}

func (p *Panel) trigger(ctx context.Context) {
	dev, ok := p.devices.FirstPresent()
	if !ok {
		p.notice(ctx, "No disk present")
		return
	}
	img, ok := p.images.Target()
	if !ok {
		p.notice(ctx, "No image")
		return
	}

	p.logger.Info("Write triggered", slog.String("device", dev.Path), slog.String("image", img.Name))
	if p.writer.Write(ctx, dev.Path, img, &sink{p: p}) {
		p.reporter.Enqueue(
			display.Clear{},
			display.Write{Col: 0, Row: 0, Text: "    FINISHED    "},
		)
	} else {
		p.reporter.Enqueue(
			display.Clear{},
			display.Write{Col: 0, Row: 0, Text: "Write failed"},
			display.Write{Col: 0, Row: 1, Text: "Try again"},
		)
		p.signalError()
	}
	p.wait(ctx, p.opts.Dwell)
	p.refresh()
}

// notice drops whatever is queued, shows msg and returns to the menu.
func (p *Panel) notice(ctx context.Context, msg string) {
	p.reporter.ClearQueue()
	p.reporter.Enqueue(
		display.Clear{},
		display.Write{Col: 0, Row: 0, Text: msg},
	)
	p.wait(ctx, p.opts.Notice)
	p.refresh()
}

// ShowError puts err on the display for the dwell time.
func (p *Panel) ShowError(ctx context.Context, err error) {
	p.storeGlyphs()
	msg := "Error"
	detail := err.Error()
	var appErr *apperrors.AppError
	if apperrors.IsAppError(err, &appErr) {
		msg = appErr.Message
		detail = appErr.Op
	}
	cols, _ := p.backend.Size()
	p.reporter.Enqueue(
		display.Clear{},
		display.Write{Col: 0, Row: 0, Text: truncate(msg, cols)},
		display.Write{Col: 0, Row: 1, Text: truncate(detail, cols)},
	)
	p.signalError()
	p.wait(ctx, p.opts.Dwell)
	p.refresh()
}

// storeGlyphs registers the level glyphs once. They sit on the reporter's
// second tier, so it waits for them before anything can draw one.
func (p *Panel) storeGlyphs() {
	p.reporter.Start()
	p.glyphs.Do(func() {
		p.reporter.Enqueue(p.bar.Glyphs()...)
		p.reporter.Flush()
	})
}

func (p *Panel) signalError() {
	p.reporter.Flush()
	if err := p.backend.SignalError(); err != nil {
		p.logger.Warn("Display error signal failed", slog.String("error", err.Error()))
	}
}

func (p *Panel) wait(ctx context.Context, d time.Duration) {
	p.reporter.Flush()
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (p *Panel) refresh() {
	p.reporter.Enqueue(display.Clear{})
	p.imageLine()
	p.devicesLine(true)
}

func (p *Panel) imageLine() {
	cols, _ := p.backend.Size()
	img, ok := p.images.Current()
	if !ok {
		p.reporter.Enqueue(display.Write{Col: 0, Row: 0, Text: "No images", Blank: true})
		return
	}
	text := truncate(img.Name, cols)
	if p.images.CurrentIsSelected() {
		text = truncate(img.Name, cols-1) + "*"
	}
	p.reporter.Enqueue(display.Write{Col: 0, Row: 0, Text: text, Blank: true})
}

// devicesLine draws one slot per adapter: the media glyph or '_' followed by
// the node name. Unless rewrite is set only changed markers are redrawn.
func (p *Panel) devicesLine(rewrite bool) {
	count := p.devices.DeviceCount()
	if rewrite || count != p.slots {
		p.slots = count
		p.slotState = p.slotState[:0]
		for i := 0; i < maxSlots; i++ {
			col := i * slotWidth
			dev, ok := p.devices.DeviceAt(i)
			if !ok {
				p.reporter.Enqueue(display.Write{Col: col, Row: 1, Text: "        "})
				continue
			}
			p.slotState = append(p.slotState, dev.Present)
			p.reporter.Enqueue(
				p.marker(col, dev.Present),
				display.Write{Col: col + 1, Row: 1, Text: fmt.Sprintf(" %-6s", truncate(dev.Name(), 6))},
			)
		}
		return
	}

	for i, was := range p.slotState {
		present := false
		if dev, ok := p.devices.DeviceAt(i); ok {
			present = dev.Present
		}
		if present != was {
			p.slotState[i] = present
			p.reporter.Enqueue(p.marker(i*slotWidth, present))
		}
	}
}

func (p *Panel) marker(col int, present bool) display.Directive {
	if present {
		return display.DrawGlyph{Col: col, Row: 1, Index: p.bar.FullGlyph()}
	}
	return display.Write{Col: col, Row: 1, Text: "_"}
}

// showDevice shows one adapter per page; the devices button pages through.
func (p *Panel) showDevice() {
	count := p.devices.DeviceCount()
	cols, _ := p.backend.Size()
	p.reporter.Enqueue(display.Clear{})
	if count == 0 {
		p.reporter.Enqueue(display.Write{Col: 0, Row: 0, Text: "No devices"})
		return
	}
	dev, ok := p.devices.DeviceAt(p.devView % count)
	if !ok {
		return
	}
	status := "no media"
	if dev.Present {
		status = "media present"
	}
	p.reporter.Enqueue(
		display.Write{Col: 0, Row: 0, Text: truncate(dev.Name()+" "+dev.Model, cols)},
		display.Write{Col: 0, Row: 1, Text: status},
	)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n < 0 {
		n = 0
	}
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
