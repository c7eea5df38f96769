package panel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"bakery/catalog"
	"bakery/device"
	"bakery/display"
	"bakery/flash"
	apperrors "bakery/internal/errors"
	"bakery/testdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	*display.Headless
	buttons chan display.ButtonEvent
	answers map[string]string

	mu         sync.Mutex
	prompts    []string
	signals    int
	stored     map[int]bool
	unexpected []int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		Headless: display.NewHeadless(nil),
		buttons:  make(chan display.ButtonEvent),
		answers:  map[string]string{},
		stored:   map[int]bool{},
	}
}

func (b *fakeBackend) StoreGlyph(index int, bitmap display.Bitmap) error {
	b.mu.Lock()
	b.stored[index] = true
	b.mu.Unlock()
	return b.Headless.StoreGlyph(index, bitmap)
}

// DrawGlyph fails for slots nothing was stored in, like a real character LCD.
func (b *fakeBackend) DrawGlyph(col, row, index int) error {
	b.mu.Lock()
	if !b.stored[index] {
		b.unexpected = append(b.unexpected, index)
		b.mu.Unlock()
		return fmt.Errorf("glyph slot %d not defined", index)
	}
	b.mu.Unlock()
	return b.Headless.DrawGlyph(col, row, index)
}

func (b *fakeBackend) storedGlyphs() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.stored)
}

func (b *fakeBackend) undefinedDraws() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.unexpected...)
}

func (b *fakeBackend) Buttons() <-chan display.ButtonEvent { return b.buttons }

func (b *fakeBackend) Prompt(label, format string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prompts = append(b.prompts, label)
	return b.answers[label], nil
}

func (b *fakeBackend) SignalError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signals++
	return nil
}

func (b *fakeBackend) errorSignals() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.signals
}

type fakeDevices struct {
	mu      sync.Mutex
	devs    []device.Device
	handler device.Handler
}

func (f *fakeDevices) set(devs ...device.Device) {
	f.mu.Lock()
	f.devs = devs
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(device.Attached{})
	}
}

func (f *fakeDevices) DeviceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.devs)
}

func (f *fakeDevices) DeviceAt(i int) (device.Device, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.devs) {
		return device.Device{}, false
	}
	return f.devs[i], true
}

func (f *fakeDevices) FirstPresent() (device.Device, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.devs {
		if d.Present {
			return d, true
		}
	}
	return device.Device{}, false
}

func (f *fakeDevices) Subscribe(h device.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
}

type writeCall struct {
	device  string
	image   catalog.Image
	answers map[string]string
	screen  [2]string
}

type fakeWriter struct {
	result   bool
	reporter *display.Reporter
	backend  *fakeBackend

	mu    sync.Mutex
	calls []writeCall
}

func (w *fakeWriter) Write(ctx context.Context, dev string, img catalog.Image, sink flash.Sink) bool {
	call := writeCall{device: dev, image: img, answers: map[string]string{}}
	for _, v := range img.Variables {
		call.answers[v.Name] = sink.Question(v.Name, v.Format)
	}
	sink.ProgressTitle()
	sink.Progress(50)
	w.reporter.Flush()
	call.screen = [2]string{w.backend.Line(0), w.backend.Line(1)}

	w.mu.Lock()
	w.calls = append(w.calls, call)
	w.mu.Unlock()
	return w.result
}

func (w *fakeWriter) Calls() []writeCall {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]writeCall(nil), w.calls...)
}

type harness struct {
	t        *testing.T
	backend  *fakeBackend
	reporter *display.Reporter
	images   *catalog.Catalog
	devices  *fakeDevices
	writer   *fakeWriter
	panel    *Panel
	done     chan error
	cancel   context.CancelFunc
	clock    time.Time
}

func newHarness(t *testing.T, devs ...device.Device) *harness {
	t.Helper()

	fs, err := testdata.NewImageFs()
	require.NoError(t, err)
	images := catalog.New(fs, []string{testdata.RootA, testdata.RootB}, nil)
	require.NoError(t, images.Rescan())

	backend := newFakeBackend()
	reporter := display.NewReporter(backend, nil)
	devices := &fakeDevices{devs: devs}
	writer := &fakeWriter{result: true, reporter: reporter, backend: backend}

	p := New(backend, reporter, images, devices, writer, Options{
		LongPress: time.Second,
		Dwell:     300 * time.Millisecond,
		Notice:    300 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{
		t: t, backend: backend, reporter: reporter, images: images,
		devices: devices, writer: writer, panel: p,
		done: make(chan error, 1), cancel: cancel,
		clock: time.Unix(1700000000, 0),
	}
	go func() { h.done <- p.Menu(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.done
		reporter.Close()
	})
	return h
}

func (h *harness) press(b display.Button, held time.Duration) {
	h.backend.buttons <- display.ButtonEvent{Button: b, Pressed: true, At: h.clock}
	h.clock = h.clock.Add(held)
	h.backend.buttons <- display.ButtonEvent{Button: b, Pressed: false, At: h.clock}
	h.clock = h.clock.Add(time.Second)
}

func (h *harness) click(b display.Button) {
	h.press(b, 50*time.Millisecond)
}

func (h *harness) waitLines(row0, row1 string) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		return h.backend.Line(0) == row0 && h.backend.Line(1) == row1
	}, 2*time.Second, 2*time.Millisecond, "want %q / %q, have %q / %q",
		row0, row1, h.backend.Line(0), h.backend.Line(1))
}

func TestMenu_Navigation(t *testing.T) {
	h := newHarness(t)
	h.waitLines("alpine", "")

	h.click(display.ButtonNext)
	h.waitLines("raspios", "")
	h.click(display.ButtonSelect)
	h.waitLines("raspios*", "")
	h.click(display.ButtonNext)
	h.waitLines("raspios", "")
	h.click(display.ButtonPrev)
	h.waitLines("raspios*", "")
	h.click(display.ButtonPrev)
	h.click(display.ButtonPrev)
	h.waitLines("ubuntu", "")

	h.backend.buttons <- display.ButtonEvent{Button: display.ButtonExit, Pressed: true}
	select {
	case err := <-h.done:
		assert.NoError(t, err)
		h.done <- err
	case <-time.After(time.Second):
		t.Fatal("menu did not exit")
	}
}

func TestMenu_RescanRedrawsImageLine(t *testing.T) {
	h := newHarness(t)
	h.waitLines("alpine", "")

	h.click(display.ButtonNext)
	h.click(display.ButtonSelect)
	h.waitLines("raspios*", "")

	// A rescan from the status API resets cursor and selection.
	require.NoError(t, h.images.Rescan())
	h.waitLines("alpine", "")
}

func TestMenu_DevicesLine(t *testing.T) {
	h := newHarness(t,
		device.Device{Path: "/dev/sda", Model: "SanDisk", Present: true},
		device.Device{Path: "/dev/mmcblk0", Model: "SD"},
	)
	h.waitLines("alpine", "# sda   _ mmcblk")

	h.devices.set(
		device.Device{Path: "/dev/sda", Model: "SanDisk"},
		device.Device{Path: "/dev/mmcblk0", Model: "SD", Present: true},
	)
	h.waitLines("alpine", "_ sda   # mmcblk")

	h.devices.set(device.Device{Path: "/dev/sdb", Model: "Kingston", Present: true})
	h.waitLines("alpine", "# sdb")
}

func TestMenu_GlyphsStoredBeforeFirstDraw(t *testing.T) {
	h := newHarness(t, device.Device{Path: "/dev/sda", Model: "SanDisk", Present: true})
	h.waitLines("alpine", "# sda")

	assert.Empty(t, h.backend.undefinedDraws())
	assert.Equal(t, display.DefaultLevels, h.backend.storedGlyphs())
}

func TestMenu_DevicesView(t *testing.T) {
	h := newHarness(t,
		device.Device{Path: "/dev/sda", Model: "SanDisk", Present: true},
		device.Device{Path: "/dev/mmcblk0", Model: "SD"},
	)
	h.waitLines("alpine", "# sda   _ mmcblk")

	h.click(display.ButtonDevices)
	h.waitLines("sda SanDisk", "media present")
	h.click(display.ButtonDevices)
	h.waitLines("mmcblk0 SD", "no media")

	h.click(display.ButtonNext)
	h.waitLines("alpine", "# sda   _ mmcblk")
}

func TestMenu_ShortPressDoesNothing(t *testing.T) {
	h := newHarness(t, device.Device{Path: "/dev/sda", Present: true})
	h.waitLines("alpine", "# sda")

	h.press(display.ButtonWrite, 999*time.Millisecond)
	h.click(display.ButtonNext)
	h.waitLines("raspios", "# sda")
	assert.Empty(t, h.writer.Calls())
}

func TestMenu_NoDiskPresent(t *testing.T) {
	h := newHarness(t, device.Device{Path: "/dev/sda"})
	h.waitLines("alpine", "_ sda")

	h.press(display.ButtonWrite, time.Second)
	h.waitLines("No disk present", "")
	h.waitLines("alpine", "_ sda")
	assert.Empty(t, h.writer.Calls())
}

func TestMenu_WriteSucceeds(t *testing.T) {
	h := newHarness(t, device.Device{Path: "/dev/sda", Present: true})
	h.backend.answers["HOSTNAME"] = "pi-kitchen"
	h.waitLines("alpine", "# sda")

	h.click(display.ButtonNext)
	h.click(display.ButtonSelect)
	h.click(display.ButtonNext)
	h.waitLines("raspios", "# sda")

	h.press(display.ButtonWrite, 6*time.Second)
	h.waitLines("    FINISHED", "")
	h.waitLines("raspios", "# sda")

	calls := h.writer.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/dev/sda", calls[0].device)
	assert.Equal(t, "/srv/a/raspios", calls[0].image.Directory, "selected image wins over current")
	assert.Equal(t, map[string]string{"HOSTNAME": "pi-kitchen", "USER": ""}, calls[0].answers)
	assert.Equal(t, [2]string{"Complete: 50.00%", "########"}, calls[0].screen)
	assert.Zero(t, h.backend.errorSignals())
}

func TestMenu_WriteFails(t *testing.T) {
	h := newHarness(t, device.Device{Path: "/dev/sda", Present: true})
	h.writer.result = false
	h.waitLines("alpine", "# sda")

	h.press(display.ButtonWrite, time.Second)
	h.waitLines("Write failed", "Try again")
	h.waitLines("alpine", "# sda")
	assert.Len(t, h.writer.Calls(), 1)
	assert.Equal(t, 1, h.backend.errorSignals())
}

func TestPanel_ShowError(t *testing.T) {
	backend := newFakeBackend()
	reporter := display.NewReporter(backend, nil)
	reporter.Start()
	defer reporter.Close()

	fs, err := testdata.NewImageFs()
	require.NoError(t, err)
	images := catalog.New(fs, []string{testdata.RootA}, nil)

	devices := &fakeDevices{devs: []device.Device{{Path: "/dev/sda", Present: true}}}
	p := New(backend, reporter, images, devices, &fakeWriter{}, Options{Dwell: time.Millisecond})

	p.ShowError(context.Background(), apperrors.NewCatalogError("scan /srv/a", errors.New("missing")))
	reporter.Flush()
	assert.Equal(t, "No images", backend.Line(0))
	assert.Equal(t, "# sda", backend.Line(1))
	assert.Equal(t, 1, backend.errorSignals())
	assert.Empty(t, backend.undefinedDraws())
}
