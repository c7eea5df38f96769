package display

import (
	"fmt"
	"sync"
)

// recordingBackend logs every call as a short string.
type recordingBackend struct {
	mu      sync.Mutex
	ops     []string
	block   chan struct{}
	buttons chan ButtonEvent
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{buttons: make(chan ButtonEvent)}
}

func (b *recordingBackend) record(op string) error {
	if b.block != nil {
		<-b.block
	}
	b.mu.Lock()
	b.ops = append(b.ops, op)
	b.mu.Unlock()
	return nil
}

func (b *recordingBackend) Ops() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.ops...)
}

func (b *recordingBackend) Name() string       { return "recording" }
func (b *recordingBackend) Size() (int, int)   { return 16, 2 }
func (b *recordingBackend) Clear() error       { return b.record("clear") }
func (b *recordingBackend) SignalError() error { return b.record("error") }
func (b *recordingBackend) Alert() error       { return b.record("alert") }
func (b *recordingBackend) Close() error       { return nil }

func (b *recordingBackend) Write(col, row int, text string) error {
	return b.record(fmt.Sprintf("write %d,%d %q", col, row, text))
}

func (b *recordingBackend) DrawGlyph(col, row, index int) error {
	return b.record(fmt.Sprintf("glyph %d,%d #%d", col, row, index))
}

func (b *recordingBackend) StoreGlyph(index int, bitmap Bitmap) error {
	return b.record(fmt.Sprintf("store #%d", index))
}

func (b *recordingBackend) Scroll(left bool) error {
	return b.record(fmt.Sprintf("scroll %v", left))
}

func (b *recordingBackend) Buttons() <-chan ButtonEvent { return b.buttons }

func (b *recordingBackend) Prompt(label, format string) (string, error) {
	return "", b.record("prompt " + label)
}
