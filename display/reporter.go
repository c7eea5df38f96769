package display

import (
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"
)

// Reporter feeds directives to a Backend from a single consumer goroutine.
// Enqueue never blocks. Directives are applied in arrival order; glyph
// definitions wait in a second queue that drains only when the first is empty.
type Reporter struct {
	backend Backend
	logger  *slog.Logger

	mu        sync.Mutex
	cond      *sync.Cond
	primary   []Directive
	secondary []Directive
	paused    bool
	applying  bool
	closed    bool
	started   bool

	// consumer only
	rowLen map[int]int

	done chan struct{}
}

func NewReporter(backend Backend, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reporter{
		backend: backend,
		logger:  logger,
		rowLen:  make(map[int]int),
		done:    make(chan struct{}),
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Start launches the consumer.
func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	go r.run()
}

// Close applies what is still queued (unless paused) and stops the consumer.
func (r *Reporter) Close() {
	r.mu.Lock()
	r.closed = true
	started := r.started
	r.cond.Broadcast()
	r.mu.Unlock()

	if started {
		<-r.done
	}
}

func (r *Reporter) Enqueue(directives ...Directive) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range directives {
		switch d.(type) {
		case StoreGlyph:
			r.secondary = append(r.secondary, d)
		case ClearQueue:
			r.primary = r.primary[:0]
		case Pause:
			r.paused = true
		case Resume:
			r.paused = false
		default:
			r.primary = append(r.primary, d)
		}
	}
	r.cond.Broadcast()
}

// Pause stops draining and waits for the directive being applied, so the
// caller owns the backend until Resume.
func (r *Reporter) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = true
	for r.applying {
		r.cond.Wait()
	}
}

func (r *Reporter) Resume() {
	r.Enqueue(Resume{})
}

// ClearQueue drops pending non-glyph directives.
func (r *Reporter) ClearQueue() {
	r.Enqueue(ClearQueue{})
}

// Flush waits until every queued directive has been applied. It returns
// early while paused.
func (r *Reporter) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for !r.paused && !r.closed && (r.applying || len(r.primary) > 0 || len(r.secondary) > 0) {
		r.cond.Wait()
	}
}

// Pending returns the number of queued directives.
func (r *Reporter) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.primary) + len(r.secondary)
}

func (r *Reporter) run() {
	defer close(r.done)

	r.mu.Lock()
	for {
		for !r.closed && (r.paused || (len(r.primary) == 0 && len(r.secondary) == 0)) {
			r.cond.Wait()
		}
		if r.closed && (r.paused || (len(r.primary) == 0 && len(r.secondary) == 0)) {
			r.mu.Unlock()
			return
		}

		var d Directive
		if len(r.primary) > 0 {
			d = r.primary[0]
			r.primary = r.primary[1:]
		} else {
			d = r.secondary[0]
			r.secondary = r.secondary[1:]
		}
		r.applying = true
		r.mu.Unlock()

		r.apply(d)

		r.mu.Lock()
		r.applying = false
		r.cond.Broadcast()
	}
}

func (r *Reporter) apply(d Directive) {
	var err error
	switch d := d.(type) {
	case Clear:
		clear(r.rowLen)
		err = r.backend.Clear()
	case Write:
		text := d.Text
		end := d.Col + utf8.RuneCountInString(text)
		if d.Blank {
			if prev := r.rowLen[d.Row]; prev > end {
				text += strings.Repeat(" ", prev-end)
			}
			r.rowLen[d.Row] = end
		} else if end > r.rowLen[d.Row] {
			r.rowLen[d.Row] = end
		}
		err = r.backend.Write(d.Col, d.Row, text)
	case DrawGlyph:
		if d.Col+1 > r.rowLen[d.Row] {
			r.rowLen[d.Row] = d.Col + 1
		}
		err = r.backend.DrawGlyph(d.Col, d.Row, d.Index)
	case StoreGlyph:
		err = r.backend.StoreGlyph(d.Index, d.Bitmap)
	case Scroll:
		err = r.backend.Scroll(d.Left)
	}
	if err != nil {
		r.logger.Warn("Display directive failed",
			slog.String("directive", directiveName(d)),
			slog.String("error", err.Error()))
	}
}

func directiveName(d Directive) string {
	switch d.(type) {
	case Clear:
		return "clear"
	case Write:
		return "write"
	case DrawGlyph:
		return "draw_glyph"
	case StoreGlyph:
		return "store_glyph"
	case Scroll:
		return "scroll"
	}
	return "unknown"
}
