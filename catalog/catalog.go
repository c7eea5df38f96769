package catalog

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Snapshot is a point-in-time copy of the catalog.
type Snapshot struct {
	Images    []Image   `json:"images"`
	Pointer   int       `json:"pointer"`
	Selected  int       `json:"selected"` // -1 when nothing is selected
	ScannedAt time.Time `json:"scanned_at"`
}

// Catalog guards the image list shared by the panel and the status API.
type Catalog struct {
	fs      afero.Fs
	sources []string
	logger  *slog.Logger

	mu        sync.RWMutex
	list      *SelectableList[Image]
	scannedAt time.Time

	handlersMu sync.Mutex
	handlers   []func()
}

func New(fs afero.Fs, sources []string, logger *slog.Logger) *Catalog {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		fs:      fs,
		sources: append([]string(nil), sources...),
		logger:  logger,
		list:    &SelectableList[Image]{},
	}
}

// Rescan replaces the list with a fresh scan. On error the previous list is kept.
func (c *Catalog) Rescan() error {
	list, err := Scan(c.fs, c.sources...)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.list = list
	c.scannedAt = time.Now()
	c.mu.Unlock()

	c.logger.Info("Image catalog scanned",
		slog.Int("images", list.Len()),
		slog.Any("sources", c.sources))

	c.handlersMu.Lock()
	handlers := append([]func(){}, c.handlers...)
	c.handlersMu.Unlock()
	for _, h := range handlers {
		h()
	}
	return nil
}

// Subscribe registers h to run after every successful rescan.
func (c *Catalog) Subscribe(h func()) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers = append(c.handlers, h)
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list.Len()
}

func (c *Catalog) Current() (Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list.Current()
}

func (c *Catalog) Next() (Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list.Next()
}

func (c *Catalog) Prev() (Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list.Prev()
}

// Select toggles the selection on the current image.
func (c *Catalog) Select() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list.Select()
}

func (c *Catalog) Selected() (Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list.SelectedItem()
}

func (c *Catalog) CurrentIsSelected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list.CurrentIsSelected()
}

// Target is the image a write uses: the selected one, else the current one.
func (c *Catalog) Target() (Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if img, ok := c.list.SelectedItem(); ok {
		return img, true
	}
	return c.list.Current()
}

// Find looks an image up by name, by base path or by file path.
func (c *Catalog) Find(ref string) (Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	clean := filepath.Clean(ref)
	for _, img := range c.list.items {
		if img.Name == ref || img.Path() == clean || filepath.Join(img.Directory, img.Name) == clean {
			return img, true
		}
	}
	return Image{}, false
}

func (c *Catalog) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	selected := -1
	if i, ok := c.list.Selected(); ok {
		selected = i
	}
	return Snapshot{
		Images:    c.list.Items(),
		Pointer:   c.list.Pointer(),
		Selected:  selected,
		ScannedAt: c.scannedAt,
	}
}
