package display

import "fmt"

const (
	DefaultCells  = 16
	DefaultLevels = 5
)

// LevelGlyph is the slot holding the glyph for a cell filled to level
// (1..levels). The full-cell glyph doubles as the media-present marker.
func LevelGlyph(level int) int {
	return level - 1
}

// LevelBitmap fills the leftmost level columns of a 5-wide cell.
func LevelBitmap(level int) Bitmap {
	var row uint8
	for i := 0; i < level && i < 5; i++ {
		row |= 1 << (4 - i)
	}
	var b Bitmap
	for i := range b {
		b[i] = row
	}
	return b
}

// ProgressBar renders a percentage as cells filled in sub-cell steps. It only
// paints forward and redraws the active cell only when its level changes.
type ProgressBar struct {
	cells, levels, row int

	pointer int
	level   int
}

func NewProgressBar(cells, levels, row int) *ProgressBar {
	if cells <= 0 {
		cells = DefaultCells
	}
	if levels <= 0 {
		levels = DefaultLevels
	}
	return &ProgressBar{cells: cells, levels: levels, row: row}
}

// Glyphs returns the definitions of every level glyph.
func (b *ProgressBar) Glyphs() []Directive {
	ds := make([]Directive, 0, b.levels)
	for level := 1; level <= b.levels; level++ {
		ds = append(ds, StoreGlyph{Index: LevelGlyph(level), Bitmap: LevelBitmap(level)})
	}
	return ds
}

// FullGlyph is the slot of a completely filled cell.
func (b *ProgressBar) FullGlyph() int {
	return LevelGlyph(b.levels)
}

// Reset starts a new bar. The caller clears the row.
func (b *ProgressBar) Reset() {
	b.pointer = 0
	b.level = 0
}

// Update returns the directives that bring the bar up to percent.
func (b *ProgressBar) Update(percent float64) []Directive {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	k := percent * float64(b.cells) / 100
	full := int(k)
	part := int((k - float64(full)) * float64(b.levels))

	var ds []Directive
	for b.pointer < full {
		ds = append(ds, DrawGlyph{Col: b.pointer, Row: b.row, Index: b.FullGlyph()})
		b.pointer++
		b.level = 0
	}
	if full == b.pointer && b.pointer < b.cells && part > b.level {
		ds = append(ds, DrawGlyph{Col: b.pointer, Row: b.row, Index: LevelGlyph(part)})
		b.level = part
	}
	return ds
}

// FormatPercent renders percent in five columns.
func FormatPercent(percent float64) string {
	if percent >= 99.995 {
		return "100.0"
	}
	if percent < 0 {
		percent = 0
	}
	return fmt.Sprintf("%5.2f", percent)
}
