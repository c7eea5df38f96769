package display

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelBitmap(t *testing.T) {
	assert.Equal(t, uint8(0x10), LevelBitmap(1)[0])
	assert.Equal(t, uint8(0x18), LevelBitmap(2)[7])
	assert.Equal(t, uint8(0x1f), LevelBitmap(5)[3])
	assert.Equal(t, uint8(0x1f), LevelBitmap(9)[0])
}

func TestProgressBar_Glyphs(t *testing.T) {
	bar := NewProgressBar(0, 0, 1)
	glyphs := bar.Glyphs()
	assert.Len(t, glyphs, DefaultLevels)
	assert.Equal(t, StoreGlyph{Index: 0, Bitmap: LevelBitmap(1)}, glyphs[0])
	assert.Equal(t, 4, bar.FullGlyph())
}

func TestProgressBar_Update(t *testing.T) {
	bar := NewProgressBar(16, 5, 1)

	// 16 cells x 5 levels: one level is 1.25%
	assert.Empty(t, bar.Update(1))
	assert.Equal(t, []Directive{DrawGlyph{Col: 0, Row: 1, Index: 0}}, bar.Update(1.3))
	assert.Empty(t, bar.Update(2), "same level is not redrawn")
	assert.Equal(t, []Directive{DrawGlyph{Col: 0, Row: 1, Index: 2}}, bar.Update(4))

	// 12.5% -> two full cells
	assert.Equal(t, []Directive{
		DrawGlyph{Col: 0, Row: 1, Index: 4},
		DrawGlyph{Col: 1, Row: 1, Index: 4},
	}, bar.Update(12.5))

	assert.Empty(t, bar.Update(5), "never paints backwards")

	ds := bar.Update(100)
	assert.Len(t, ds, 14)
	assert.Equal(t, DrawGlyph{Col: 15, Row: 1, Index: 4}, ds[len(ds)-1])
	assert.Empty(t, bar.Update(150))

	bar.Reset()
	assert.Equal(t, []Directive{DrawGlyph{Col: 0, Row: 1, Index: 4}}, bar.Update(6.25))
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, " 0.00"},
		{-3, " 0.00"},
		{5.5, " 5.50"},
		{42.123, "42.12"},
		{99.99, "99.99"},
		{99.996, "100.0"},
		{100, "100.0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPercent(tt.in), "%v", tt.in)
		assert.Len(t, FormatPercent(tt.in), 5)
	}
}
