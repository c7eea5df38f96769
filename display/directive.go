package display

// Bitmap is a 5x8 character cell, one byte per row, low five bits used.
type Bitmap [8]uint8

// Directive is one display operation queued on a Reporter.
type Directive interface {
	isDirective()
}

// Clear blanks the whole display.
type Clear struct{}

// Write puts text at a position. With Blank set, whatever the row held past
// the end of the new text is overwritten with spaces.
type Write struct {
	Col, Row int
	Text     string
	Blank    bool
}

// DrawGlyph shows a stored custom glyph at a position.
type DrawGlyph struct {
	Col, Row int
	Index    int
}

// StoreGlyph defines a custom glyph. It is queued behind all other directives.
type StoreGlyph struct {
	Index  int
	Bitmap Bitmap
}

// Scroll shifts the display contents one column.
type Scroll struct {
	Left bool
}

// Pause stops the consumer until Resume.
type Pause struct{}

// Resume restarts a paused consumer.
type Resume struct{}

// ClearQueue drops every pending directive except glyph definitions.
type ClearQueue struct{}

func (Clear) isDirective()      {}
func (Write) isDirective()      {}
func (DrawGlyph) isDirective()  {}
func (StoreGlyph) isDirective() {}
func (Scroll) isDirective()     {}
func (Pause) isDirective()      {}
func (Resume) isDirective()     {}
func (ClearQueue) isDirective() {}
