package flash

// Sink receives everything a write wants to show or ask the operator.
type Sink interface {
	// ProgressTitle draws the progress screen once variables are collected.
	ProgressTitle()
	// Progress reports the completed share of the image, 0 to 100.
	Progress(percent float64)
	// Question blocks until the operator has entered a value for name.
	Question(name, format string) string
	// Message replaces a display row with text.
	Message(row int, text string)
}
