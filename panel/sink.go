package panel

import (
	"log/slog"

	"bakery/display"
)

// sink shows a running write on the panel.
type sink struct {
	p *Panel
}

func (s *sink) ProgressTitle() {
	s.p.bar.Reset()
	s.p.reporter.Enqueue(
		display.Clear{},
		display.Write{Col: 0, Row: 0, Text: "Complete:  0.00%"},
	)
}

func (s *sink) Progress(percent float64) {
	s.p.reporter.Enqueue(display.Write{Col: 10, Row: 0, Text: display.FormatPercent(percent)})
	s.p.reporter.Enqueue(s.p.bar.Update(percent)...)
}

// Question hands the display to the backend prompt. The reporter is paused
// so nothing queued meanwhile draws over it.
func (s *sink) Question(name, format string) string {
	s.p.reporter.Flush()
	s.p.reporter.Pause()
	defer s.p.reporter.Resume()

	answer, err := s.p.backend.Prompt(name, format)
	if err != nil {
		s.p.logger.Warn("Prompt failed", slog.String("variable", name), slog.String("error", err.Error()))
		return ""
	}
	return answer
}

func (s *sink) Message(row int, text string) {
	cols, _ := s.p.backend.Size()
	s.p.reporter.Enqueue(display.Write{Col: 0, Row: row, Text: truncate(text, cols), Blank: true})
}
