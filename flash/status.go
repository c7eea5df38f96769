package flash

import (
	"bufio"
	"bytes"
	"io"
	"regexp"
	"strconv"
)

var bytesCopied = regexp.MustCompile(`(\d+) bytes`)

// ParseBytes extracts the cumulative byte count from a copy-stage status line.
func ParseBytes(line string) (int64, bool) {
	m := bytesCopied.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	return n, err == nil
}

// scanStatusLines splits on either \n or \r; dd uses \r for in-place updates.
func scanStatusLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// readStatus forwards lines from r until EOF. Once abort is closed lines are
// discarded but r is still drained so the writer never blocks on a full pipe.
func readStatus(r io.Reader, lines chan<- string, abort <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer close(lines)

	scanner := bufio.NewScanner(r)
	scanner.Split(scanStatusLines)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		select {
		case lines <- line:
		case <-abort:
		}
	}
	// Scanner errors (e.g. a line over 64KiB) end reading early; drain the rest.
	_, _ = io.Copy(io.Discard, r)
}
