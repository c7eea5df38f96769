package flash

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"bakery/catalog"
)

// ErrBadTrailer is returned when a gzip image has no readable size trailer.
var ErrBadTrailer = errors.New("gzip size trailer unreadable")

// ImageSize returns the number of bytes a write puts on the device. For gzip
// images this is the ISIZE trailer, the uncompressed length modulo 2^32.
func ImageSize(path string, format catalog.Format) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}

	if format != catalog.FormatGzip {
		return info.Size(), nil
	}

	if info.Size() < 4 {
		return 0, fmt.Errorf("%s: %w", path, ErrBadTrailer)
	}
	var trailer [4]byte
	if _, err := f.ReadAt(trailer[:], info.Size()-4); err != nil && err != io.EOF {
		return 0, fmt.Errorf("%s: %w: %v", path, ErrBadTrailer, err)
	}
	return int64(binary.LittleEndian.Uint32(trailer[:])), nil
}
