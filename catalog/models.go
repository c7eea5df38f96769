package catalog

import (
	"path/filepath"
)

// Format is the on-disk encoding of an image file.
type Format string

const (
	FormatRaw  Format = "raw"
	FormatGzip Format = "gzip"
)

// Extension returns the file suffix for the format, without the leading dot.
func (f Format) Extension() string {
	if f == FormatGzip {
		return "img.gz"
	}
	return "img"
}

// Variable is a value asked from the operator before a write. Format is the
// prompt shown while the value is typed.
type Variable struct {
	Name   string `json:"name"`
	Format string `json:"format"`
}

// Image is one writable disk image together with its post-install scripts and
// variables. Images are built by Scan and never modified afterwards.
type Image struct {
	Name        string     `json:"name"`
	Directory   string     `json:"directory"`
	Format      Format     `json:"format"`
	PostScripts []string   `json:"post_scripts,omitempty"`
	Variables   []Variable `json:"variables,omitempty"`
}

// Path returns the location of the image file.
func (i Image) Path() string {
	return filepath.Join(i.Directory, i.Name+"."+i.Format.Extension())
}

// Variable returns the prompt format for name.
func (i Image) Variable(name string) (string, bool) {
	for _, v := range i.Variables {
		if v.Name == name {
			return v.Format, true
		}
	}
	return "", false
}

func (i Image) less(o Image) bool {
	if i.Name != o.Name {
		return i.Name < o.Name
	}
	return i.Directory < o.Directory
}
