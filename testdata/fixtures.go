package testdata

import (
	"path/filepath"

	"github.com/spf13/afero"
)

// Two image roots with every file kind the catalog understands.
//
// Sorted by (name, directory) the tree yields:
//
//	alpine   /srv/b/alpine   gzip
//	raspios  /srv/a/raspios  gzip, 2 post scripts, 2 variables
//	raspios  /srv/b/raspios  raw
//	ubuntu   /srv/a/ubuntu   raw
const (
	RootA = "/srv/a"
	RootB = "/srv/b"
)

// ImageTree maps file paths to contents.
var ImageTree = map[string]string{
	"/srv/a/raspios/raspios.img.gz":         "gz",
	"/srv/a/raspios/raspios.post.02-ssh":    "#!/bin/sh\n#TITLE# Enable ssh\ntouch $PARTITION1/ssh\n",
	"/srv/a/raspios/raspios.post.01-host":   "#!/bin/sh\necho $HOSTNAME > /tmp/hostname\n",
	"/srv/a/raspios/raspios.vars":           "HOSTNAME:Host: %s\nthis line is ignored\nUSER:User: %s\n",
	"/srv/a/ubuntu/ubuntu.img":              "raw",
	"/srv/a/ubuntu/notes.txt":               "not an image",
	"/srv/a/orphan/orphan.post.01-only":     "#!/bin/sh\n",
	"/srv/a/orphan/orphan.vars":             "A:b\n",
	"/srv/a/loose-file.img":                 "files directly under a root are ignored",
	"/srv/b/raspios/raspios.img":            "raw",
	"/srv/b/alpine/alpine.img.gz":           "gz",
	"/srv/b/alpine/alpine-3.19.1.notes.txt": "",
}

// WriteTree writes files onto fs, creating parent directories.
func WriteTree(fs afero.Fs, files map[string]string) error {
	for path, content := range files {
		if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}

// NewImageFs returns an in-memory filesystem holding ImageTree.
func NewImageFs() (afero.Fs, error) {
	fs := afero.NewMemMapFs()
	if err := WriteTree(fs, ImageTree); err != nil {
		return nil, err
	}
	return fs, nil
}
