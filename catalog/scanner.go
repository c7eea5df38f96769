package catalog

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	apperrors "bakery/internal/errors"
	"bakery/internal/validation"

	"github.com/spf13/afero"
)

type fileKind int

const (
	kindOther fileKind = iota
	kindRaw
	kindGzip
	kindPost
	kindVars
)

type group struct {
	format    Format
	posts     []string
	variables []Variable
}

// Scan builds the image list from every subdirectory of the given sources.
//
// Files in a subdirectory are grouped by base name: <base>.img or <base>.img.gz
// is the image, <base>.post.<label> are post-install scripts run in label
// order and <base>.vars holds name:format variable lines. Groups without an
// image file are dropped. A missing source is a configuration error.
func Scan(fs afero.Fs, sources ...string) (*SelectableList[Image], error) {
	groups := make(map[string]*group)
	var keys []string

	for _, source := range sources {
		entries, err := afero.ReadDir(fs, source)
		if err != nil {
			return nil, apperrors.NewConfigurationError("scan images",
				fmt.Errorf("image source %s: %w", source, err)).WithContext("source", source)
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			dir := filepath.Join(source, entry.Name())

			files, err := afero.ReadDir(fs, dir)
			if err != nil {
				return nil, apperrors.NewCatalogError("scan images", err).WithContext("directory", dir)
			}

			for _, file := range files {
				if file.IsDir() {
					continue
				}
				base, kind, label := classify(file.Name())
				if kind == kindOther {
					continue
				}

				key := filepath.Join(dir, base)
				g, ok := groups[key]
				if !ok {
					g = &group{}
					groups[key] = g
					keys = append(keys, key)
				}

				switch kind {
				case kindRaw:
					// A compressed sibling wins; it is what gets published.
					if g.format == "" {
						g.format = FormatRaw
					}
				case kindGzip:
					g.format = FormatGzip
				case kindPost:
					g.posts = append(g.posts, label)
				case kindVars:
					path := filepath.Join(dir, file.Name())
					data, err := afero.ReadFile(fs, path)
					if err != nil {
						return nil, apperrors.NewCatalogError("read variables", err).WithContext("file", file.Name())
					}
					vars, rejected := parseVariables(data)
					for _, name := range rejected {
						slog.Debug("Skipping variable with invalid name", slog.String("file", path), slog.String("name", name))
					}
					g.variables = mergeVariables(g.variables, vars)
				}
			}
		}
	}

	images := make([]Image, 0, len(groups))
	for _, key := range keys {
		g := groups[key]
		if g.format == "" {
			continue
		}

		sort.Strings(g.posts)
		dir, name := filepath.Split(key)
		dir = filepath.Clean(dir)

		posts := make([]string, len(g.posts))
		for i, label := range g.posts {
			posts[i] = filepath.Join(dir, name+".post."+label)
		}

		images = append(images, Image{
			Name:        name,
			Directory:   dir,
			Format:      g.format,
			PostScripts: posts,
			Variables:   g.variables,
		})
	}

	sort.SliceStable(images, func(i, j int) bool { return images[i].less(images[j]) })

	return NewSelectableList(images...), nil
}

func classify(name string) (base string, kind fileKind, label string) {
	dot := strings.LastIndexByte(name, '.')
	if dot <= 0 {
		return name, kindOther, ""
	}
	ext, rest := name[dot+1:], name[:dot]

	if mid := strings.LastIndexByte(rest, '.'); mid > 0 {
		stem, middle := rest[:mid], rest[mid+1:]
		switch {
		case middle == "post" && ext != "":
			return stem, kindPost, ext
		case middle == "img" && ext == "gz":
			return stem, kindGzip, ""
		}
	}

	switch ext {
	case "img":
		return rest, kindRaw, ""
	case "vars":
		return rest, kindVars, ""
	}
	return rest, kindOther, ""
}

// parseVariables reads name:format lines. Lines without ':' are ignored;
// names that cannot be exported to a script environment are returned in
// rejected.
func parseVariables(data []byte) (vars []Variable, rejected []string) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		name, format, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if validation.ValidateVariableName(name) != nil {
			rejected = append(rejected, name)
			continue
		}
		vars = mergeVariables(vars, []Variable{{Name: name, Format: format}})
	}
	return vars, rejected
}

func mergeVariables(dst, src []Variable) []Variable {
next:
	for _, v := range src {
		for i := range dst {
			if dst[i].Name == v.Name {
				dst[i].Format = v.Format
				continue next
			}
		}
		dst = append(dst, v)
	}
	return dst
}
