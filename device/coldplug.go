package device

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/jaypipes/ghw"
)

// BlockEnumerator lists the disks of the configured majors that exist at startup.
type BlockEnumerator struct {
	Majors []int
}

func (e BlockEnumerator) Enumerate(ctx context.Context) ([]Attached, error) {
	info, err := ghw.Block(ghw.WithDisableWarnings())
	if err != nil {
		return nil, fmt.Errorf("block info: %w", err)
	}

	var out []Attached
	for _, disk := range info.Disks {
		major, ok := SysfsMajor(disk.Name)
		if !ok || !slices.Contains(e.Majors, major) {
			continue
		}
		out = append(out, Attached{Path: "/dev/" + disk.Name, Model: diskModel(disk.Model)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func diskModel(model string) string {
	model = strings.TrimSpace(model)
	if strings.EqualFold(model, "unknown") {
		return ""
	}
	return model
}
