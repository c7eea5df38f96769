package flash

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"bakery/catalog"

	"github.com/jaypipes/ghw"
)

// PartitionLister returns the partition nodes of a device, ordered by number.
type PartitionLister interface {
	Partitions(device string) ([]string, error)
}

// Refresher makes the kernel pick up a freshly written partition table.
type Refresher interface {
	Refresh(device string) error
}

// BlockPartitions lists partitions from the kernel block information.
type BlockPartitions struct{}

func (BlockPartitions) Partitions(device string) ([]string, error) {
	info, err := ghw.Block(ghw.WithDisableWarnings())
	if err != nil {
		return nil, fmt.Errorf("block info: %w", err)
	}

	name := filepath.Base(device)
	var parts []string
	for _, disk := range info.Disks {
		if disk.Name != name {
			continue
		}
		for _, p := range disk.Partitions {
			parts = append(parts, "/dev/"+p.Name)
		}
	}
	SortPartitions(parts)
	return parts, nil
}

// CommandRefresher runs an external command with the device path appended.
type CommandRefresher struct {
	Command []string
}

func (r CommandRefresher) Refresh(device string) error {
	if len(r.Command) == 0 {
		return nil
	}
	args := append(append([]string(nil), r.Command[1:]...), device)
	out, err := exec.Command(r.Command[0], args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", r.Command[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

var trailingDigits = regexp.MustCompile(`(\d+)$`)

func partitionNumber(node string) int {
	m := trailingDigits.FindString(node)
	n, _ := strconv.Atoi(m)
	return n
}

// SortPartitions orders nodes by partition number, so sdb10 follows sdb9.
func SortPartitions(nodes []string) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return partitionNumber(nodes[i]) < partitionNumber(nodes[j])
	})
}

var titleMarker = regexp.MustCompile(`#TITLE#\s+(.+)`)

// ScriptTitle returns the #TITLE# text from the leading comment block of a
// script, or the file name when there is none.
func ScriptTitle(path string) string {
	title := filepath.Base(path)

	f, err := os.Open(path)
	if err != nil {
		return title
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "#") {
			break
		}
		if m := titleMarker.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return title
}

// ScriptEnv builds the environment post-install scripts run with.
func ScriptEnv(img catalog.Image, device string, partitions []string, vars map[string]string) []string {
	path := os.Getenv("PATH")
	if path == "" {
		path = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"
	}

	env := []string{
		"IMGDIR=" + img.Directory,
		"DEVICE=" + device,
		"PATH=" + path,
	}
	for i, p := range partitions {
		env = append(env, fmt.Sprintf("PARTITION%d=%s", i+1, p))
	}
	for _, v := range img.Variables {
		if value, ok := vars[v.Name]; ok {
			env = append(env, v.Name+"="+value)
		}
	}
	return env
}

func (w *Writer) postInstall(ctx context.Context, device string, img catalog.Image, vars map[string]string, sink Sink) {
	sink.Message(0, "Post script:")
	sink.Message(1, "Refresh device")

	if err := w.opts.Refresher.Refresh(device); err != nil {
		w.logger.Warn("Partition table refresh failed",
			slog.String("device", device),
			slog.String("error", err.Error()))
	}

	partitions, err := w.opts.Partitions.Partitions(device)
	if err != nil {
		w.logger.Warn("Partition listing failed",
			slog.String("device", device),
			slog.String("error", err.Error()))
	}
	waitForNodes(ctx, partitions, w.opts.NodeTimeout)

	env := ScriptEnv(img, device, partitions, vars)
	for _, script := range img.PostScripts {
		sink.Message(1, ScriptTitle(script))

		cmd := exec.Command(script)
		cmd.Env = env
		cmd.Dir = img.Directory
		out, err := cmd.CombinedOutput()
		if err != nil {
			w.logger.Warn("Post script failed",
				slog.String("script", script),
				slog.String("error", err.Error()),
				slog.String("output", strings.TrimSpace(string(out))))
			continue
		}
		w.logger.Info("Post script finished", slog.String("script", script))
	}
}

// waitForNodes gives udev time to create the partition nodes the kernel just announced.
func waitForNodes(ctx context.Context, nodes []string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for _, node := range nodes {
		for {
			if _, err := os.Stat(node); err == nil || time.Now().After(deadline) {
				break
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
		}
	}
}
