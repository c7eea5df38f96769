package device

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
)

// Prober reports whether media is inserted in the adapter at path.
type Prober interface {
	Probe(ctx context.Context, path string) bool
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, path string) bool

func (f ProberFunc) Probe(ctx context.Context, path string) bool {
	return f(ctx, path)
}

const sectorSize = 512

// PartitionTableProber treats a node as populated when it can be opened and
// carries an MBR boot signature or a GPT header. Card readers keep their node
// with no card inserted but fail reads (ENOMEDIUM) or return no table.
type PartitionTableProber struct{}

func (PartitionTableProber) Probe(ctx context.Context, path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 2*sectorSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return false
	}
	return HasPartitionTable(buf[:n])
}

// HasPartitionTable checks the first two sectors for an MBR or GPT header.
func HasPartitionTable(head []byte) bool {
	if len(head) >= sectorSize && head[510] == 0x55 && head[511] == 0xAA {
		return true
	}
	return len(head) >= sectorSize+8 && bytes.Equal(head[sectorSize:sectorSize+8], []byte("EFI PART"))
}

// ExecProber runs an external command with the device path appended.
// Exit status 0 means media is present.
type ExecProber struct {
	Command []string
	Logger  *slog.Logger
}

func (p ExecProber) Probe(ctx context.Context, path string) bool {
	if len(p.Command) == 0 {
		return false
	}
	args := append(append([]string(nil), p.Command[1:]...), path)
	cmd := exec.CommandContext(ctx, p.Command[0], args...)

	err := cmd.Run()
	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok && p.Logger != nil {
			p.Logger.Warn("Probe command failed to run",
				slog.String("device", path),
				slog.String("error", err.Error()))
		}
		return false
	}
	return true
}
