//go:build linux

package flash

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

var statusSignal os.Signal = unix.SIGUSR1

// IoctlRefresher asks the kernel to re-read the partition table.
type IoctlRefresher struct{}

func (IoctlRefresher) Refresh(device string) error {
	f, err := os.OpenFile(device, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := unix.IoctlSetInt(int(f.Fd()), unix.BLKRRPART, 0); err != nil {
		return fmt.Errorf("BLKRRPART %s: %w", device, err)
	}
	return nil
}
