//go:build !linux

package flash

import (
	"errors"
	"os"
	"syscall"
)

var statusSignal os.Signal = syscall.Signal(0x1e)

type IoctlRefresher struct{}

func (IoctlRefresher) Refresh(device string) error {
	return errors.New("partition table refresh needs linux or a refresh command")
}
