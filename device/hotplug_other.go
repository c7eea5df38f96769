//go:build !linux

package device

import (
	"context"
	"errors"
	"log/slog"
)

type UeventSource struct {
	Majors []int
	Logger *slog.Logger
}

func (s *UeventSource) Run(ctx context.Context, post func(Event)) error {
	return errors.New("block hotplug events are only available on linux")
}
