//go:build linux

package device

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"
)

// UeventSource listens for kernel block hotplug events on a netlink socket.
type UeventSource struct {
	Majors []int
	Logger *slog.Logger
}

func (s *UeventSource) Run(ctx context.Context, post func(Event)) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return fmt.Errorf("netlink socket: %w", err)
	}
	defer unix.Close(fd)

	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: 1}); err != nil {
		return fmt.Errorf("netlink bind: %w", err)
	}

	buf := make([]byte, 64*1024)
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}

	for ctx.Err() == nil {
		n, err := unix.Poll(fds, 250)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("netlink poll: %w", err)
		}
		if n == 0 {
			continue
		}

		m, _, err := unix.Recvfrom(fd, buf, 0)
		switch err {
		case nil:
		case unix.EINTR, unix.EAGAIN:
			continue
		case unix.ENOBUFS:
			// Kernel dropped messages; the next probe pass still sees presence.
			logger.Warn("Uevent socket overrun")
			continue
		default:
			return fmt.Errorf("netlink recv: %w", err)
		}

		u, ok := ParseUevent(buf[:m])
		if !ok {
			continue
		}
		if ev := Translate(u, s.Majors, SysfsModel); ev != nil {
			logger.Debug("Block uevent", slog.String("action", u.Action), slog.String("device", u.DevName))
			post(ev)
		}
	}
	return nil
}
