package device

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Uevent is a decoded kernel hotplug message.
type Uevent struct {
	Action    string
	DevPath   string
	Subsystem string
	DevType   string
	DevName   string
	Major     int
}

// ParseUevent decodes a kernel uevent datagram: an action@devpath header
// followed by NUL separated KEY=VALUE pairs.
func ParseUevent(msg []byte) (Uevent, bool) {
	fields := bytes.Split(msg, []byte{0})
	if len(fields) == 0 || !bytes.Contains(fields[0], []byte("@")) {
		return Uevent{}, false
	}

	var u Uevent
	for _, f := range fields[1:] {
		key, value, ok := strings.Cut(string(f), "=")
		if !ok {
			continue
		}
		switch key {
		case "ACTION":
			u.Action = value
		case "DEVPATH":
			u.DevPath = value
		case "SUBSYSTEM":
			u.Subsystem = value
		case "DEVTYPE":
			u.DevType = value
		case "DEVNAME":
			u.DevName = value
		case "MAJOR":
			u.Major, _ = strconv.Atoi(value)
		}
	}
	return u, u.Action != ""
}

// Translate maps a uevent to a registry event. Only whole disks of the
// given majors are reported.
func Translate(u Uevent, majors []int, model func(name string) string) Event {
	if u.Subsystem != "block" || u.DevType != "disk" || u.DevName == "" {
		return nil
	}
	if !slices.Contains(majors, u.Major) {
		return nil
	}

	path := "/dev/" + u.DevName
	switch u.Action {
	case "add":
		ev := Attached{Path: path}
		if model != nil {
			ev.Model = model(filepath.Base(u.DevName))
		}
		return ev
	case "remove":
		return Detached{Path: path}
	}
	return nil
}

// SysfsRoot is where block device attributes are read from.
var SysfsRoot = "/sys/class/block"

// SysfsModel returns the vendor model string of a disk, or "".
func SysfsModel(name string) string {
	data, err := os.ReadFile(filepath.Join(SysfsRoot, name, "device", "model"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// SysfsMajor returns the block major number of a disk.
func SysfsMajor(name string) (int, bool) {
	data, err := os.ReadFile(filepath.Join(SysfsRoot, name, "dev"))
	if err != nil {
		return 0, false
	}
	majorStr, _, ok := strings.Cut(strings.TrimSpace(string(data)), ":")
	if !ok {
		return 0, false
	}
	major, err := strconv.Atoi(majorStr)
	return major, err == nil
}
