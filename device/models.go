package device

import (
	"errors"
	"path/filepath"
)

var (
	// ErrDuplicateDevice is an attach for a path that is already attached.
	ErrDuplicateDevice = errors.New("device already attached")
	// ErrUnknownDevice is a detach or presence change for a path that was never attached.
	ErrUnknownDevice = errors.New("device not attached")
)

// Device is an attached adapter. Present reports whether media is inserted.
type Device struct {
	Path    string `json:"path"`
	Model   string `json:"model"`
	Present bool   `json:"present"`
}

// Name returns the node basename, e.g. sdb for /dev/sdb.
func (d Device) Name() string {
	return filepath.Base(d.Path)
}

// Event is a change posted to the registry queue.
type Event interface {
	DevicePath() string
	isEvent()
}

// Attached is posted when an adapter appears. Coldplug attaches come from the
// startup enumeration and may repeat a hotplug attach that raced with it.
type Attached struct {
	Path     string
	Model    string
	Coldplug bool
}

// Detached is posted when an adapter disappears.
type Detached struct {
	Path string
}

// PresenceChanged is posted when probing finds media inserted or removed.
// Generation identifies the attachment the probe was taken against.
type PresenceChanged struct {
	Path       string
	Present    bool
	Generation uint64
}

func (e Attached) DevicePath() string        { return e.Path }
func (e Detached) DevicePath() string        { return e.Path }
func (e PresenceChanged) DevicePath() string { return e.Path }

func (Attached) isEvent()        {}
func (Detached) isEvent()        {}
func (PresenceChanged) isEvent() {}
