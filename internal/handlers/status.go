package handlers

import (
	"net/http"
	"time"

	"bakery/device"
	"bakery/flash"
)

// Status is the overall state of the station.
type Status struct {
	Time        time.Time          `json:"time"`
	Images      int                `json:"images"`
	Current     string             `json:"current,omitempty"`
	Selected    string             `json:"selected,omitempty"`
	Devices     []device.Device    `json:"devices"`
	ActiveWrite *flash.WriteRecord `json:"active_write,omitempty"`
}

// GetStatus returns catalog position, devices and the running write.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.Catalog.Snapshot()
	status := Status{
		Time:    time.Now(),
		Images:  len(snap.Images),
		Devices: h.Devices.Snapshot(),
	}
	if snap.Pointer >= 0 && snap.Pointer < len(snap.Images) {
		status.Current = snap.Images[snap.Pointer].Name
	}
	if snap.Selected >= 0 && snap.Selected < len(snap.Images) {
		status.Selected = snap.Images[snap.Selected].Name
	}
	if record, ok := h.Writer.Active(); ok {
		status.ActiveWrite = &record
	}
	if status.Devices == nil {
		status.Devices = []device.Device{}
	}

	h.writeJSON(w, http.StatusOK, status)
}

// GetDevices lists attached adapters in attach order.
func (h *Handlers) GetDevices(w http.ResponseWriter, r *http.Request) {
	devices := h.Devices.Snapshot()
	if devices == nil {
		devices = []device.Device{}
	}
	h.writeJSON(w, http.StatusOK, devices)
}
