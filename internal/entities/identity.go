package entities

import "time"

// RouterIdentity is the long-lived identity of a polled router, kept across
// restarts so a device stays recognizable even while it is unreachable.
type RouterIdentity struct {
	Host             string    `json:"host"`
	SerialNumber     string    `json:"serialNumber"`
	Name             string    `json:"name"`
	Model            string    `json:"model"`
	ProductCode      string    `json:"productCode"`
	HardwareRevision string    `json:"hardwareRevision"`
	FirmwareVersion  string    `json:"firmwareVersion"`
	LastSeen         time.Time `json:"lastSeen"`
}
