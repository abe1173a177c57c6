package entities

type DeviceInfo struct {
	SerialNumber     string `json:"serialNumber"`
	Name             string `json:"name"`
	Model            string `json:"model"`
	ProductCode      string `json:"productCode"`
	HardwareRevision string `json:"hardwareRevision"`
	FirmwareVersion  string `json:"firmwareVersion"`
	Host             string `json:"host"`
	PepVPNVersion    string `json:"pepvpnVersion"`
}

type ThermalSensor struct {
	Name        string  `json:"name"`
	Temperature float64 `json:"temperature"`
	Unit        string  `json:"unit"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Threshold   float64 `json:"threshold"`
}

type FanSpeed struct {
	Name       string  `json:"name"`
	Speed      int     `json:"speed"`
	Unit       string  `json:"unit"`
	MaxSpeed   int     `json:"maxSpeed"`
	Percentage float64 `json:"percentage"`
}

type SystemTime struct {
	TimeString string `json:"timeString"`
	Timestamp  int64  `json:"timestamp"`
	Timezone   string `json:"timezone"`
}

// SystemInfo is the combined device/thermal/fan/time payload returned by a
// single firmware call where supported.
type SystemInfo struct {
	Device         DeviceInfo      `json:"device"`
	ThermalSensors []ThermalSensor `json:"thermalSensors"`
	FanSpeeds      []FanSpeed      `json:"fanSpeeds"`
	SystemTime     SystemTime      `json:"systemTime"`
}
