package entities

import "time"

// RouterSnapshot is one complete poll cycle worth of router state.
type RouterSnapshot struct {
	WANs      WANInterfaces   `json:"wans"`
	Clients   ClientDevices   `json:"clients"`
	Thermal   []ThermalSensor `json:"thermal"`
	Fans      []FanSpeed      `json:"fans"`
	Traffic   TrafficSamples  `json:"traffic"`
	Device    DeviceInfo      `json:"device"`
	Location  GPSLocation     `json:"location"`
	FetchedAt time.Time       `json:"fetchedAt"`
}
