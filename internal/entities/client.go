package entities

type ClientDevice struct {
	Mac       string `json:"mac"`
	Name      string `json:"name"`
	IP        string `json:"ip"`
	Connected bool   `json:"connected"`
	Signal    int    `json:"signal,omitempty"`
	Interface string `json:"interface,omitempty"`
	VLAN      string `json:"vlan,omitempty"`
	SSID      string `json:"ssid,omitempty"`
}

type ClientDevices []ClientDevice
