package entities

type WANInterface struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Status   string   `json:"status"`
	Message  string   `json:"message"`
	Type     string   `json:"type"`
	IP       string   `json:"ip"`
	Gateway  string   `json:"gateway"`
	Mask     string   `json:"mask"`
	DNS      []string `json:"dns"`
	Uptime   int64    `json:"uptime"`
	Priority int      `json:"priority"`
	Enabled  bool     `json:"enabled"`
}

type WANInterfaces []WANInterface

// FilterEnabled returns only the interfaces an operator has not disabled.
func (w WANInterfaces) FilterEnabled() WANInterfaces {
	enabled := make(WANInterfaces, 0, len(w))
	for _, wan := range w {
		if wan.Enabled {
			enabled = append(enabled, wan)
		}
	}

	return enabled
}
