package router

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/peplink-community/peplink-agent/internal/constants"
	"github.com/peplink-community/peplink-agent/internal/entities"
)

type clientEntry struct {
	Mac       string `json:"mac"`
	Name      string `json:"name"`
	Hostname  string `json:"hostname"`
	IP        string `json:"ip"`
	Signal    int    `json:"signal"`
	Interface string `json:"interface"`
	VLAN      string `json:"vlan"`
	SSID      string `json:"ssid"`
}

// GetClients lists the devices currently attached to the router. Entries are
// always marked connected: presence in the list is the router's definition
// of connected. Missing names fall back to the hostname, then a placeholder.
func (s *Service) GetClients(ctx context.Context) (entities.ClientDevices, error) {
	clients := entities.ClientDevices{}

	envelope, err := s.requestFunc(ctx, constants.FuncClientList, true, nil)
	if err != nil {
		return clients, fmt.Errorf("GetClients: %w", err)
	}

	if envelope.failed() {
		log.Error().Str("message", envelope.Message).Int("code", envelope.Code).Msg("GetClients: api error")
		return clients, nil
	}

	entries, ok := parseClientEntries(envelope)
	if !ok {
		log.Warn().Msg("GetClients: unexpected response shape")
		return clients, nil
	}

	for _, entry := range entries {
		client := entities.ClientDevice{
			Mac:       entry.Mac,
			Name:      entry.Name,
			IP:        entry.IP,
			Connected: true,
			Signal:    entry.Signal,
			Interface: entry.Interface,
			VLAN:      entry.VLAN,
			SSID:      entry.SSID,
		}

		if lo.IsEmpty(client.Mac) {
			client.Mac = "unknown"
		}

		if lo.IsEmpty(client.Name) {
			client.Name = lo.Ternary(lo.IsNotEmpty(entry.Hostname), entry.Hostname, "Unknown Device")
		}

		clients = append(clients, client)
	}

	return clients, nil
}

// parseClientEntries accepts both observed shapes: {response:{list:[...]}}
// and a bare {client:[...]} body.
func parseClientEntries(envelope apiEnvelope) ([]clientEntry, bool) {
	if len(envelope.Response) > 0 {
		var wrapped struct {
			List []clientEntry `json:"list"`
		}
		if err := json.Unmarshal(envelope.Response, &wrapped); err == nil && wrapped.List != nil {
			return wrapped.List, true
		}
	}

	var flat struct {
		Client []clientEntry `json:"client"`
	}
	if err := json.Unmarshal(envelope.payload(), &flat); err == nil && flat.Client != nil {
		return flat.Client, true
	}

	return nil, false
}
