package router

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/peplink-community/peplink-agent/internal/constants"
	"github.com/peplink-community/peplink-agent/internal/entities"
)

// wanConnection covers the fields both observed WAN payload shapes share.
// In the keyed shape the interface ID is the map key; in the flat shape it
// travels inside the element.
type wanConnection struct {
	ID       flexibleID      `json:"id"`
	Name     string          `json:"name"`
	Status   string          `json:"status"`
	Message  string          `json:"message"`
	Type     string          `json:"type"`
	IP       string          `json:"ip"`
	Gateway  string          `json:"gateway"`
	Mask     json.RawMessage `json:"mask"`
	DNS      []string        `json:"dns"`
	Uptime   int64           `json:"uptime"`
	Priority int             `json:"priority"`
	Enable   *bool           `json:"enable"`
}

// flexibleID tolerates firmware emitting interface IDs as numbers or strings.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*f = flexibleID(asString)
		return nil
	}

	var asNumber json.Number
	if err := json.Unmarshal(data, &asNumber); err != nil {
		return fmt.Errorf("UnmarshalJSON: %w", err)
	}

	*f = flexibleID(asNumber.String())
	return nil
}

// GetWANStatus returns the state of every WAN link. The result is canonical:
// a non-nil, ID-sorted list with name and status always populated, no matter
// which envelope shape the firmware produced. Failure envelopes and
// malformed payloads degrade to an empty list.
func (s *Service) GetWANStatus(ctx context.Context) (entities.WANInterfaces, error) {
	wans := entities.WANInterfaces{}

	envelope, err := s.requestFunc(ctx, constants.FuncWANStatus, true, nil)
	if err != nil {
		return wans, fmt.Errorf("GetWANStatus: %w", err)
	}

	if envelope.failed() {
		log.Error().Str("message", envelope.Message).Int("code", envelope.Code).Msg("GetWANStatus: api error")
		return wans, nil
	}

	if len(envelope.Response) > 0 {
		if wans = parseKeyedWANs(envelope.Response); len(wans) > 0 {
			return wans, nil
		}
	}

	// older firmware answers with {"connection": [...]} and no envelope
	var flat struct {
		Connection []wanConnection `json:"connection"`
	}
	if err = json.Unmarshal(envelope.payload(), &flat); err != nil || len(flat.Connection) == 0 {
		log.Warn().Msg("GetWANStatus: unexpected response shape")
		return wans, nil
	}

	for _, conn := range flat.Connection {
		wans = append(wans, normalizeWAN(string(conn.ID), conn))
	}

	sortWANs(wans)
	return wans, nil
}

// parseKeyedWANs folds the numeric-string-keyed shape, skipping artifacts
// such as "order" and capability flags that live next to the interfaces.
func parseKeyedWANs(raw json.RawMessage) entities.WANInterfaces {
	wans := entities.WANInterfaces{}

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return wans
	}

	for key, value := range keyed {
		if !isNumericID(key) {
			continue
		}

		var conn wanConnection
		if err := json.Unmarshal(value, &conn); err != nil {
			log.Warn().Str("id", key).Msg("parseKeyedWANs: skipping malformed interface entry")
			continue
		}

		wans = append(wans, normalizeWAN(key, conn))
	}

	sortWANs(wans)
	return wans
}

func normalizeWAN(id string, conn wanConnection) entities.WANInterface {
	wan := entities.WANInterface{
		ID:       id,
		Name:     conn.Name,
		Status:   conn.Status,
		Message:  conn.Message,
		Type:     conn.Type,
		IP:       conn.IP,
		Gateway:  conn.Gateway,
		Mask:     parseMask(conn.Mask),
		DNS:      conn.DNS,
		Uptime:   conn.Uptime,
		Priority: conn.Priority,
		Enabled:  conn.Enable == nil || *conn.Enable,
	}

	if lo.IsEmpty(wan.Name) {
		wan.Name = "WAN " + id
	}

	if lo.IsEmpty(wan.Status) {
		wan.Status = "unknown"
	}

	if wan.DNS == nil {
		wan.DNS = []string{}
	}

	return wan
}

// parseMask accepts both representations seen in the wild: a dotted-quad
// string and a bare prefix length.
func parseMask(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err != nil {
		return ""
	}

	return asNumber.String()
}

func isNumericID(key string) bool {
	if lo.IsEmpty(key) {
		return false
	}

	_, err := strconv.Atoi(key)
	return err == nil
}

func sortWANs(wans entities.WANInterfaces) {
	sort.Slice(wans, func(i, j int) bool {
		left, _ := strconv.Atoi(wans[i].ID)
		right, _ := strconv.Atoi(wans[j].ID)
		return left < right
	})
}
