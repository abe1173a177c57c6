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

const (
	bytesPerMB  = 1048576 // 1024 * 1024, fixed by the firmware's MB counters
	bitsPerKbps = 1024
)

// wanTraffic accepts every historically observed counter spelling. rx/tx
// style fields are already bytes and bits per second; download/upload style
// fields arrive as MB and kbps and get converted exactly.
type wanTraffic struct {
	Name         string `json:"name"`
	Rx           *int64 `json:"rx"`
	Tx           *int64 `json:"tx"`
	RxBytes      *int64 `json:"rx_bytes"`
	TxBytes      *int64 `json:"tx_bytes"`
	RxRate       *int64 `json:"rx_rate"`
	TxRate       *int64 `json:"tx_rate"`
	Download     *int64 `json:"download"`
	Upload       *int64 `json:"upload"`
	DownloadRate *int64 `json:"download_rate"`
	UploadRate   *int64 `json:"upload_rate"`
}

// GetTrafficStats returns per-WAN traffic counters. It resolves the data
// against two endpoints (newer firmware dropped the first), then
// cross-references the interfaces reported by GetWANStatus so a link that
// the traffic endpoint omitted still shows up as a zero-valued entry and is
// never lost between polls.
func (s *Service) GetTrafficStats(ctx context.Context) (entities.TrafficSamples, error) {
	stats := entities.TrafficSamples{}

	wans, err := s.GetWANStatus(ctx)
	if err != nil {
		return stats, fmt.Errorf("GetTrafficStats: %w", err)
	}

	wanNames := make(map[string]string, len(wans))
	for _, wan := range wans {
		wanNames[wan.ID] = wan.Name
	}

	stats = s.fetchTraffic(ctx, constants.FuncTraffic, wanNames)
	if len(stats) == 0 {
		stats = s.fetchTraffic(ctx, constants.FuncWANStatistics, wanNames)
	}

	seen := lo.SliceToMap(stats, func(sample entities.TrafficSample) (string, bool) {
		return sample.WANID, true
	})

	for id, name := range wanNames {
		if seen[id] {
			continue
		}

		stats = append(stats, entities.TrafficSample{
			WANID: id,
			Name:  name,
			Unit:  constants.TrafficUnitBytes,
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		left, _ := strconv.Atoi(stats[i].WANID)
		right, _ := strconv.Atoi(stats[j].WANID)
		return left < right
	})

	if len(stats) == 0 {
		log.Warn().Msg("GetTrafficStats: no traffic data from any endpoint")
	}

	return stats, nil
}

func (s *Service) fetchTraffic(ctx context.Context, fn string, wanNames map[string]string) entities.TrafficSamples {
	stats := entities.TrafficSamples{}

	envelope, err := s.requestFunc(ctx, fn, false, nil)
	if err != nil {
		log.Debug().Err(err).Str("func", fn).Msg("fetchTraffic: endpoint unavailable")
		return stats
	}

	if envelope.failed() {
		log.Debug().Str("message", envelope.Message).Str("func", fn).Msg("fetchTraffic: api error")
		return stats
	}

	keyed, ok := decodeTrafficMap(envelope.Response)
	if !ok {
		log.Debug().Str("func", fn).Msg("fetchTraffic: unexpected response shape")
		return stats
	}

	for id, raw := range keyed {
		// "order" and capability flags live next to the per-interface
		// entries; only numeric IDs are interfaces
		if !isNumericID(id) {
			continue
		}

		var traffic wanTraffic
		if err := json.Unmarshal(raw, &traffic); err != nil {
			log.Warn().Str("id", id).Str("func", fn).Msg("fetchTraffic: skipping malformed traffic entry")
			continue
		}

		name := traffic.Name
		if lo.IsEmpty(name) {
			name = wanNames[id]
		}
		if lo.IsEmpty(name) {
			name = "WAN " + id
		}

		stats = append(stats, entities.TrafficSample{
			WANID:   id,
			Name:    name,
			RxBytes: pickCounter(traffic.Rx, traffic.RxBytes, traffic.Download, bytesPerMB),
			TxBytes: pickCounter(traffic.Tx, traffic.TxBytes, traffic.Upload, bytesPerMB),
			RxRate:  pickCounter(traffic.RxRate, nil, traffic.DownloadRate, bitsPerKbps),
			TxRate:  pickCounter(traffic.TxRate, nil, traffic.UploadRate, bitsPerKbps),
			Unit:    constants.TrafficUnitBytes,
		})
	}

	return stats
}

// decodeTrafficMap unwraps both observed layouts: interfaces keyed directly
// under response, or nested one level down under a "traffic" object.
func decodeTrafficMap(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	if len(raw) == 0 {
		return nil, false
	}

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return nil, false
	}

	if nested, found := keyed["traffic"]; found {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(nested, &inner); err == nil {
			return inner, true
		}
	}

	return keyed, true
}

// pickCounter prefers the native-unit fields and falls back to the scaled
// legacy field multiplied by its fixed conversion factor.
func pickCounter(native, alias, scaled *int64, factor int64) int64 {
	if native != nil {
		return *native
	}

	if alias != nil {
		return *alias
	}

	if scaled != nil {
		return *scaled * factor
	}

	return 0
}
