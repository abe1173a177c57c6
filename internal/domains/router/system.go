package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/peplink-community/peplink-agent/internal/constants"
	"github.com/peplink-community/peplink-agent/internal/entities"
)

const (
	defaultThermalMin       = -30
	defaultThermalMax       = 110
	defaultThermalThreshold = 30
	defaultFanMaxSpeed      = 17000
)

type systemInfoPayload struct {
	Device     *devicePayload   `json:"device"`
	SystemTime *timePayload     `json:"systemTime"`
	Thermal    []thermalPayload `json:"thermalSensor"`
	Fans       []fanPayload     `json:"fanSpeed"`
}

type devicePayload struct {
	SerialNumber     string `json:"serialNumber"`
	Name             string `json:"name"`
	Model            string `json:"model"`
	ProductCode      string `json:"productCode"`
	HardwareRevision string `json:"hardwareRevision"`
	FirmwareVersion  string `json:"firmwareVersion"`
	Host             string `json:"host"`
	PepVPNVersion    string `json:"pepvpnVersion"`
}

type timePayload struct {
	String    string `json:"string"`
	Timestamp int64  `json:"timestamp"`
	Timezone  string `json:"timezone"`
}

type thermalPayload struct {
	Temperature float64  `json:"temperature"`
	Min         *float64 `json:"min"`
	Max         *float64 `json:"max"`
	Threshold   *float64 `json:"threshold"`
}

type fanPayload struct {
	Active     bool    `json:"active"`
	Value      int     `json:"value"`
	Total      *int    `json:"total"`
	Percentage float64 `json:"percentage"`
}

// GetSystemInfo fetches device identity, system time, thermal sensors and
// fan speeds in the single combined call newer firmware supports.
func (s *Service) GetSystemInfo(ctx context.Context) (entities.SystemInfo, error) {
	info := emptySystemInfo()

	envelope, err := s.requestFunc(ctx, constants.FuncSystemInfo, false, map[string]string{
		"infoType": constants.InfoTypeAll,
	})
	if err != nil {
		return info, fmt.Errorf("GetSystemInfo: %w", err)
	}

	payload, ok := decodeSystemInfo(envelope)
	if !ok {
		log.Warn().Msg("GetSystemInfo: unexpected response shape")
		return info, nil
	}

	return normalizeSystemInfo(payload), nil
}

// GetDeviceInfo resolves device identity, preferring the combined call and
// falling back to a dedicated infoType query only when the combined result
// lacks the device block.
func (s *Service) GetDeviceInfo(ctx context.Context) (entities.DeviceInfo, error) {
	info, err := s.GetSystemInfo(ctx)
	if err != nil {
		return entities.DeviceInfo{}, fmt.Errorf("GetDeviceInfo: %w", err)
	}

	if lo.IsNotEmpty(info.Device.SerialNumber) {
		return info.Device, nil
	}

	envelope, err := s.requestFunc(ctx, constants.FuncSystemInfo, false, map[string]string{
		"infoType": constants.InfoTypeDevice,
	})
	if err != nil {
		return entities.DeviceInfo{}, fmt.Errorf("GetDeviceInfo: %w", err)
	}

	payload, ok := decodeSystemInfo(envelope)
	if !ok || payload.Device == nil {
		log.Warn().Msg("GetDeviceInfo: unexpected response shape")
		return entities.DeviceInfo{}, nil
	}

	return normalizeDevice(*payload.Device), nil
}

// GetThermalSensors resolves thermal data the same two-strategy way.
func (s *Service) GetThermalSensors(ctx context.Context) ([]entities.ThermalSensor, error) {
	info, err := s.GetSystemInfo(ctx)
	if err != nil {
		return []entities.ThermalSensor{}, fmt.Errorf("GetThermalSensors: %w", err)
	}

	if len(info.ThermalSensors) > 0 {
		return info.ThermalSensors, nil
	}

	envelope, err := s.requestFunc(ctx, constants.FuncSystemInfo, false, map[string]string{
		"infoType": constants.InfoTypeThermal,
	})
	if err != nil {
		return []entities.ThermalSensor{}, fmt.Errorf("GetThermalSensors: %w", err)
	}

	payload, ok := decodeSystemInfo(envelope)
	if !ok {
		log.Warn().Msg("GetThermalSensors: unexpected response shape")
		return []entities.ThermalSensor{}, nil
	}

	return normalizeThermal(payload.Thermal), nil
}

// GetFanSpeeds resolves fan data the same two-strategy way.
func (s *Service) GetFanSpeeds(ctx context.Context) ([]entities.FanSpeed, error) {
	info, err := s.GetSystemInfo(ctx)
	if err != nil {
		return []entities.FanSpeed{}, fmt.Errorf("GetFanSpeeds: %w", err)
	}

	if len(info.FanSpeeds) > 0 {
		return info.FanSpeeds, nil
	}

	envelope, err := s.requestFunc(ctx, constants.FuncSystemInfo, false, map[string]string{
		"infoType": constants.InfoTypeFan,
	})
	if err != nil {
		return []entities.FanSpeed{}, fmt.Errorf("GetFanSpeeds: %w", err)
	}

	payload, ok := decodeSystemInfo(envelope)
	if !ok {
		log.Warn().Msg("GetFanSpeeds: unexpected response shape")
		return []entities.FanSpeed{}, nil
	}

	return normalizeFans(payload.Fans), nil
}

func decodeSystemInfo(envelope apiEnvelope) (payload systemInfoPayload, ok bool) {
	if envelope.failed() {
		log.Error().Str("message", envelope.Message).Int("code", envelope.Code).Msg("decodeSystemInfo: api error")
		return payload, false
	}

	if len(envelope.Response) == 0 {
		return payload, false
	}

	if err := json.Unmarshal(envelope.Response, &payload); err != nil {
		return payload, false
	}

	return payload, true
}

func emptySystemInfo() entities.SystemInfo {
	return entities.SystemInfo{
		ThermalSensors: []entities.ThermalSensor{},
		FanSpeeds:      []entities.FanSpeed{},
	}
}

func normalizeSystemInfo(payload systemInfoPayload) entities.SystemInfo {
	info := emptySystemInfo()

	if payload.Device != nil {
		info.Device = normalizeDevice(*payload.Device)
	}

	if payload.SystemTime != nil {
		info.SystemTime = entities.SystemTime{
			TimeString: payload.SystemTime.String,
			Timestamp:  payload.SystemTime.Timestamp,
			Timezone:   payload.SystemTime.Timezone,
		}
	}

	info.ThermalSensors = normalizeThermal(payload.Thermal)
	info.FanSpeeds = normalizeFans(payload.Fans)

	return info
}

func normalizeDevice(payload devicePayload) entities.DeviceInfo {
	return entities.DeviceInfo{
		SerialNumber:     payload.SerialNumber,
		Name:             payload.Name,
		Model:            payload.Model,
		ProductCode:      payload.ProductCode,
		HardwareRevision: payload.HardwareRevision,
		FirmwareVersion:  payload.FirmwareVersion,
		Host:             payload.Host,
		PepVPNVersion:    payload.PepVPNVersion,
	}
}

func normalizeThermal(payloads []thermalPayload) []entities.ThermalSensor {
	sensors := make([]entities.ThermalSensor, 0, len(payloads))
	for _, payload := range payloads {
		sensors = append(sensors, entities.ThermalSensor{
			// there is a single sensor per device
			Name:        "System",
			Temperature: payload.Temperature,
			Unit:        constants.ThermalUnit,
			Min:         lo.FromPtrOr(payload.Min, defaultThermalMin),
			Max:         lo.FromPtrOr(payload.Max, defaultThermalMax),
			Threshold:   lo.FromPtrOr(payload.Threshold, defaultThermalThreshold),
		})
	}

	return sensors
}

func normalizeFans(payloads []fanPayload) []entities.FanSpeed {
	fans := make([]entities.FanSpeed, 0, len(payloads))
	for i, payload := range payloads {
		if !payload.Active {
			continue
		}

		maxSpeed := lo.FromPtrOr(payload.Total, defaultFanMaxSpeed)
		fans = append(fans, entities.FanSpeed{
			Name:       "Fan " + strconv.Itoa(i+1),
			Speed:      payload.Value,
			Unit:       constants.FanSpeedUnit,
			MaxSpeed:   maxSpeed,
			Percentage: payload.Percentage,
		})
	}

	return fans
}
