package router

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/peplink-community/peplink-agent/internal/constants"
	"github.com/peplink-community/peplink-agent/internal/entities"
)

// base precision in metres per HDOP unit
const gpsAccuracyPerHDOP = 5.0

type locationPayload struct {
	GPS      *bool  `json:"gps"`
	Type     string `json:"type"`
	Location *struct {
		TimeElapsed int64    `json:"timeElapsed"`
		Timestamp   int64    `json:"timestamp"`
		Latitude    float64  `json:"latitude"`
		Longitude   float64  `json:"longitude"`
		Altitude    float64  `json:"altitude"`
		Speed       float64  `json:"speed"`
		Heading     *float64 `json:"heading"`
		Accuracy    *float64 `json:"accuracy"`
		PDOP        float64  `json:"pdop"`
		HDOP        *float64 `json:"hdop"`
		VDOP        float64  `json:"vdop"`
	} `json:"location"`
}

// GetLocation reads the GPS fix on routers that carry a receiver. Routers
// without GPS answer gps=false and get the canonical empty shape. When the
// firmware reports no accuracy but does report horizontal dilution of
// precision, accuracy is approximated as hdop * 5 metres.
func (s *Service) GetLocation(ctx context.Context) (entities.GPSLocation, error) {
	location := entities.GPSLocation{Type: "Unknown"}

	envelope, err := s.requestFunc(ctx, constants.FuncLocation, false, nil)
	if err != nil {
		return location, fmt.Errorf("GetLocation: %w", err)
	}

	if envelope.failed() {
		log.Error().Str("message", envelope.Message).Int("code", envelope.Code).Msg("GetLocation: api error")
		return location, nil
	}

	var payload locationPayload
	if len(envelope.Response) == 0 {
		log.Warn().Msg("GetLocation: unexpected response shape")
		return location, nil
	}

	if err = json.Unmarshal(envelope.Response, &payload); err != nil {
		log.Warn().Msg("GetLocation: unexpected response shape")
		return location, nil
	}

	if payload.GPS == nil || !*payload.GPS {
		return location, nil
	}

	location.GPS = true
	location.Type = payload.Type
	if payload.Location == nil {
		return location, nil
	}

	fix := &entities.GPSFix{
		TimeElapsed: payload.Location.TimeElapsed,
		Timestamp:   payload.Location.Timestamp,
		Latitude:    payload.Location.Latitude,
		Longitude:   payload.Location.Longitude,
		Altitude:    payload.Location.Altitude,
		Speed:       payload.Location.Speed,
		Heading:     payload.Location.Heading,
		PDOP:        payload.Location.PDOP,
		VDOP:        payload.Location.VDOP,
	}

	if payload.Location.HDOP != nil {
		fix.HDOP = *payload.Location.HDOP
	}

	switch {
	case payload.Location.Accuracy != nil:
		fix.Accuracy = *payload.Location.Accuracy
	case payload.Location.HDOP != nil:
		fix.Accuracy = *payload.Location.HDOP * gpsAccuracyPerHDOP
	}

	location.Location = fix
	return location, nil
}
