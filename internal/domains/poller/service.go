package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"

	"github.com/peplink-community/peplink-agent/internal/entities"
	"github.com/peplink-community/peplink-agent/internal/errs"
)

const defaultPollInterval = time.Second * 60

type (
	IRouterService interface {
		EnsureConnected(ctx context.Context, force bool) (ok bool, err error)
		GetWANStatus(ctx context.Context) (entities.WANInterfaces, error)
		GetClients(ctx context.Context) (entities.ClientDevices, error)
		GetTrafficStats(ctx context.Context) (entities.TrafficSamples, error)
		GetSystemInfo(ctx context.Context) (entities.SystemInfo, error)
		GetLocation(ctx context.Context) (entities.GPSLocation, error)
	}

	IIdentityRegistry interface {
		SaveIdentity(identity entities.RouterIdentity) error
	}
)

// Service polls one router on a fixed interval and keeps the latest complete
// snapshot. A failed cycle never clobbers the last good one; consumers keep
// serving slightly stale data until the router comes back.
type Service struct {
	host          string
	interval      time.Duration
	routerService IRouterService
	registry      IIdentityRegistry

	mx        sync.RWMutex
	snapshot  entities.RouterSnapshot
	available bool
}

func NewService(host string, interval time.Duration, routerService IRouterService, registry IIdentityRegistry) *Service {
	if interval <= 0 {
		interval = defaultPollInterval
	}

	return &Service{
		host:          host,
		interval:      interval,
		routerService: routerService,
		registry:      registry,
	}
}

// Start polls once immediately, then on every tick until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	if err := s.Poll(ctx); err != nil {
		log.Error().Err(err).Str("host", s.host).Msg("Start: initial poll failed")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Poll(ctx); err != nil {
				log.Error().Err(err).Str("host", s.host).Msg("Start: poll failed")
			}
		}
	}
}

// Poll runs one full collection cycle, fetching all data classes in
// parallel over the shared authenticated session.
func (s *Service) Poll(ctx context.Context) error {
	ok, err := s.routerService.EnsureConnected(ctx, false)
	if err != nil {
		return fmt.Errorf("Poll: %w", err)
	}
	if !ok {
		s.markUnavailable()
		return fmt.Errorf("Poll: router %s: %w", s.host, errs.ErrInvalidCredentials)
	}

	snapshot := entities.RouterSnapshot{}

	p := pool.New().WithErrors()
	p.Go(func() error {
		wans, err := s.routerService.GetWANStatus(ctx)
		snapshot.WANs = wans
		return err
	})
	p.Go(func() error {
		clients, err := s.routerService.GetClients(ctx)
		snapshot.Clients = clients
		return err
	})
	p.Go(func() error {
		traffic, err := s.routerService.GetTrafficStats(ctx)
		snapshot.Traffic = traffic
		return err
	})
	p.Go(func() error {
		info, err := s.routerService.GetSystemInfo(ctx)
		snapshot.Device = info.Device
		snapshot.Thermal = info.ThermalSensors
		snapshot.Fans = info.FanSpeeds
		return err
	})
	p.Go(func() error {
		location, err := s.routerService.GetLocation(ctx)
		snapshot.Location = location
		return err
	})

	if err := p.Wait(); err != nil {
		s.markUnavailable()
		return fmt.Errorf("Poll: %w", err)
	}

	snapshot.FetchedAt = time.Now()

	s.mx.Lock()
	s.snapshot = snapshot
	s.available = true
	s.mx.Unlock()

	s.persistIdentity(snapshot)

	log.Debug().
		Str("host", s.host).
		Int("wans", len(snapshot.WANs)).
		Int("clients", len(snapshot.Clients)).
		Msg("Poll: cycle complete")

	return nil
}

// Snapshot returns the last complete snapshot. available reports whether the
// most recent cycle succeeded; the snapshot itself may still hold the last
// good data when it did not.
func (s *Service) Snapshot() (snapshot entities.RouterSnapshot, available bool) {
	s.mx.RLock()
	defer s.mx.RUnlock()

	return s.snapshot, s.available
}

func (s *Service) markUnavailable() {
	s.mx.Lock()
	defer s.mx.Unlock()

	s.available = false
}

func (s *Service) persistIdentity(snapshot entities.RouterSnapshot) {
	if lo.IsEmpty(snapshot.Device.SerialNumber) {
		return
	}

	identity := entities.RouterIdentity{
		Host:             s.host,
		SerialNumber:     snapshot.Device.SerialNumber,
		Name:             snapshot.Device.Name,
		Model:            snapshot.Device.Model,
		ProductCode:      snapshot.Device.ProductCode,
		HardwareRevision: snapshot.Device.HardwareRevision,
		FirmwareVersion:  snapshot.Device.FirmwareVersion,
		LastSeen:         snapshot.FetchedAt,
	}

	if err := s.registry.SaveIdentity(identity); err != nil {
		log.Error().Err(err).Str("host", s.host).Msg("persistIdentity: save failed")
	}
}
