package poller_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/peplink-community/peplink-agent/internal/domains/poller"
	"github.com/peplink-community/peplink-agent/internal/entities"
	"github.com/peplink-community/peplink-agent/internal/errs"
)

type routerStub struct {
	mu sync.Mutex

	connectOK  bool
	connectErr error
	systemErr  error

	ensureCalls int
}

func newRouterStub() *routerStub {
	return &routerStub{connectOK: true}
}

func (r *routerStub) EnsureConnected(_ context.Context, _ bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ensureCalls++
	return r.connectOK, r.connectErr
}

func (r *routerStub) GetWANStatus(context.Context) (entities.WANInterfaces, error) {
	return entities.WANInterfaces{{ID: "1", Name: "WAN 1", Status: "connected", Enabled: true}}, nil
}

func (r *routerStub) GetClients(context.Context) (entities.ClientDevices, error) {
	return entities.ClientDevices{{Mac: "aa:bb:cc:dd:ee:ff", Name: "laptop", Connected: true}}, nil
}

func (r *routerStub) GetTrafficStats(context.Context) (entities.TrafficSamples, error) {
	return entities.TrafficSamples{{WANID: "1", Name: "WAN 1", RxBytes: 100, TxBytes: 200, Unit: "bytes"}}, nil
}

func (r *routerStub) GetSystemInfo(context.Context) (entities.SystemInfo, error) {
	if r.systemErr != nil {
		return entities.SystemInfo{}, r.systemErr
	}

	return entities.SystemInfo{
		Device: entities.DeviceInfo{
			SerialNumber:    "1111-2222-3333",
			Name:            "Office Balance",
			Model:           "Balance 20X",
			FirmwareVersion: "8.4.0",
		},
		ThermalSensors: []entities.ThermalSensor{{Name: "System", Temperature: 40, Unit: "C"}},
		FanSpeeds:      []entities.FanSpeed{},
	}, nil
}

func (r *routerStub) GetLocation(context.Context) (entities.GPSLocation, error) {
	return entities.GPSLocation{Type: "Unknown"}, nil
}

type registryStub struct {
	mu    sync.Mutex
	saved []entities.RouterIdentity
	err   error
}

func (r *registryStub) SaveIdentity(identity entities.RouterIdentity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.saved = append(r.saved, identity)
	return r.err
}

func Test_Poll(t *testing.T) {
	t.Parallel()

	routerSvc := newRouterStub()
	registry := &registryStub{}
	svc := poller.NewService("192.168.1.1", time.Minute, routerSvc, registry)

	_, available := svc.Snapshot()
	require.False(t, available)

	require.NoError(t, svc.Poll(context.Background()))

	snapshot, available := svc.Snapshot()
	require.True(t, available)
	require.False(t, snapshot.FetchedAt.IsZero())
	require.Len(t, snapshot.WANs, 1)
	require.Len(t, snapshot.Clients, 1)
	require.Len(t, snapshot.Traffic, 1)
	require.Equal(t, "1111-2222-3333", snapshot.Device.SerialNumber)
	require.Len(t, snapshot.Thermal, 1)

	require.Len(t, registry.saved, 1)
	require.Equal(t, "192.168.1.1", registry.saved[0].Host)
	require.Equal(t, "1111-2222-3333", registry.saved[0].SerialNumber)
	require.Equal(t, snapshot.FetchedAt, registry.saved[0].LastSeen)
}

func Test_Poll_KeepsLastGoodSnapshot(t *testing.T) {
	t.Parallel()

	routerSvc := newRouterStub()
	registry := &registryStub{}
	svc := poller.NewService("192.168.1.1", time.Minute, routerSvc, registry)

	require.NoError(t, svc.Poll(context.Background()))
	good, _ := svc.Snapshot()

	routerSvc.systemErr = errors.New("connection reset")
	require.Error(t, svc.Poll(context.Background()))

	snapshot, available := svc.Snapshot()
	require.False(t, available)
	require.Equal(t, good, snapshot)

	// identity was only persisted for the good cycle
	require.Len(t, registry.saved, 1)
}

func Test_Poll_AuthRejected(t *testing.T) {
	t.Parallel()

	routerSvc := newRouterStub()
	routerSvc.connectOK = false
	registry := &registryStub{}
	svc := poller.NewService("192.168.1.1", time.Minute, routerSvc, registry)

	require.ErrorIs(t, svc.Poll(context.Background()), errs.ErrInvalidCredentials)

	_, available := svc.Snapshot()
	require.False(t, available)
	require.Empty(t, registry.saved)
}

func Test_Start_PollsImmediatelyAndStops(t *testing.T) {
	t.Parallel()

	routerSvc := newRouterStub()
	registry := &registryStub{}
	svc := poller.NewService("192.168.1.1", time.Hour, routerSvc, registry)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, available := svc.Snapshot()
		return available
	}, time.Second*2, time.Millisecond*10)

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second * 2):
		t.Fatal("Start did not stop on context cancellation")
	}

	routerSvc.mu.Lock()
	defer routerSvc.mu.Unlock()
	require.Equal(t, 1, routerSvc.ensureCalls)
}
