package report_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/peplink-community/peplink-agent/internal/domains/report"
	"github.com/peplink-community/peplink-agent/internal/entities"
)

type providerStub struct {
	snapshot  entities.RouterSnapshot
	available bool
}

func (p *providerStub) Snapshot() (entities.RouterSnapshot, bool) {
	return p.snapshot, p.available
}

func Test_Render(t *testing.T) {
	t.Parallel()

	provider := &providerStub{
		available: true,
		snapshot: entities.RouterSnapshot{
			WANs: entities.WANInterfaces{
				{ID: "1", Name: "Fiber", Status: "connected", IP: "203.0.113.10", Priority: 1, Enabled: true},
				{ID: "2", Name: "Cellular", Status: "disconnected", Priority: 2},
			},
			Clients: entities.ClientDevices{
				{Mac: "aa:bb:cc:dd:ee:ff", Name: "laptop", IP: "192.168.1.10", SSID: "office", Connected: true},
			},
			Traffic: entities.TrafficSamples{
				{WANID: "1", Name: "Fiber", RxBytes: 1048576, TxBytes: 512, Unit: "bytes"},
			},
			Thermal: []entities.ThermalSensor{{Name: "System", Temperature: 41.5, Unit: "C"}},
			Fans:    []entities.FanSpeed{{Name: "Fan 1", Speed: 8500, Unit: "RPM", Percentage: 50}},
			Device: entities.DeviceInfo{
				SerialNumber:    "1111-2222-3333",
				Name:            "Office Balance",
				Model:           "Balance 20X",
				FirmwareVersion: "8.4.0",
			},
			FetchedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		},
	}

	output := report.NewService("192.168.1.1", provider).Render()

	require.Contains(t, output, "Router 192.168.1.1")
	require.Contains(t, output, "reachable")
	require.Contains(t, output, "Office Balance")
	require.Contains(t, output, "Fiber")
	require.Contains(t, output, "connected")
	require.Contains(t, output, "disconnected (disabled)")
	require.Contains(t, output, "1.0 MiB")
	require.Contains(t, output, "512 B")
	require.Contains(t, output, "aa:bb:cc:dd:ee:ff")
	require.Contains(t, output, "41.5 C")
	require.Contains(t, output, "8500 RPM (50%)")
}

func Test_Render_NoSnapshotYet(t *testing.T) {
	t.Parallel()

	output := report.NewService("192.168.1.1", &providerStub{}).Render()

	require.Contains(t, output, "unreachable")
	require.Contains(t, output, "no snapshot collected yet")
	require.NotContains(t, output, "WAN links")
}

func Test_Render_UnreachableKeepsLastSnapshot(t *testing.T) {
	t.Parallel()

	provider := &providerStub{
		available: false,
		snapshot: entities.RouterSnapshot{
			WANs:      entities.WANInterfaces{{ID: "1", Name: "Fiber", Status: "connected", Enabled: true}},
			FetchedAt: time.Date(2026, 8, 30, 11, 0, 0, 0, time.UTC),
		},
	}

	output := report.NewService("192.168.1.1", provider).Render()

	require.Contains(t, output, "unreachable")
	require.Contains(t, output, "Fiber")
}
