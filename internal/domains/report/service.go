package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"

	"github.com/peplink-community/peplink-agent/internal/entities"
)

type ISnapshotProvider interface {
	Snapshot() (snapshot entities.RouterSnapshot, available bool)
}

// Service renders the current snapshot as a human-readable status report for
// the /status endpoint and interactive troubleshooting.
type Service struct {
	host     string
	provider ISnapshotProvider
}

func NewService(host string, provider ISnapshotProvider) *Service {
	return &Service{
		host:     host,
		provider: provider,
	}
}

func (s *Service) Render() string {
	snapshot, available := s.provider.Snapshot()

	var sb strings.Builder
	sb.WriteString(s.renderHeader(snapshot, available))

	if snapshot.FetchedAt.IsZero() {
		sb.WriteString("\nno snapshot collected yet\n")
		return sb.String()
	}

	sb.WriteString("\n")
	sb.WriteString(renderWANs(snapshot))
	sb.WriteString("\n")
	sb.WriteString(renderClients(snapshot.Clients))

	if health := renderHealth(snapshot); lo.IsNotEmpty(health) {
		sb.WriteString("\n")
		sb.WriteString(health)
	}

	return sb.String()
}

func (s *Service) renderHeader(snapshot entities.RouterSnapshot, available bool) string {
	t := table.NewWriter()
	t.SetTitle("Router %s", s.host)
	t.AppendRows([]table.Row{
		{"Status", lo.Ternary(available, "reachable", "unreachable")},
		{"Device", lo.Ternary(lo.IsNotEmpty(snapshot.Device.Name), snapshot.Device.Name, "-")},
		{"Model", lo.Ternary(lo.IsNotEmpty(snapshot.Device.Model), snapshot.Device.Model, "-")},
		{"Serial", lo.Ternary(lo.IsNotEmpty(snapshot.Device.SerialNumber), snapshot.Device.SerialNumber, "-")},
		{"Firmware", lo.Ternary(lo.IsNotEmpty(snapshot.Device.FirmwareVersion), snapshot.Device.FirmwareVersion, "-")},
		{"Last poll", lo.Ternary(snapshot.FetchedAt.IsZero(), "never", snapshot.FetchedAt.Format(time.RFC3339))},
	})

	return t.Render() + "\n"
}

func renderWANs(snapshot entities.RouterSnapshot) string {
	traffic := lo.SliceToMap(snapshot.Traffic, func(sample entities.TrafficSample) (string, entities.TrafficSample) {
		return sample.WANID, sample
	})

	t := table.NewWriter()
	t.SetTitle("WAN links")
	t.AppendHeader(table.Row{"#", "NAME", "STATUS", "IP", "PRIORITY", "RX", "TX"})

	for _, wan := range snapshot.WANs {
		sample := traffic[wan.ID]
		t.AppendRow(table.Row{
			wan.ID,
			wan.Name,
			lo.Ternary(wan.Enabled, wan.Status, wan.Status+" (disabled)"),
			lo.Ternary(lo.IsNotEmpty(wan.IP), wan.IP, "-"),
			wan.Priority,
			formatBytes(sample.RxBytes),
			formatBytes(sample.TxBytes),
		})
	}

	return t.Render() + "\n"
}

func renderClients(clients entities.ClientDevices) string {
	t := table.NewWriter()
	t.SetTitle("Clients (%d)", len(clients))
	t.AppendHeader(table.Row{"MAC", "NAME", "IP", "SSID"})

	for _, client := range clients {
		t.AppendRow(table.Row{
			client.Mac,
			client.Name,
			lo.Ternary(lo.IsNotEmpty(client.IP), client.IP, "-"),
			lo.Ternary(lo.IsNotEmpty(client.SSID), client.SSID, "-"),
		})
	}

	return t.Render() + "\n"
}

func renderHealth(snapshot entities.RouterSnapshot) string {
	if len(snapshot.Thermal) == 0 && len(snapshot.Fans) == 0 {
		return ""
	}

	t := table.NewWriter()
	t.SetTitle("Health")
	t.AppendHeader(table.Row{"SENSOR", "VALUE"})

	for _, sensor := range snapshot.Thermal {
		t.AppendRow(table.Row{sensor.Name, fmt.Sprintf("%.1f %s", sensor.Temperature, sensor.Unit)})
	}

	for _, fan := range snapshot.Fans {
		t.AppendRow(table.Row{fan.Name, fmt.Sprintf("%d %s (%.0f%%)", fan.Speed, fan.Unit, fan.Percentage)})
	}

	return t.Render() + "\n"
}

func formatBytes(count int64) string {
	const unit = 1024

	if count < unit {
		return fmt.Sprintf("%d B", count)
	}

	div, exp := int64(unit), 0
	for n := count / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(count)/float64(div), "KMGTPE"[exp])
}
