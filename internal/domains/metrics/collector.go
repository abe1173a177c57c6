package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/peplink-community/peplink-agent/internal/entities"
)

const namespace = "peplink"

type ISnapshotProvider interface {
	Snapshot() (snapshot entities.RouterSnapshot, available bool)
}

// Collector exposes the latest router snapshot as Prometheus metrics. It
// never talks to the router itself; scrapes read whatever the poll loop
// gathered last, so a slow router cannot stall the metrics endpoint.
type Collector struct {
	provider ISnapshotProvider
	host     string

	up           *prometheus.Desc
	snapshotAge  *prometheus.Desc
	deviceInfo   *prometheus.Desc
	wanStatus    *prometheus.Desc
	wanEnabled   *prometheus.Desc
	wanPriority  *prometheus.Desc
	wanUptime    *prometheus.Desc
	trafficRx    *prometheus.Desc
	trafficTx    *prometheus.Desc
	trafficRxRt  *prometheus.Desc
	trafficTxRt  *prometheus.Desc
	thermalTemp  *prometheus.Desc
	fanSpeed     *prometheus.Desc
	fanPercent   *prometheus.Desc
	clientCount  *prometheus.Desc
	gpsFix       *prometheus.Desc
	gpsLatitude  *prometheus.Desc
	gpsLongitude *prometheus.Desc
}

func NewCollector(host string, provider ISnapshotProvider) *Collector {
	hostLabel := prometheus.Labels{"host": host}
	wanLabels := []string{"wan_id", "name"}

	return &Collector{
		provider: provider,
		host:     host,

		up: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "up"),
			"Whether the most recent poll cycle against the router succeeded.",
			nil, hostLabel,
		),
		snapshotAge: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "snapshot_age_seconds"),
			"Age of the snapshot currently being served.",
			nil, hostLabel,
		),
		deviceInfo: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "device", "info"),
			"Static device identity, value is always 1.",
			[]string{"serial", "name", "model", "firmware"}, hostLabel,
		),
		wanStatus: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "wan", "connected"),
			"Whether the WAN link reports a connected status.",
			wanLabels, hostLabel,
		),
		wanEnabled: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "wan", "enabled"),
			"Whether the WAN link is administratively enabled.",
			wanLabels, hostLabel,
		),
		wanPriority: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "wan", "priority"),
			"Failover priority of the WAN link.",
			wanLabels, hostLabel,
		),
		wanUptime: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "wan", "uptime_seconds"),
			"Connection uptime of the WAN link.",
			wanLabels, hostLabel,
		),
		trafficRx: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "wan", "rx_bytes_total"),
			"Bytes received on the WAN link.",
			wanLabels, hostLabel,
		),
		trafficTx: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "wan", "tx_bytes_total"),
			"Bytes sent on the WAN link.",
			wanLabels, hostLabel,
		),
		trafficRxRt: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "wan", "rx_rate_bits"),
			"Current receive rate of the WAN link in bits per second.",
			wanLabels, hostLabel,
		),
		trafficTxRt: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "wan", "tx_rate_bits"),
			"Current transmit rate of the WAN link in bits per second.",
			wanLabels, hostLabel,
		),
		thermalTemp: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "thermal", "temperature_celsius"),
			"Temperature reported by the sensor.",
			[]string{"sensor"}, hostLabel,
		),
		fanSpeed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "fan", "speed_rpm"),
			"Fan rotation speed.",
			[]string{"fan"}, hostLabel,
		),
		fanPercent: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "fan", "speed_percent"),
			"Fan speed as a share of its maximum.",
			[]string{"fan"}, hostLabel,
		),
		clientCount: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "clients", "connected"),
			"Number of client devices attached to the router.",
			nil, hostLabel,
		),
		gpsFix: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "gps", "fix"),
			"Whether the router currently has a GPS fix.",
			nil, hostLabel,
		),
		gpsLatitude: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "gps", "latitude"),
			"Latitude of the current GPS fix.",
			nil, hostLabel,
		),
		gpsLongitude: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "gps", "longitude"),
			"Longitude of the current GPS fix.",
			nil, hostLabel,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.up
	ch <- c.snapshotAge
	ch <- c.deviceInfo
	ch <- c.wanStatus
	ch <- c.wanEnabled
	ch <- c.wanPriority
	ch <- c.wanUptime
	ch <- c.trafficRx
	ch <- c.trafficTx
	ch <- c.trafficRxRt
	ch <- c.trafficTxRt
	ch <- c.thermalTemp
	ch <- c.fanSpeed
	ch <- c.fanPercent
	ch <- c.clientCount
	ch <- c.gpsFix
	ch <- c.gpsLatitude
	ch <- c.gpsLongitude
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snapshot, available := c.provider.Snapshot()

	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, boolValue(available))

	if snapshot.FetchedAt.IsZero() {
		return
	}

	ch <- prometheus.MustNewConstMetric(c.snapshotAge, prometheus.GaugeValue, time.Since(snapshot.FetchedAt).Seconds())

	if snapshot.Device.SerialNumber != "" {
		ch <- prometheus.MustNewConstMetric(c.deviceInfo, prometheus.GaugeValue, 1,
			snapshot.Device.SerialNumber, snapshot.Device.Name, snapshot.Device.Model, snapshot.Device.FirmwareVersion)
	}

	for _, wan := range snapshot.WANs {
		ch <- prometheus.MustNewConstMetric(c.wanStatus, prometheus.GaugeValue, boolValue(wan.Status == "connected"), wan.ID, wan.Name)
		ch <- prometheus.MustNewConstMetric(c.wanEnabled, prometheus.GaugeValue, boolValue(wan.Enabled), wan.ID, wan.Name)
		ch <- prometheus.MustNewConstMetric(c.wanPriority, prometheus.GaugeValue, float64(wan.Priority), wan.ID, wan.Name)
		ch <- prometheus.MustNewConstMetric(c.wanUptime, prometheus.GaugeValue, float64(wan.Uptime), wan.ID, wan.Name)
	}

	for _, sample := range snapshot.Traffic {
		ch <- prometheus.MustNewConstMetric(c.trafficRx, prometheus.CounterValue, float64(sample.RxBytes), sample.WANID, sample.Name)
		ch <- prometheus.MustNewConstMetric(c.trafficTx, prometheus.CounterValue, float64(sample.TxBytes), sample.WANID, sample.Name)
		ch <- prometheus.MustNewConstMetric(c.trafficRxRt, prometheus.GaugeValue, float64(sample.RxRate), sample.WANID, sample.Name)
		ch <- prometheus.MustNewConstMetric(c.trafficTxRt, prometheus.GaugeValue, float64(sample.TxRate), sample.WANID, sample.Name)
	}

	for _, sensor := range snapshot.Thermal {
		ch <- prometheus.MustNewConstMetric(c.thermalTemp, prometheus.GaugeValue, sensor.Temperature, sensor.Name)
	}

	for _, fan := range snapshot.Fans {
		ch <- prometheus.MustNewConstMetric(c.fanSpeed, prometheus.GaugeValue, float64(fan.Speed), fan.Name)
		ch <- prometheus.MustNewConstMetric(c.fanPercent, prometheus.GaugeValue, fan.Percentage, fan.Name)
	}

	ch <- prometheus.MustNewConstMetric(c.clientCount, prometheus.GaugeValue, float64(len(snapshot.Clients)))

	hasFix := snapshot.Location.GPS && snapshot.Location.Location != nil
	ch <- prometheus.MustNewConstMetric(c.gpsFix, prometheus.GaugeValue, boolValue(hasFix))
	if hasFix {
		ch <- prometheus.MustNewConstMetric(c.gpsLatitude, prometheus.GaugeValue, snapshot.Location.Location.Latitude)
		ch <- prometheus.MustNewConstMetric(c.gpsLongitude, prometheus.GaugeValue, snapshot.Location.Location.Longitude)
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}

	return 0
}
