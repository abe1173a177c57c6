package constants

const (
	AuthCookieName = "bauth"
)

const (
	LoginEndpoint     = "/api/login"
	StatusEndpoint    = "/api/status"
	CGIApp            = "MANGA"
	FuncWANStatus     = "status.wan"
	FuncClientList    = "status.client"
	FuncSystemInfo    = "status.system.info"
	FuncTraffic       = "status.traffic"
	FuncWANStatistics = "status.wan.statistics"
	FuncLocation      = "info.location"
)

const (
	InfoTypeAll     = "device systemTime thermalSensor fanSpeed"
	InfoTypeDevice  = "device"
	InfoTypeThermal = "thermalSensor"
	InfoTypeFan     = "fanSpeed"
)

const (
	TrafficUnitBytes = "bytes"
	ThermalUnit      = "C"
	FanSpeedUnit     = "RPM"
)

const (
	FilePerm    = 0755
	LogFilePerm = 0644
)
