package constants

const (
	DefaultLogfilePath  = "/var/log/peplink/peplink_agent.log"
	DefaultRegistryPath = "/var/lib/peplink-agent/registry"
)
