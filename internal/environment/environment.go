package environment

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/spf13/viper"

	"github.com/peplink-community/peplink-agent/internal/constants"
)

const (
	defaultPollInterval = time.Second * 60
	defaultListenAddr   = ":9822"
)

type Environment struct {
	Agent
}

type Agent struct {
	RouterHost   string `validate:"required"`
	Username     string `validate:"required"`
	Password     string `validate:"required"`
	VerifySSL    bool
	PollInterval time.Duration
	ListenAddr   string
	RegistryPath string
	LogfilePath  string
	LogLevel     string
}

func New() (e Environment, err error) {
	v := viper.New()
	v.SetEnvPrefix("PEPLINK")
	v.AutomaticEnv()

	v.SetDefault("VERIFY_SSL", true)

	e.Agent.RouterHost = v.GetString("HOST")
	e.Agent.Username = v.GetString("USERNAME")
	e.Agent.Password = v.GetString("PASSWORD")
	e.Agent.VerifySSL = v.GetBool("VERIFY_SSL")

	e.Agent.PollInterval = v.GetDuration("POLL_INTERVAL")
	if e.Agent.PollInterval == 0 {
		e.Agent.PollInterval = defaultPollInterval
	}

	e.Agent.ListenAddr = v.GetString("LISTEN_ADDR")
	if lo.IsEmpty(e.Agent.ListenAddr) {
		e.Agent.ListenAddr = defaultListenAddr
	}

	e.Agent.RegistryPath = v.GetString("REGISTRY_PATH")
	if lo.IsEmpty(e.Agent.RegistryPath) {
		e.Agent.RegistryPath = constants.DefaultRegistryPath
	}

	e.Agent.LogfilePath = v.GetString("LOG_FILE")
	if lo.IsEmpty(e.Agent.LogfilePath) {
		e.Agent.LogfilePath = constants.DefaultLogfilePath
	}

	e.Agent.LogLevel = v.GetString("LOG_LEVEL")
	if lo.IsEmpty(e.Agent.LogLevel) {
		e.Agent.LogLevel = "info"
	}

	if err = validator.New().Struct(e.Agent); err != nil {
		return e, fmt.Errorf("New: %w", err)
	}

	return e, nil
}

func (e Agent) IsDebug() bool {
	return e.LogLevel == "debug"
}
