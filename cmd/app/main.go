package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/peplink-community/peplink-agent/infrastructure"
	"github.com/peplink-community/peplink-agent/internal/constants"
	"github.com/peplink-community/peplink-agent/internal/environment"
	"github.com/peplink-community/peplink-agent/internal/errs"
)

var (
	env            environment.Environment
	serviceVersion = "0.0.1"
)

func init() {
	var err error
	if env, err = environment.New(); err != nil {
		log.Fatal().Err(err).Msg("error loading environment")
	}
}

func main() {
	logWriter, err := setupRollingLogFile(env.Agent.LogfilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("main")
	}

	log.Logger = log.Output(logWriter)
	if err = setLogLevel(env.Agent.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("main")
	}

	log.Info().
		Str("agent version", serviceVersion).
		Str("router", env.Agent.RouterHost).
		Str("log path", env.Agent.LogfilePath).
		Str("log level", env.Agent.LogLevel).
		Msg("main: app started")

	cancelCtx, cancelFunc := signal.NotifyContext(context.Background(), os.Kill, os.Interrupt, syscall.SIGTERM)
	defer cancelFunc()

	kernel, err := infrastructure.Inject(env)
	if err != nil {
		log.Fatal().Err(err).Msg("main")
	}

	log.Info().Msg("main: start initializing app services...")
	if err = initServices(cancelCtx, kernel); err != nil {
		log.Fatal().Err(err).Msg("main")
	}
	log.Info().Msg("main: app services initialized")

	<-cancelCtx.Done()

	log.Info().Msg("main: stopping app...")
	shutdownServices(kernel)
	log.Info().Msg("main: app gracefully stopped")
}

func initServices(ctx context.Context, kernel *infrastructure.Kernel) error {
	// validate router reachability up front: a certificate failure is a
	// configuration problem, not something polling retries can fix
	routerService := kernel.InjectRouterService()
	ok, err := routerService.Connect(ctx)
	if errors.Is(err, errs.ErrCertificate) {
		return fmt.Errorf("initServices: %w (set PEPLINK_VERIFY_SSL=false for routers with self-signed certificates)", err)
	}
	if err != nil {
		return fmt.Errorf("initServices: %w", err)
	}
	if !ok {
		log.Warn().Str("router", env.Agent.RouterHost).Msg("initServices: router rejected authentication, polling will keep retrying")
	}

	log.Info().Msg("initServices: starting poller service...")
	go kernel.InjectPollerService().Start(ctx)
	log.Info().Msg("initServices: poller service started")

	log.Info().Msg("initServices: starting http server...")
	go func() {
		if err := kernel.InjectWebService().Start(); err != nil {
			log.Error().Err(err).Msg("initServices: http server error")
		}
	}()

	return nil
}

func shutdownServices(kernel *infrastructure.Kernel) {
	if err := kernel.InjectWebService().Stop(); err != nil {
		log.Error().Err(err).Msg("shutdownServices: http server shutdown error")
	}

	kernel.InjectRouterService().Close()

	if err := kernel.DB.Close(); err != nil {
		log.Error().Err(err).Msg("shutdownServices: close badger error")
	}
}

func setLogLevel(level string) error {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("setLogLevel: %w", err)
	}

	zerolog.SetGlobalLevel(parsed)
	return nil
}

func setupRollingLogFile(filename string) (logWriter *lumberjack.Logger, err error) {
	// create log dir if not exists
	if err = os.MkdirAll(filepath.Dir(filename), constants.FilePerm); err != nil {
		return logWriter, fmt.Errorf("setupRollingLogFile: %w", err)
	}

	if _, statErr := os.Stat(filename); statErr != nil {
		if !os.IsNotExist(statErr) {
			return logWriter, fmt.Errorf("setupRollingLogFile: %w", statErr)
		}

		// create new log file
		logFile, err := os.OpenFile(filename, os.O_CREATE, constants.LogFilePerm)
		if err != nil {
			return logWriter, fmt.Errorf("setupRollingLogFile: %w", err)
		}
		defer logFile.Close()
	}

	return &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    15,   // megabytes per log file
		MaxAge:     30,   // store retained log files for 30 days
		MaxBackups: 10,   // store maximum 10 retained log files
		Compress:   true, // compress files via gzip
	}, nil
}
