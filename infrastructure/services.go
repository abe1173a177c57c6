package infrastructure

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/peplink-community/peplink-agent/internal/domains/metrics"
	"github.com/peplink-community/peplink-agent/internal/domains/poller"
	"github.com/peplink-community/peplink-agent/internal/domains/registry"
	"github.com/peplink-community/peplink-agent/internal/domains/report"
	"github.com/peplink-community/peplink-agent/internal/domains/router"
	"github.com/peplink-community/peplink-agent/internal/domains/web"
)

var (
	routerService     *router.Service
	routerServiceOnce sync.Once
)

func (k *Kernel) InjectRouterService() *router.Service {
	routerServiceOnce.Do(func() {
		routerService = router.NewService(router.Config{
			Host:      k.env.Agent.RouterHost,
			Username:  k.env.Agent.Username,
			Password:  k.env.Agent.Password,
			VerifySSL: k.env.Agent.VerifySSL,
		})
	})

	return routerService
}

var (
	registryService     *registry.Service
	registryServiceOnce sync.Once
)

func (k *Kernel) InjectRegistryService() *registry.Service {
	registryServiceOnce.Do(func() {
		registryService = registry.NewService(k.DB)
	})

	return registryService
}

var (
	pollerService     *poller.Service
	pollerServiceOnce sync.Once
)

func (k *Kernel) InjectPollerService() *poller.Service {
	pollerServiceOnce.Do(func() {
		pollerService = poller.NewService(
			k.env.Agent.RouterHost,
			k.env.Agent.PollInterval,
			k.InjectRouterService(),
			k.InjectRegistryService(),
		)
	})

	return pollerService
}

var (
	metricsRegistry     *prometheus.Registry
	metricsRegistryOnce sync.Once
)

func (k *Kernel) InjectMetricsRegistry() *prometheus.Registry {
	metricsRegistryOnce.Do(func() {
		metricsRegistry = prometheus.NewRegistry()
		metricsRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			metrics.NewCollector(k.env.Agent.RouterHost, k.InjectPollerService()),
		)
	})

	return metricsRegistry
}

var (
	reportService     *report.Service
	reportServiceOnce sync.Once
)

func (k *Kernel) InjectReportService() *report.Service {
	reportServiceOnce.Do(func() {
		reportService = report.NewService(
			k.env.Agent.RouterHost,
			k.InjectPollerService(),
		)
	})

	return reportService
}

var (
	webService     *web.Service
	webServiceOnce sync.Once
)

func (k *Kernel) InjectWebService() *web.Service {
	webServiceOnce.Do(func() {
		webService = web.NewService(
			k.env.Agent.ListenAddr,
			k.InjectMetricsRegistry(),
			k.InjectReportService(),
		)
	})

	return webService
}
