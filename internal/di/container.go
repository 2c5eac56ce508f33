// Package di provides dependency injection configuration for the feed cache daemon.
package di

import (
	"github.com/samber/do/v2"

	"github.com/gfycat/feedcore/internal/config"
	"github.com/gfycat/feedcore/internal/di/providers"
	"github.com/gfycat/feedcore/internal/feedbus"
	"github.com/gfycat/feedcore/internal/feedmanager"
	"github.com/gfycat/feedcore/internal/logger"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)

	// Cache layer
	do.Provide(injector, providers.ProvideFeedBus)
	do.Provide(injector, providers.ProvideMetrics)
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideSSEBridge)
	do.Provide(injector, providers.ProvideStore)

	// Upstream and manager
	do.Provide(injector, providers.ProvideFetcher)
	do.Provide(injector, providers.ProvideFeedManager)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*feedbus.Bus](injector)
	_ = do.MustInvoke[*providers.MetricsHandle](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.BridgeHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[feedmanager.Fetcher](injector)
	_ = do.MustInvoke[*feedmanager.Manager](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
