package providers

import (
	"context"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do/v2"

	"github.com/gfycat/feedcore/internal/config"
	"github.com/gfycat/feedcore/internal/feedbus"
	"github.com/gfycat/feedcore/internal/logger"
	"github.com/gfycat/feedcore/internal/metrics"
	"github.com/gfycat/feedcore/internal/report"
	"github.com/gfycat/feedcore/internal/sse"
	"github.com/gfycat/feedcore/internal/store"
	"github.com/gfycat/feedcore/internal/store/sqlite"
)

// ProvideFeedBus provides the in-process change notification bus.
func ProvideFeedBus(i do.Injector) (*feedbus.Bus, error) {
	return feedbus.New(), nil
}

// MetricsHandle bundles the collector with its registry so the HTTP
// layer can serve /metrics from the same set of counters.
type MetricsHandle struct {
	Collector *metrics.Collector
	Registry  *prometheus.Registry
}

// ProvideMetrics provides the Prometheus collector.
func ProvideMetrics(i do.Injector) (*MetricsHandle, error) {
	registry := prometheus.NewRegistry()
	return &MetricsHandle{
		Collector: metrics.NewCollector(registry),
		Registry:  registry,
	}, nil
}

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// BridgeHandle wraps the cache-to-SSE bridge with Shutdownable.
type BridgeHandle struct {
	*sse.Bridge
}

// Shutdown implements do.Shutdownable.
func (h *BridgeHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideSSEBridge provides the bridge turning cache writes into SSE events.
func ProvideSSEBridge(i do.Injector) (*BridgeHandle, error) {
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	return &BridgeHandle{Bridge: sse.NewBridge(sseHandle.Manager)}, nil
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the feed cache store with its notifier fanout,
// metrics recorder, and invariant sink attached.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	bus := do.MustInvoke[*feedbus.Bus](i)
	bridge := do.MustInvoke[*BridgeHandle](i)
	metricsHandle := do.MustInvoke[*MetricsHandle](i)

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sqlite.Open(cfg.Database.Path, log.Logger)
	if err != nil {
		return nil, err
	}

	db.SetStaleAfter(cfg.Cache.StaleAfter)
	db.SetNotifier(store.MultiNotifier(bus, bridge.Bridge))
	db.SetRecorder(metricsHandle.Collector)
	db.SetReportSink(report.NewLogSink(log.Logger))

	log.Info("Cache database initialized", "path", cfg.Database.Path)

	return &StoreHandle{Store: db}, nil
}
