package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/gfycat/feedcore/internal/api"
	"github.com/gfycat/feedcore/internal/config"
	"github.com/gfycat/feedcore/internal/feedmanager"
	"github.com/gfycat/feedcore/internal/logger"
	"github.com/gfycat/feedcore/internal/metrics"
	"github.com/gfycat/feedcore/internal/sse"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	metricsHandle := do.MustInvoke[*MetricsHandle](i)
	manager := do.MustInvoke[*feedmanager.Manager](i)

	sseHandler := sse.NewHandler(sseHandle.Manager, log.Logger)
	handler := api.NewServer(storeHandle.Store, manager, sseHandler, metrics.Handler(metricsHandle.Registry), log.Logger)

	// No WriteTimeout: SSE streams stay open indefinitely and manage
	// their own per-write deadlines.
	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     handler,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
