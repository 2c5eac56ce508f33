package providers

import (
	"github.com/samber/do/v2"

	"github.com/gfycat/feedcore/internal/config"
	"github.com/gfycat/feedcore/internal/feedmanager"
	"github.com/gfycat/feedcore/internal/logger"
	"github.com/gfycat/feedcore/internal/upstream"
)

// ProvideFetcher provides the upstream feed API client. Without a
// configured base URL the daemon runs cache-only.
func ProvideFetcher(i do.Injector) (feedmanager.Fetcher, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Upstream.BaseURL == "" {
		log.Warn("No upstream configured, running cache-only")
		return upstream.Disabled{}, nil
	}

	return upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, log.Logger), nil
}

// ProvideFeedManager provides the read-through feed manager.
func ProvideFeedManager(i do.Injector) (*feedmanager.Manager, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	fetcher := do.MustInvoke[feedmanager.Fetcher](i)

	manager := feedmanager.New(storeHandle.Store, fetcher, log.Logger)
	manager.SetStaleAfter(cfg.Cache.StaleAfter)
	manager.SetRecentLimit(cfg.Cache.RecentLimit)
	manager.SetFetchCount(cfg.Cache.FetchCount)

	return manager, nil
}
