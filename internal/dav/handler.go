// Package dav implements the CalDAV/CardDAV method handlers: PROPFIND,
// REPORT, GET, PUT, DELETE and OPTIONS over the portal's calendar and
// contact store.
package dav

import (
	"github.com/pkondrat/portaldav/internal/cache"
	"github.com/pkondrat/portaldav/internal/config"
	"github.com/pkondrat/portaldav/internal/storage"

	"github.com/rs/zerolog"
)

type Handlers struct {
	cfg      *config.Config
	store    storage.Store
	logger   zerolog.Logger
	basePath string
	ctags    *cache.Cache[string, string]
}

func NewHandlers(cfg *config.Config, store storage.Store, logger zerolog.Logger) *Handlers {
	return &Handlers{
		cfg:      cfg,
		store:    store,
		logger:   logger,
		basePath: cfg.HTTP.BasePath,
		ctags:    cache.New[string, string](cfg.CTagCacheTTL),
	}
}
