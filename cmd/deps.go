package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/conneroisu/docview/internal/config"
	"github.com/conneroisu/docview/internal/loader"
	"github.com/conneroisu/docview/internal/logging"
	"github.com/conneroisu/docview/internal/registry"
)

// docs is the documentation set every command works on.
type docs struct {
	cfg     *config.Config
	logger  logging.Logger
	source  loader.Source
	dir     *loader.DirSource
	catalog *registry.ClassRegistry
	loader  *loader.Loader
}

// openDocs loads the configuration, opens the source and reads the index.
// ctx bounds the background fetches of the returned loader.
func openDocs(ctx context.Context) (*docs, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(cfg.LoggerConfig())

	d := &docs{cfg: cfg, logger: logger}
	if cfg.Source.Dir != "" {
		dir, err := loader.NewDirSource(cfg.Source.Dir, cfg.Format(), cfg.Source.Index)
		if err != nil {
			return nil, err
		}
		d.dir = dir
		d.source = dir
	} else {
		src, err := loader.NewHTTPSource(cfg.Source.BaseURL, cfg.Format(), cfg.Source.Index,
			&http.Client{Timeout: cfg.Source.Timeout})
		if err != nil {
			return nil, err
		}
		d.source = src
	}

	indexCtx, cancel := context.WithTimeout(ctx, cfg.Source.Timeout)
	defer cancel()
	index, err := d.source.FetchIndex(indexCtx)
	if err != nil {
		return nil, fmt.Errorf("reading class index: %w", err)
	}
	d.catalog = registry.NewFromIndex(index)

	d.loader = loader.New(d.source,
		loader.WithRetryPolicy(cfg.RetryPolicy()),
		loader.WithTimeout(cfg.Source.Timeout),
		loader.WithLogger(logger),
		loader.WithContext(ctx),
	)

	logger.Debug(ctx, "Class index loaded", "classes", d.catalog.Count())
	return d, nil
}
