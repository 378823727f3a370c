package watcher

import (
	"context"
	"time"

	"github.com/conneroisu/docview/internal/logging"
	"github.com/conneroisu/docview/internal/types"
)

// IndexSource fetches the class index
type IndexSource interface {
	FetchIndex(ctx context.Context) (*types.ClassIndex, error)
}

// IndexSink receives a reloaded index
type IndexSink interface {
	Load(index *types.ClassIndex)
}

// IndexReloader re-reads the class index after its files change.
type IndexReloader struct {
	source  IndexSource
	sink    IndexSink
	timeout time.Duration
	logger  logging.Logger
}

// NewIndexReloader creates a reloader feeding sink from source
func NewIndexReloader(source IndexSource, sink IndexSink, logger logging.Logger) *IndexReloader {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &IndexReloader{
		source:  source,
		sink:    sink,
		timeout: 30 * time.Second,
		logger:  logger.WithComponent("reload"),
	}
}

// Handle is a Handler. Deletions alone do not trigger a reload: the
// generator removes the index before writing the new one.
func (r *IndexReloader) Handle(changes []Change) error {
	reload := false
	for _, c := range changes {
		if c.Op != OpRemove {
			reload = true
			break
		}
	}
	if !reload {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	index, err := r.source.FetchIndex(ctx)
	if err != nil {
		return err
	}
	r.sink.Load(index)
	r.logger.Info(ctx, "Class index reloaded", "classes", len(index.Classes), "changes", len(changes))
	return nil
}
