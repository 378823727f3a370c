// Package loader fetches class documents and caches them with
// at-most-one-fetch-in-flight semantics.
//
// Every Load for a class that is already being fetched returns the same
// Future, so a class is fetched once no matter how many callers overlap.
// Successful documents stay cached for the process lifetime. Failures are
// recorded too; whether a later Load re-attempts is the RetryPolicy.
package loader

import (
	"context"
	"time"

	"github.com/conneroisu/docview/internal/errors"
	"github.com/conneroisu/docview/internal/logging"
	"github.com/conneroisu/docview/internal/types"
)

// Source retrieves documents by canonical class name.
type Source interface {
	FetchClass(ctx context.Context, name string) (*types.ClassDocument, error)
	FetchIndex(ctx context.Context) (*types.ClassIndex, error)
}

// RetryPolicy decides what a Load does for a class whose fetch failed.
type RetryPolicy int

const (
	// RetryOnRevisit keeps the failure sentinel for Get but lets the next
	// Load issue a new fetch. Nothing is retried automatically.
	RetryOnRevisit RetryPolicy = iota
	// NegativeCacheForever answers every later Load with the recorded failure.
	NegativeCacheForever
)

// String returns the string representation of the policy
func (p RetryPolicy) String() string {
	switch p {
	case RetryOnRevisit:
		return "retry-on-revisit"
	case NegativeCacheForever:
		return "negative-cache-forever"
	default:
		return "unknown"
	}
}

// Loader performs asynchronous class fetches through a shared Cache.
type Loader struct {
	source  Source
	cache   *Cache
	policy  RetryPolicy
	timeout time.Duration
	logger  logging.Logger
	ctx     context.Context
}

// Option configures a Loader
type Option func(*Loader)

// WithCache shares an existing cache
func WithCache(cache *Cache) Option {
	return func(l *Loader) { l.cache = cache }
}

// WithRetryPolicy sets the failure policy
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(l *Loader) { l.policy = policy }
}

// WithTimeout bounds each fetch. Zero means no bound beyond the source's own.
func WithTimeout(timeout time.Duration) Option {
	return func(l *Loader) { l.timeout = timeout }
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(l *Loader) { l.logger = logger.WithComponent("loader") }
}

// WithContext sets the lifetime context for fetches. Fetches are not tied
// to any caller's context.
func WithContext(ctx context.Context) Option {
	return func(l *Loader) { l.ctx = ctx }
}

// New creates a loader reading from source
func New(source Source, opts ...Option) *Loader {
	l := &Loader{
		source: source,
		cache:  NewCache(),
		policy: RetryOnRevisit,
		logger: logging.NewDiscardLogger(),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Get returns the cache entry for name without blocking.
func (l *Loader) Get(name string) Entry {
	return l.cache.Get(name)
}

// Stats returns cache counters
func (l *Loader) Stats() Stats {
	return l.cache.Stats()
}

// Policy returns the configured retry policy
func (l *Loader) Policy() RetryPolicy {
	return l.policy
}

// Load returns the future for name. A cached document yields an already
// resolved future and no fetch; an in-flight fetch is shared; otherwise a
// new fetch starts in the background. Failures resolve with a NotFound
// error whose cause is the source error.
func (l *Loader) Load(name string) *Future {
	future, start := l.cache.acquire(name, l.policy == RetryOnRevisit)
	if start {
		l.logger.Debug(l.ctx, "Fetching class", "class", name)
		go l.fetch(future)
	}
	return future
}

// LoadSync is Load followed by Wait.
func (l *Loader) LoadSync(ctx context.Context, name string) (*types.ClassDocument, error) {
	return l.Load(name).Wait(ctx)
}

func (l *Loader) fetch(f *Future) {
	ctx := l.ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	started := time.Now()
	doc, err := l.source.FetchClass(ctx, f.class)
	if err == nil && doc == nil {
		err = errors.NewInternalError(errors.ErrCodeInternalError, "source returned no document", nil)
	}
	if err != nil {
		if !errors.IsNotFound(err) {
			err = errors.NewNotFoundError(f.class, err)
		}
		l.logger.Warn(l.ctx, err, "Class fetch failed",
			"class", f.class,
			"policy", l.policy.String(),
		)
		l.cache.complete(f, nil, err)
		return
	}

	l.logger.Debug(l.ctx, "Class fetched",
		"class", f.class,
		"members", len(doc.Members),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	l.cache.complete(f, doc, nil)
}
