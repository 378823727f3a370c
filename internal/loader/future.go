package loader

import (
	"context"
	"sync"

	"github.com/conneroisu/docview/internal/types"
)

// Future is the single outstanding load of one class. Every caller that
// asks for the class while the fetch is running receives the same Future.
type Future struct {
	class string
	done  chan struct{}

	mutex     sync.Mutex
	resolved  bool
	doc       *types.ClassDocument
	err       error
	callbacks []func(*types.ClassDocument, error)
}

func newFuture(class string) *Future {
	return &Future{
		class: class,
		done:  make(chan struct{}),
	}
}

// Class returns the canonical class name the future loads.
func (f *Future) Class() string {
	return f.class
}

// Done is closed once the future resolves.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Resolved reports whether the outcome is available.
func (f *Future) Resolved() bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.resolved
}

// Result returns the outcome. Before resolution it returns (nil, nil).
func (f *Future) Result() (*types.ClassDocument, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.doc, f.err
}

// Wait blocks until the future resolves or ctx is done. Cancelling ctx
// abandons the wait only; the fetch itself keeps running.
func (f *Future) Wait(ctx context.Context) (*types.ClassDocument, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// OnComplete registers fn to run with the outcome. Continuations registered
// before resolution run in registration order on the resolving goroutine;
// after resolution fn runs immediately on the caller's goroutine.
func (f *Future) OnComplete(fn func(*types.ClassDocument, error)) {
	f.mutex.Lock()
	if !f.resolved {
		f.callbacks = append(f.callbacks, fn)
		f.mutex.Unlock()
		return
	}
	doc, err := f.doc, f.err
	f.mutex.Unlock()

	fn(doc, err)
}

// resolve stores the outcome exactly once and runs pending continuations.
func (f *Future) resolve(doc *types.ClassDocument, err error) {
	for _, fn := range f.settle(doc, err) {
		fn(doc, err)
	}
}

// settle records the outcome and returns the continuations still to run.
func (f *Future) settle(doc *types.ClassDocument, err error) []func(*types.ClassDocument, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.resolved {
		return nil
	}
	f.resolved = true
	f.doc = doc
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	return callbacks
}
