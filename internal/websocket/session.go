package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/conneroisu/docview/internal/logging"
	"github.com/conneroisu/docview/internal/navigation"
	"github.com/conneroisu/docview/internal/view"
)

// Session is one connected tab: a page and the controller driving it.
type Session struct {
	ID     string
	ctrl   *navigation.Controller
	page   *view.Page
	cancel context.CancelFunc
	done   chan struct{}
	logger logging.Logger
}

// Controller returns the session's navigation controller
func (s *Session) Controller() *navigation.Controller {
	return s.ctrl
}

// Page returns the session's page model
func (s *Session) Page() *view.Page {
	return s.page
}

// newSession builds and starts the controller of a new tab. Updates are
// queued on client.send.
func (h *Hub) newSession(client *Client) (*Session, error) {
	id := uuid.NewString()
	logger := h.logger.With("session", id)

	page := view.NewPage(view.PublisherFunc(func(msg view.UpdateMessage) {
		h.sendTo(client, msg)
	}), h.pageOptions(logger))

	events := navigation.NewEmitter(id)
	ctrl, err := navigation.NewController(navigation.Config{
		Catalog:     h.catalog,
		Loader:      h.loader,
		View:        page,
		Preferences: h.prefs,
		Events:      events,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(h.ctx)
	session := &Session{
		ID:     id,
		ctrl:   ctrl,
		page:   page,
		cancel: cancel,
		done:   make(chan struct{}),
		logger: logger,
	}

	if h.tracker != nil {
		h.tracker.Consume(ctx, events.Subscribe(64))
	}
	forward := events.Subscribe(64)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-forward:
				if !ok {
					return
				}
				body, err := json.Marshal(event)
				if err != nil {
					continue
				}
				h.sendTo(client, view.UpdateMessage{
					Type:      "event",
					Target:    string(event.Type),
					Content:   string(body),
					Timestamp: event.Timestamp,
				})
			}
		}
	}()

	go func() {
		defer close(session.done)
		defer events.Close()
		if err := ctrl.Run(ctx); err != nil && err != context.Canceled {
			logger.Warn(ctx, err, "Session controller stopped")
		}
	}()

	return session, nil
}

func (h *Hub) pageOptions(logger logging.Logger) view.Options {
	opts := h.page
	opts.Logger = logger
	if opts.Icons == nil {
		opts.Icons = h.catalog
	}
	return opts
}

// close stops the controller and waits for it to return.
func (s *Session) close(timeout time.Duration) {
	s.cancel()
	select {
	case <-s.done:
	case <-time.After(timeout):
		s.logger.Warn(context.Background(), nil, "Session controller did not stop in time")
	}
}
