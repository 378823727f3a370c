// Package view renders the browser page of one session on the server. A Page
// implements navigation.View: it keeps a model of what the tab shows and
// pushes every change to the tab as an UpdateMessage.
package view

import "time"

// Update types pushed to the tab.
const (
	UpdateLoading   = "loading"
	UpdateTitle     = "title"
	UpdateIndex     = "index"
	UpdateClass     = "class"
	UpdateNotFound  = "notFound"
	UpdateScroll    = "scroll"
	UpdateAnchor    = "scrollToMember"
	UpdateExpand    = "expand"
	UpdateExpandAll = "expandAll"
	UpdateFilter    = "filter"
	UpdateTree      = "tree"
	UpdateSelect    = "select"
	UpdateOpen      = "open"
	UpdateSettings  = "settings"
	// UpdateNotice is broadcast to every tab.
	UpdateNotice = "notice"
)

// UpdateMessage represents a message sent to the browser
type UpdateMessage struct {
	Type      string    `json:"type"`
	Target    string    `json:"target,omitempty"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers updates to the tab.
type Publisher interface {
	Publish(msg UpdateMessage)
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(msg UpdateMessage)

// Publish calls f(msg)
func (f PublisherFunc) Publish(msg UpdateMessage) {
	f(msg)
}
