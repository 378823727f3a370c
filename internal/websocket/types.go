package websocket

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/docview/internal/errors"
	"github.com/conneroisu/docview/internal/members"
	"github.com/conneroisu/docview/internal/navigation"
	"github.com/conneroisu/docview/internal/tree"
)

// Client represents a WebSocket client connection
type Client struct {
	conn         *websocket.Conn
	send         chan []byte
	closed       chan struct{}
	session      *Session
	ip           string
	lastActivity time.Time
	rateLimiter  RateLimiter
}

// RateLimiter interface for WebSocket rate limiting
type RateLimiter interface {
	Allow() bool
	Reset()
}

// Message types sent by the tab.
const (
	MessageNavigate    = "navigate"
	MessageIndex       = "index"
	MessageToggle      = "toggle"
	MessageExpandAll   = "expandAll"
	MessageFilter      = "filter"
	MessageGrouping    = "grouping"
	MessageShowPrivate = "showPrivate"
	MessageCloseTab    = "closeTab"
	MessageScroll      = "scroll"
	// MessageSync asks for the full page state. It is answered by the hub
	// and never reaches the controller.
	MessageSync = "sync"
)

// ClientMessage is a JSON message received from the tab.
type ClientMessage struct {
	Type      string             `json:"type"`
	URL       string             `json:"url,omitempty"`
	NewWindow bool               `json:"newWindow,omitempty"`
	Member    string             `json:"member,omitempty"`
	Expanded  bool               `json:"expanded,omitempty"`
	Text      string             `json:"text,omitempty"`
	Show      *members.ShowFlags `json:"show,omitempty"`
	Grouping  string             `json:"grouping,omitempty"`
	Enabled   bool               `json:"enabled,omitempty"`
	Offset    int                `json:"offset,omitempty"`
}

// DecodeMessage parses a raw client message.
func DecodeMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, errors.NewValidationError(errors.ErrCodeInvalidIntent,
			fmt.Sprintf("malformed message: %v", err))
	}
	msg.Type = strings.TrimSpace(msg.Type)
	return msg, nil
}

// Intent converts the message into a navigation intent.
func (m ClientMessage) Intent() (navigation.Intent, error) {
	switch m.Type {
	case MessageNavigate:
		return navigation.NavigateTo{URL: m.URL, NewWindow: m.NewWindow}, nil
	case MessageIndex:
		return navigation.ShowIndex{}, nil
	case MessageToggle:
		if m.Member == "" {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidIntent, "toggle needs a member")
		}
		return navigation.ToggleExpand{MemberID: m.Member}, nil
	case MessageExpandAll:
		return navigation.ExpandAll{Expanded: m.Expanded}, nil
	case MessageFilter:
		if m.Show == nil {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidIntent, "filter needs show flags")
		}
		return navigation.ChangeFilter{Text: m.Text, Show: *m.Show}, nil
	case MessageGrouping:
		strategy, err := tree.ParseStrategy(m.Grouping)
		if err != nil {
			return nil, err
		}
		return navigation.SetGrouping{Strategy: strategy}, nil
	case MessageShowPrivate:
		return navigation.SetShowPrivate{Show: m.Enabled}, nil
	case MessageCloseTab:
		return navigation.CloseTab{URL: m.URL}, nil
	case MessageScroll:
		return navigation.ReportScroll{Offset: m.Offset}, nil
	default:
		return nil, errors.NewValidationError(errors.ErrCodeInvalidIntent,
			fmt.Sprintf("unknown message type %q", m.Type))
	}
}
