package settings

import (
	"encoding/json"
	"strconv"

	"github.com/conneroisu/docview/internal/members"
	"github.com/conneroisu/docview/internal/tree"
)

// Setting keys
const (
	KeyGrouping    = "classTreeLogic"
	KeyShowPrivate = "showPrivateClasses"
	KeyShow        = "show"
)

// Defaults apply to keys the store does not hold
type Defaults struct {
	Grouping    tree.Strategy
	ShowPrivate bool
	Show        members.ShowFlags
}

// Preferences reads and writes the typed preferences of the browser.
// Unparseable stored values fall back to the defaults.
type Preferences struct {
	store    Store
	defaults Defaults
}

// NewPreferences wraps store
func NewPreferences(store Store, defaults Defaults) *Preferences {
	return &Preferences{store: store, defaults: defaults}
}

// Grouping returns the tree strategy
func (p *Preferences) Grouping() tree.Strategy {
	v, ok := p.store.Get(KeyGrouping)
	if !ok {
		return p.defaults.Grouping
	}
	strategy, err := tree.ParseStrategy(v)
	if err != nil {
		return p.defaults.Grouping
	}
	return strategy
}

// SetGrouping persists the tree strategy
func (p *Preferences) SetGrouping(strategy tree.Strategy) error {
	return p.store.Set(KeyGrouping, strategy.String())
}

// ShowPrivate returns whether private classes are listed
func (p *Preferences) ShowPrivate() bool {
	v, ok := p.store.Get(KeyShowPrivate)
	if !ok {
		return p.defaults.ShowPrivate
	}
	show, err := strconv.ParseBool(v)
	if err != nil {
		return p.defaults.ShowPrivate
	}
	return show
}

// SetShowPrivate persists private class visibility
func (p *Preferences) SetShowPrivate(show bool) error {
	return p.store.Set(KeyShowPrivate, strconv.FormatBool(show))
}

// Show returns the member show flags
func (p *Preferences) Show() members.ShowFlags {
	v, ok := p.store.Get(KeyShow)
	if !ok {
		return p.defaults.Show
	}
	var show members.ShowFlags
	if err := json.Unmarshal([]byte(v), &show); err != nil {
		return p.defaults.Show
	}
	return show
}

// SetShow persists the member show flags
func (p *Preferences) SetShow(show members.ShowFlags) error {
	data, err := json.Marshal(show)
	if err != nil {
		return err
	}
	return p.store.Set(KeyShow, string(data))
}
