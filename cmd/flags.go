package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/conneroisu/docview/internal/tree"
)

// groupingValue is a pflag.Value accepting tree grouping names.
type groupingValue struct {
	strategy tree.Strategy
}

func newGroupingValue(def tree.Strategy) *groupingValue {
	return &groupingValue{strategy: def}
}

func (g *groupingValue) String() string {
	return g.strategy.String()
}

func (g *groupingValue) Set(s string) error {
	strategy, err := tree.ParseStrategy(s)
	if err != nil {
		return err
	}
	g.strategy = strategy
	return nil
}

func (g *groupingValue) Type() string {
	return "grouping"
}

// outputValue is a pflag.Value restricted to a fixed set of formats.
type outputValue struct {
	format  string
	allowed []string
}

func newOutputValue(def string, allowed ...string) *outputValue {
	return &outputValue{format: def, allowed: allowed}
}

func (o *outputValue) String() string {
	return o.format
}

func (o *outputValue) Set(s string) error {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, a := range o.allowed {
		if s == a {
			o.format = s
			return nil
		}
	}
	return fmt.Errorf("unsupported output format %q (supported: %s)", s, strings.Join(o.allowed, ", "))
}

func (o *outputValue) Type() string {
	return "format"
}

var (
	_ pflag.Value = (*groupingValue)(nil)
	_ pflag.Value = (*outputValue)(nil)
)
