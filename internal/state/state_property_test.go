//go:build property

package state

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestExpansionProperties validates the record algebra of Expansion.
func TestExpansionProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1357)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	seed := func(ids []string) *Expansion {
		e := NewExpansion()
		for _, id := range ids {
			e.SetExpanded("Ext.Panel", id, true)
		}
		return e
	}

	properties.Property("expanding twice equals expanding once", prop.ForAll(
		func(existing []string, id string) bool {
			once := seed(existing)
			once.SetExpanded("Ext.Panel", id, true)

			twice := seed(existing)
			twice.SetExpanded("Ext.Panel", id, true)
			twice.SetExpanded("Ext.Panel", id, true)

			return reflect.DeepEqual(once.records, twice.records)
		},
		gen.SliceOf(gen.Identifier()),
		gen.Identifier(),
	))

	properties.Property("expand then collapse restores the record", prop.ForAll(
		func(existing []string, id string) bool {
			for _, e := range existing {
				if e == id {
					return true
				}
			}
			before := seed(existing)
			after := seed(existing)
			after.SetExpanded("Ext.Panel", id, true)
			after.SetExpanded("Ext.Panel", id, false)

			return reflect.DeepEqual(before.records, after.records)
		},
		gen.SliceOf(gen.Identifier()),
		gen.Identifier(),
	))

	properties.Property("restore consumes what capture stored", prop.ForAll(
		func(offset int) bool {
			s := NewScroll()
			s.Capture("k", &fakeViewport{offset: offset})
			v := &fakeViewport{}
			return s.Restore("k", v) && v.offset == offset && !s.Restore("k", v)
		},
		gen.IntRange(0, 1<<20),
	))

	properties.TestingRun(t)
}
