package members

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/docview/internal/types"
)

func names(members []types.Member) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.Name
	}
	return out
}

func TestFilter_BindDestroy(t *testing.T) {
	members := []types.Member{
		{Name: "bind"},
		{Name: "destroy", Meta: types.Meta{Private: true}},
	}
	show := ShowFlags{Public: true, Private: false, Deprecated: true, Internal: true}

	assert.Equal(t, []string{"bind"}, names(Filter(members, "", show)))
}

func TestFilter_Flags(t *testing.T) {
	members := []types.Member{
		{ID: "method-bind", Name: "bind"},
		{ID: "method-destroy", Name: "destroy", Meta: types.Meta{Private: true}},
		{ID: "method-old", Name: "old", Meta: types.Meta{Deprecated: true}},
		{ID: "method-guts", Name: "guts", Meta: types.Meta{Internal: true}},
		{ID: "method-secret", Name: "secret", Meta: types.Meta{Private: true, Internal: true}},
	}

	tests := []struct {
		name     string
		text     string
		show     ShowFlags
		expected []string
	}{
		{"defaults", "", DefaultShowFlags(), []string{"bind", "old"}},
		{"everything", "", ShowFlags{true, true, true, true}, []string{"bind", "destroy", "old", "guts", "secret"}},
		{"nothing", "", ShowFlags{}, []string{}},
		{"private only", "", ShowFlags{Private: true}, []string{"destroy"}},
		{"private needs internal too", "", ShowFlags{Private: true, Internal: true}, []string{"destroy", "secret"}},
		{"no deprecated", "", ShowFlags{Public: true}, []string{"bind"}},
		{"text is case insensitive", "BI", DefaultShowFlags(), []string{"bind"}},
		{"text substring", "o", ShowFlags{true, true, true, true}, []string{"destroy", "old"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, names(Filter(members, tt.text, tt.show)))
		})
	}
}

func TestEngine(t *testing.T) {
	members := []types.Member{
		{ID: "method-bind", Name: "bind"},
		{ID: "method-destroy", Name: "destroy", Meta: types.Meta{Private: true}},
	}
	e := NewEngine(DefaultShowFlags())
	assert.False(t, e.Searching())
	assert.Equal(t, []string{"bind"}, names(e.Apply(members)))
	assert.Equal(t, []string{"method-destroy"}, e.Hidden(members))

	e.Set("  dest ", ShowFlags{Public: true, Private: true})
	assert.True(t, e.Searching())
	assert.Equal(t, "dest", e.Text())
	assert.Equal(t, []string{"destroy"}, names(e.Apply(members)))
	assert.True(t, e.Show().Private)
}

func panel() *types.ClassDocument {
	return &types.ClassDocument{
		Name: "Ext.Panel",
		Members: []types.Member{
			{ID: "method-show", Tagname: "method", Name: "show", Owner: "Ext.Panel"},
			{ID: "cfg-title", Tagname: "cfg", Name: "title", Owner: "Ext.Panel"},
			{ID: "method-destroy", Tagname: "method", Name: "destroy", Owner: "Ext.Base", Meta: types.Meta{Private: true}},
			{ID: "method-constructor", Tagname: "method", Name: "constructor", Owner: "Ext.Panel"},
			{ID: "css_var-color", Tagname: "css_var", Name: "$color", Owner: "Ext.Panel"},
		},
	}
}

func TestGroups(t *testing.T) {
	memberTypes := []types.MemberType{
		{Name: "cfg", Title: "Config options", ToolbarTitle: "Configs"},
		{Name: "property", Title: "Properties"},
		{Name: "method", Title: "Methods"},
		{Name: "css_var"},
	}

	groups := Groups(panel(), memberTypes)
	require.Len(t, groups, 3, "types without members get no group")

	assert.Equal(t, "Configs", groups[0].Title)
	assert.Equal(t, "Methods", groups[1].Title)
	assert.Equal(t, "Css Var", groups[2].Title)

	methods := groups[1].Links
	labels := make([]string, len(methods))
	for i, l := range methods {
		labels[i] = l.Label
	}
	assert.Equal(t, []string{"constructor", "destroy", "show"}, labels)

	destroy := methods[1]
	assert.Equal(t, "Ext.Panel-method-destroy", destroy.URL)
	assert.True(t, destroy.Inherited)
	assert.False(t, methods[2].Inherited)
}

func TestGroups_WithoutMemberTypes(t *testing.T) {
	groups := Groups(panel(), nil)
	require.Len(t, groups, 3)
	assert.Equal(t, []string{"method", "cfg", "css_var"},
		[]string{groups[0].Type, groups[1].Type, groups[2].Type})
	assert.Nil(t, Groups(nil, nil))
}

func TestFilterGroups(t *testing.T) {
	groups := Groups(panel(), nil)
	filtered := FilterGroups(groups, "", DefaultShowFlags())

	require.Len(t, filtered, len(groups))
	assert.Len(t, filtered[0].Links, 2, "private destroy is hidden")
	assert.Len(t, groups[0].Links, 3, "input groups are untouched")

	searched := FilterGroups(groups, "TIT", DefaultShowFlags())
	assert.Empty(t, searched[0].Links)
	assert.Len(t, searched[1].Links, 1)
}
