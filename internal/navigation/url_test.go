package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/docview/internal/errors"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   Target
		errors bool
	}{
		{name: "index", raw: "#!/class", want: Target{Index: true}},
		{name: "index trailing slash", raw: "#!/class/", want: Target{Index: true}},
		{name: "class", raw: "#!/class/Ext.Panel", want: Target{Class: "Ext.Panel"}},
		{name: "member", raw: "#!/class/Ext.Panel-method-show", want: Target{Class: "Ext.Panel", Member: "method-show"}},
		{name: "legacy hash", raw: "#/class/Ext.Panel", want: Target{Class: "Ext.Panel"}},
		{name: "absolute link", raw: "http://docs.local/api/#!/class/Ext.Base-cfg-id", want: Target{Class: "Ext.Base", Member: "cfg-id"}},
		{name: "escaped", raw: "#!/class/Ext.Panel-event-before%20show", want: Target{Class: "Ext.Panel", Member: "event-before show"}},
		{name: "not a class URL", raw: "#!/guide/intro", errors: true},
		{name: "empty class", raw: "#!/class/-method-show", errors: true},
		{name: "empty", raw: "", errors: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseURL(tt.raw)
			if tt.errors {
				require.Error(t, err)
				assert.True(t, errors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanURL(t *testing.T) {
	assert.Equal(t, "#!/class/Ext.Panel", CleanURL("  #/class/Ext.Panel "))
	assert.Equal(t, "#!/class/Ext.Panel", CleanURL("index.html#!/class/Ext.Panel"))
	assert.Equal(t, "#!/class/A B", CleanURL("#!/class/A%20B"))
	// Broken escapes are left alone.
	assert.Equal(t, "#!/class/A%zz", CleanURL("#!/class/A%zz"))
}

func TestIsClassURL(t *testing.T) {
	assert.True(t, IsClassURL("#!/class"))
	assert.True(t, IsClassURL("#/class/Ext.Panel"))
	assert.True(t, IsClassURL("page.html#!/class/Ext.Panel-cfg-id"))
	assert.False(t, IsClassURL("#!/classes"))
	assert.False(t, IsClassURL("#!/guide/intro"))
	assert.False(t, IsClassURL("http://example.com/"))
}

func TestTarget_StringAndScrollKey(t *testing.T) {
	index := Target{Index: true}
	assert.Equal(t, IndexURL, index.String())
	assert.Equal(t, IndexURL, index.ScrollKey())

	anchored := Target{Class: "Ext.Panel", Member: "method-show"}
	assert.Equal(t, "#!/class/Ext.Panel-method-show", anchored.String())
	assert.Equal(t, "#!/class/Ext.Panel", anchored.ScrollKey())
	assert.Equal(t, Target{Class: "Ext.Panel"}.ScrollKey(), anchored.ScrollKey())

	parsed, err := ParseURL(anchored.String())
	require.NoError(t, err)
	assert.Equal(t, anchored, parsed)
}
