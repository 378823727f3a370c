package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/docview/internal/analytics"
	"github.com/conneroisu/docview/internal/loader"
	"github.com/conneroisu/docview/internal/members"
	"github.com/conneroisu/docview/internal/registry"
	"github.com/conneroisu/docview/internal/settings"
	"github.com/conneroisu/docview/internal/tree"
	"github.com/conneroisu/docview/internal/types"
	docws "github.com/conneroisu/docview/internal/websocket"
)

type mapSource map[string]*types.ClassDocument

func (m mapSource) FetchClass(ctx context.Context, name string) (*types.ClassDocument, error) {
	doc, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("no document for %s", name)
	}
	return doc, nil
}

func (m mapSource) FetchIndex(ctx context.Context) (*types.ClassIndex, error) {
	return nil, fmt.Errorf("no index")
}

type fixture struct {
	server  *Server
	catalog *registry.ClassRegistry
	hub     *docws.Hub
	tracker *analytics.Tracker
}

func newFixture(t *testing.T, withHub bool) *fixture {
	t.Helper()

	catalog := registry.NewFromIndex(&types.ClassIndex{
		Classes: []types.ClassSummary{
			{Name: "Ext.Base"},
			{Name: "Ext.Panel", Extends: "Ext.Base", AlternateNames: []string{"Ext.OldPanel"}},
			{Name: "Ext.util.Secret", Extends: "Ext.Base", Private: true},
		},
		MemberTypes: []types.MemberType{{Name: "cfg"}, {Name: "method"}},
		Message:     "Welcome",
	})
	source := mapSource{
		"Ext.Panel": {Name: "Ext.Panel", Extends: "Ext.Base", Members: []types.Member{
			{ID: "cfg-title", Tagname: "cfg", Name: "title", Owner: "Ext.Panel"},
			{ID: "method-show", Tagname: "method", Name: "show", Owner: "Ext.Panel"},
			{ID: "method-hide", Tagname: "method", Name: "hide", Owner: "Ext.Base"},
			{ID: "method-doLayout", Tagname: "method", Name: "doLayout", Owner: "Ext.Panel", Meta: types.Meta{Private: true}},
		}},
	}
	ldr := loader.New(source)
	prefs := settings.NewPreferences(settings.NewMemoryStore(), settings.Defaults{Show: members.DefaultShowFlags()})
	tracker := analytics.NewTracker(nil)

	f := &fixture{catalog: catalog, tracker: tracker}
	deps := Deps{Catalog: catalog, Loader: ldr, Tracker: tracker, Preferences: prefs}
	if withHub {
		hub, err := docws.NewHub(docws.Config{
			Catalog:         catalog,
			Loader:          ldr,
			Preferences:     prefs,
			Tracker:         tracker,
			OriginValidator: NewOriginValidator(nil),
		})
		require.NoError(t, err)
		f.hub = hub
		deps.Hub = hub
	}
	f.server = New(Config{Title: "Test Docs", AllowedOrigins: []string{"http://docs.example.com"}}, deps)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = f.server.Shutdown(ctx)
	})
	return f
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestServer_Health(t *testing.T) {
	f := newFixture(t, true)

	rec := f.get(t, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body healthResponse
	decode(t, rec, &body)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, 3, body.Classes)
	assert.NotEmpty(t, body.Version)
	assert.Equal(t, 0, body.Sessions)
}

func TestServer_Shell(t *testing.T) {
	f := newFixture(t, false)

	rec := f.get(t, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<title>Test Docs</title>")
	assert.Contains(t, rec.Body.String(), `new WebSocket(`)

	body := rec.Body.String()
	for _, flag := range []string{"public", "private", "deprecated", "internal"} {
		assert.Contains(t, body, `data-show="`+flag+`"`)
	}
	assert.Contains(t, body, `show:readShow()`)
	assert.NotContains(t, body, `show:{public:true`)
	assert.Contains(t, body, `settings:function`)
	assert.Contains(t, body, `{type:"sync"}`)
	assert.Contains(t, body, `snapshot:function`)
	assert.Contains(t, body, `notice:function`)
}

func TestShell_EscapesTitle(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, Shell(`<Docs & "Co">`).Render(context.Background(), &buf))
	assert.NotContains(t, buf.String(), "<Docs")
	assert.Contains(t, buf.String(), "&lt;Docs &amp;")
}

func TestServer_Classes(t *testing.T) {
	f := newFixture(t, false)

	rec := f.get(t, "/api/classes")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body classListResponse
	decode(t, rec, &body)
	assert.Equal(t, 3, body.Count)
	assert.Equal(t, "Welcome", body.Message)
	assert.Len(t, body.MemberTypes, 2)
}

func TestServer_Resolve(t *testing.T) {
	f := newFixture(t, false)

	tests := []struct {
		input string
		name  string
		known bool
	}{
		{"Ext.Panel", "Ext.Panel", true},
		{"ext.panel", "Ext.Panel", true},
		{"Ext.OldPanel", "Ext.Panel", true},
		{"Ext.Missing", "Ext.Missing", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			rec := f.get(t, "/api/resolve/"+tt.input)
			require.Equal(t, http.StatusOK, rec.Code)

			var body resolveResponse
			decode(t, rec, &body)
			assert.Equal(t, tt.input, body.Input)
			assert.Equal(t, tt.name, body.Name)
			assert.Equal(t, tt.known, body.Known)
		})
	}
}

func TestServer_Class(t *testing.T) {
	f := newFixture(t, false)

	rec := f.get(t, "/api/classes/Ext.OldPanel")
	require.Equal(t, http.StatusOK, rec.Code)

	var body classResponse
	decode(t, rec, &body)
	require.NotNil(t, body.Class)
	assert.Equal(t, "Ext.Panel", body.Class.Name)
	require.Len(t, body.Groups, 2)
	assert.Equal(t, "cfg", body.Groups[0].Type)
	assert.Equal(t, "method", body.Groups[1].Type)
}

func TestServer_ClassNotFound(t *testing.T) {
	f := newFixture(t, false)

	rec := f.get(t, "/api/classes/Ext.Missing")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body errorResponse
	decode(t, rec, &body)
	assert.NotEmpty(t, body.Error)
	assert.Equal(t, "ERR_CLASS_NOT_FOUND", body.Code)
}

func TestServer_Members(t *testing.T) {
	f := newFixture(t, false)

	t.Run("text filter", func(t *testing.T) {
		rec := f.get(t, "/api/classes/Ext.Panel/members?q=sh")
		require.Equal(t, http.StatusOK, rec.Code)

		var body membersResponse
		decode(t, rec, &body)
		assert.Equal(t, "Ext.Panel", body.Class)
		assert.Equal(t, "sh", body.Text)
		assert.ElementsMatch(t, []string{"cfg-title", "method-hide", "method-doLayout"}, body.Hidden)
	})

	t.Run("private shown on request", func(t *testing.T) {
		rec := f.get(t, "/api/classes/Ext.Panel/members?private=true")
		require.Equal(t, http.StatusOK, rec.Code)

		var body membersResponse
		decode(t, rec, &body)
		assert.True(t, body.Show.Private)
		assert.Empty(t, body.Hidden)
	})

	t.Run("default hides private", func(t *testing.T) {
		rec := f.get(t, "/api/classes/Ext.Panel/members")
		require.Equal(t, http.StatusOK, rec.Code)

		var body membersResponse
		decode(t, rec, &body)
		assert.Equal(t, []string{"method-doLayout"}, body.Hidden)
	})

	t.Run("bad flag", func(t *testing.T) {
		rec := f.get(t, "/api/classes/Ext.Panel/members?public=maybe")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_Tree(t *testing.T) {
	f := newFixture(t, false)

	t.Run("inheritance without private", func(t *testing.T) {
		rec := f.get(t, "/api/tree?grouping=inheritance")
		require.Equal(t, http.StatusOK, rec.Code)

		var root tree.Node
		decode(t, rec, &root)
		assert.Nil(t, tree.FindByURL(&root, types.ClassURL("Ext.util.Secret", "")))
		assert.NotNil(t, tree.FindByURL(&root, types.ClassURL("Ext.Panel", "")))
	})

	t.Run("private included", func(t *testing.T) {
		rec := f.get(t, "/api/tree?grouping=package&private=true")
		require.Equal(t, http.StatusOK, rec.Code)

		var root tree.Node
		decode(t, rec, &root)
		assert.NotNil(t, tree.FindByURL(&root, types.ClassURL("Ext.util.Secret", "")))
	})

	t.Run("unknown grouping", func(t *testing.T) {
		rec := f.get(t, "/api/tree?grouping=alphabetical")
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var body errorResponse
		decode(t, rec, &body)
		assert.Equal(t, "ERR_INVALID_GROUPING", body.Code)
	})
}

func TestServer_Stats(t *testing.T) {
	f := newFixture(t, false)

	require.Equal(t, http.StatusOK, f.get(t, "/api/classes/Ext.Panel").Code)
	require.Equal(t, http.StatusOK, f.get(t, "/api/classes/Ext.Panel").Code)

	rec := f.get(t, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var body statsResponse
	decode(t, rec, &body)
	assert.Equal(t, int64(1), body.Cache.Fetches)
	assert.Equal(t, 1, body.Cache.Entries)
	assert.NotEmpty(t, body.Policy)
	require.NotNil(t, body.Activity)
}

func TestServer_CORS(t *testing.T) {
	f := newFixture(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/classes", nil)
	req.Header.Set("Origin", "http://docs.example.com")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "http://docs.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/classes", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_WebSocketWithoutHub(t *testing.T) {
	f := newFixture(t, false)
	assert.Equal(t, http.StatusServiceUnavailable, f.get(t, "/ws").Code)
}

func TestServer_WebSocketSession(t *testing.T) {
	f := newFixture(t, true)
	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"session"`)

	require.Eventually(t, func() bool {
		return f.hub.GetConnectedClients() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	f := newFixture(t, true)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.Serve(ctx, listener) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listener.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.True(t, f.hub.IsShutdown())
}

func TestNewOriginValidator(t *testing.T) {
	local := NewOriginValidator(nil)
	assert.True(t, local.IsAllowedOrigin("http://localhost:3000"))
	assert.True(t, local.IsAllowedOrigin("http://127.0.0.1:8080"))
	assert.True(t, local.IsAllowedOrigin("http://[::1]:8080"))
	assert.False(t, local.IsAllowedOrigin("http://example.com"))
	assert.False(t, local.IsAllowedOrigin("://bad"))

	listed := NewOriginValidator([]string{"https://docs.example.com"})
	assert.True(t, listed.IsAllowedOrigin("https://docs.example.com"))
	assert.False(t, listed.IsAllowedOrigin("http://localhost:3000"))

	wildcard := NewOriginValidator([]string{"*"})
	assert.True(t, wildcard.IsAllowedOrigin("http://anything.example"))
}
