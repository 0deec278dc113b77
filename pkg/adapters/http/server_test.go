package http

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/pkg/adapters/memory"
	"github.com/aretw0/folio/pkg/nodes"
	"github.com/aretw0/folio/pkg/observability"
	"github.com/aretw0/folio/pkg/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*httptest.Server, *workspace.Manager) {
	t.Helper()
	metrics := observability.NewMetrics("")
	ws := workspace.NewManager(memory.NewStore(), workspace.WithEditorFactory(func(string) []folio.Option {
		return []folio.Option{folio.WithPlugins(nodes.ListPlugin{}, metrics.Recorder())}
	}))
	t.Cleanup(func() { _ = ws.Close() })

	srv := httptest.NewServer(NewHandler(&Server{
		Workspace: ws,
		Types:     func() []string { return []string{"paragraph", "text"} },
		Gatherer:  metrics.Registry(),
	}))
	t.Cleanup(srv.Close)
	return srv, ws
}

func do(t *testing.T, method, url, contentType, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestHealthAndInfo(t *testing.T) {
	srv, _ := newServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	resp, body = do(t, http.MethodGet, srv.URL+"/info", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &info))
	assert.Equal(t, "folio-http", info["app"])
	assert.Equal(t, APIVersion, info["api_version"])
	assert.NotEmpty(t, info["version"])

	_, body = do(t, http.MethodGet, srv.URL+"/types", "", "")
	assert.JSONEq(t, `{"types":["paragraph","text"]}`, body)
}

func TestDocumentLifecycle(t *testing.T) {
	srv, _ := newServer(t)
	base := srv.URL + "/documents/notes"

	resp, _ := do(t, http.MethodGet, base, "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := do(t, http.MethodPost, base+"/paragraphs", "application/json", `{"text":"hello\nworld"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Contains(t, body, `"version":1`)

	resp, body = do(t, http.MethodGet, base+"/export.md", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello  \nworld\n", body)

	resp, body = do(t, http.MethodGet, base+"/export.html", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<p>hello<br/>world</p>\n", body)

	_, body = do(t, http.MethodGet, srv.URL+"/documents", "", "")
	assert.JSONEq(t, `{"documents":["notes"]}`, body)

	resp, body = do(t, http.MethodGet, base, "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"type":"root"`)

	resp, _ = do(t, http.MethodDelete, base, "", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = do(t, http.MethodGet, base+"/export.md", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPutDocument(t *testing.T) {
	srv, _ := newServer(t)
	base := srv.URL + "/documents/doc"

	resp, body := do(t, http.MethodPut, base, "application/yaml",
		"root:\n  type: root\n  children:\n    - type: paragraph\n      children:\n        - type: text\n          text: from yaml\n")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	_, body = do(t, http.MethodGet, base+"/export.md", "", "")
	assert.Equal(t, "from yaml\n", body)

	resp, _ = do(t, http.MethodPut, base, "application/json", `{"root":{"type":"root","children":[{"type":"poll"}]}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp, _ = do(t, http.MethodPut, base, "application/json", `{not json`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Rejected bodies leave the stored document alone.
	_, body = do(t, http.MethodGet, base+"/export.md", "", "")
	assert.Equal(t, "from yaml\n", body)
}

func TestImport(t *testing.T) {
	srv, _ := newServer(t)
	base := srv.URL + "/documents/doc"

	resp, body := do(t, http.MethodPost, base+"/import?kind=html", "text/html", "<ul><li>a</li><li>b</li></ul>")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	_, body = do(t, http.MethodGet, base+"/export.md", "", "")
	assert.Equal(t, "- a\n- b\n", body)

	resp, _ = do(t, http.MethodPost, base+"/import?kind=pdf", "", "x")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newServer(t)
	do(t, http.MethodPost, srv.URL+"/documents/doc/paragraphs", "application/json", `{"text":"x","tag":"typing"}`)

	resp, body := do(t, http.MethodGet, srv.URL+"/metrics", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `folio_commits_total{tag="typing"} 1`)
	assert.Contains(t, body, `folio_document_version{document="doc"} 1`)
}

func TestEvents(t *testing.T) {
	srv, ws := newServer(t)
	ctx := context.Background()
	_, err := ws.Edit(ctx, "doc", func(ctx context.Context, tx *folio.Tx) error {
		_, err := AppendParagraph(tx, "first")
		return err
	})
	require.NoError(t, err)

	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, srv.URL+"/documents/doc/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())

	_, err = ws.Edit(ctx, "doc", func(ctx context.Context, tx *folio.Tx) error {
		_, err := AppendParagraph(tx, "second")
		return err
	}, folio.WithTag("typing"))
	require.NoError(t, err)

	for lines.Scan() {
		if strings.HasPrefix(lines.Text(), "data: {") {
			var ev commitEvent
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines.Text(), "data: ")), &ev))
			assert.Equal(t, uint64(2), ev.Version)
			assert.Equal(t, "typing", ev.Tag)
			assert.Equal(t, 2, ev.Created)
			return
		}
	}
	t.Fatal("no commit event received")
}
