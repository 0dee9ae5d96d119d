package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/lootsync/internal/catalog"
	"github.com/park285/lootsync/internal/config"
	"github.com/park285/lootsync/internal/history"
	"github.com/park285/lootsync/internal/hub"
	"github.com/park285/lootsync/internal/loot"
	"github.com/park285/lootsync/internal/lootlog"
	"github.com/park285/lootsync/pkg/lootdto"
)

type fixture struct {
	srv  *Server
	http *httptest.Server
	hub  *hub.Hub
	hist history.Store
}

func newFixture(t *testing.T, mutate func(*config.AppConfig)) *fixture {
	t.Helper()
	cfg := &config.AppConfig{
		ListenAddr:     ":0",
		UploadField:    "logFile",
		MaxUploadBytes: 1 << 20,
	}
	if mutate != nil {
		mutate(cfg)
	}

	cat := catalog.New()
	cat.Add(catalog.Entry{Name: "Flowing Black Silk Sash", ID: 4821, Slots: []string{"Waist"}})
	cat.Add(catalog.Entry{Name: "Bone Chips", ID: 13073})

	rules, err := lootlog.DefaultRules()
	require.NoError(t, err)

	hist := history.NewFileStore(filepath.Join(t.TempDir(), "loot_history.txt"))
	h := hub.New(loot.NewState(), hist)
	srv := New(cfg, Deps{
		Catalog: cat,
		Parser:  lootlog.NewParser(rules, cat),
		Hub:     h,
		History: hist,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &fixture{srv: srv, http: ts, hub: h, hist: hist}
}

func (f *fixture) upload(t *testing.T, field, filename, content string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(f.http.URL+"/upload", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (f *fixture) dialWS(t *testing.T) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(f.http.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readList(t *testing.T, conn *websocket.Conn) lootdto.LootListUpdate {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var msg lootdto.LootListUpdate
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	return msg
}

func TestUploadSingleLineResolvesItem(t *testing.T) {
	f := newFixture(t, nil)
	conn := f.dialWS(t)
	assert.Empty(t, readList(t, conn).Items)

	resp := f.upload(t, "logFile", "eqlog.txt",
		"[Sat May 31 17:16:00 2025] Alexr looted a Flowing Black Silk Sash from a corpse.\n")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[lootdto.UploadResponse](t, resp)
	require.Equal(t, 1, body.Count)
	require.Len(t, body.Items, 1)
	got := body.Items[0]
	assert.Equal(t, "Alexr", got.Looter)
	assert.Equal(t, "Flowing Black Silk Sash", got.ItemName)
	assert.Equal(t, 4821, got.ItemID)
	assert.Equal(t, "", got.Recipient)
	assert.False(t, got.Distributed)
	assert.NotEmpty(t, got.ID)

	pushed := readList(t, conn)
	assert.Equal(t, lootdto.TypeLootListUpdate, pushed.Type)
	require.Len(t, pushed.Items, 1)
	assert.Equal(t, got.ID, pushed.Items[0].ID)
}

func TestUploadSkipsUnparseableLinesAndSorts(t *testing.T) {
	f := newFixture(t, nil)
	resp := f.upload(t, "logFile", "eqlog.txt", strings.Join([]string{
		"[Sat May 31 17:16:00 2025] Alexr looted a Flowing Black Silk Sash from a corpse.",
		"[Sat May 31 17:16:05 2025] You say, 'thanks all'",
		"[Sat May 31 17:16:09 2025] Bob looted a Bone Chips from a skeleton.",
	}, "\r\n"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[lootdto.UploadResponse](t, resp)
	require.Equal(t, 2, body.Count)
	assert.Equal(t, "Bone Chips", body.Items[0].ItemName)
	assert.Equal(t, 13073, body.Items[0].ItemID)
	assert.Equal(t, "Bob", body.Items[0].Looter)
	assert.Equal(t, "Flowing Black Silk Sash", body.Items[1].ItemName)
	assert.Equal(t, 2, f.hub.State().Len())
}

func TestUploadUnknownItemGetsSentinel(t *testing.T) {
	f := newFixture(t, nil)
	resp := f.upload(t, "logFile", "eqlog.txt", "Alexr looted a Rusty Dagger from a rat.")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[lootdto.UploadResponse](t, resp)
	require.Len(t, body.Items, 1)
	assert.Equal(t, loot.UnknownItemID, body.Items[0].ItemID)
}

func TestUploadRejections(t *testing.T) {
	f := newFixture(t, nil)

	resp := f.upload(t, "file", "eqlog.txt", "Alexr looted a Bone Chips from a rat.")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	e := decode[lootdto.ErrorResponse](t, resp)
	assert.Equal(t, "upload.no_file", e.Code)
	assert.Contains(t, e.Error, `"logFile"`)

	resp = f.upload(t, "logFile", "eqlog.txt", "You say, 'hello'\nYou say, 'bye'\n")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	e = decode[lootdto.ErrorResponse](t, resp)
	assert.Equal(t, "no loot data found", e.Error)

	resp = f.upload(t, "logFile", "empty.txt", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "upload.empty", decode[lootdto.ErrorResponse](t, resp).Code)

	plain, err := http.Post(f.http.URL+"/upload", "text/plain", strings.NewReader("Alexr looted a Bone Chips from a rat."))
	require.NoError(t, err)
	defer plain.Body.Close()
	assert.Equal(t, http.StatusBadRequest, plain.StatusCode)

	// rejected uploads leave the list alone
	assert.Equal(t, 0, f.hub.State().Len())
}

func TestUploadFieldIsConfigurable(t *testing.T) {
	f := newFixture(t, func(c *config.AppConfig) { c.UploadField = "eqlog" })
	resp := f.upload(t, "eqlog", "eqlog.txt", "Alexr looted a Bone Chips from a rat.")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUploadTooLarge(t *testing.T) {
	f := newFixture(t, func(c *config.AppConfig) { c.MaxUploadBytes = 512 })
	resp := f.upload(t, "logFile", "eqlog.txt", strings.Repeat("Alexr looted a Bone Chips from a rat.\n", 100))
	assert.GreaterOrEqual(t, resp.StatusCode, 400)
	assert.Less(t, resp.StatusCode, 500)
	assert.Equal(t, 0, f.hub.State().Len())
}

func TestLootAndHistoryEndpoints(t *testing.T) {
	f := newFixture(t, nil)
	stored := f.hub.PublishSnapshot([]loot.Entry{{Looter: "Alexr", ItemName: "Bone Chips", ItemID: 13073}})

	resp, err := http.Get(f.http.URL + "/api/loot")
	require.NoError(t, err)
	defer resp.Body.Close()
	list := decode[lootdto.LootListUpdate](t, resp)
	require.Len(t, list.Items, 1)
	assert.Equal(t, stored[0].ID, list.Items[0].ID)

	resp2, err := http.Get(f.http.URL + "/api/history")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Empty(t, decode[[]lootdto.HistoryRecord](t, resp2))

	_, ok := f.hub.Patch(context.Background(), loot.Ref{Index: 0}, "Bob", true)
	require.True(t, ok)

	resp3, err := http.Get(f.http.URL + "/api/history")
	require.NoError(t, err)
	defer resp3.Body.Close()
	recs := decode[[]lootdto.HistoryRecord](t, resp3)
	require.Len(t, recs, 1)
	assert.Equal(t, "Bone Chips", recs[0].ItemName)
	assert.Equal(t, "Bob", recs[0].Recipient)
	_, err = time.Parse(time.RFC3339, recs[0].Timestamp)
	assert.NoError(t, err)
}

func TestSearch(t *testing.T) {
	f := newFixture(t, nil)
	post := func(body string) *http.Response {
		resp, err := http.Post(f.http.URL+"/api/items/search", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	resp := post(`{"names":["bone chips","Nope","Flowing Black Silk Sash","Bone Chips"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[lootdto.SearchResponse](t, resp)
	require.Len(t, got.Items, 2)
	assert.Equal(t, 13073, got.Items[0].ID)
	assert.Equal(t, 4821, got.Items[1].ID)
	assert.Equal(t, []string{"Waist"}, got.Items[1].Slots)

	resp = post(`{`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "request.invalid_json", decode[lootdto.ErrorResponse](t, resp).Code)

	resp = post(`{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "request.missing_names", decode[lootdto.ErrorResponse](t, resp).Code)

	names := make([]string, maxSearchNames+1)
	for i := range names {
		names[i] = "x"
	}
	raw, err := json.Marshal(lootdto.SearchRequest{Names: names})
	require.NoError(t, err)
	resp = post(string(raw))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "request.too_many_names", decode[lootdto.ErrorResponse](t, resp).Code)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, nil)
	conn := f.dialWS(t)
	readList(t, conn)

	resp, err := http.Get(f.http.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	h := decode[lootdto.Health](t, resp)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, 2, h.Catalog)
	assert.Equal(t, 1, h.Clients)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	f.upload(t, "logFile", "eqlog.txt", "Alexr looted a Bone Chips from a rat.")

	resp, err := http.Get(f.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "lootsync_uploads_total")
	assert.Contains(t, string(raw), "lootsync_http_requests_total")
}

func TestCORS(t *testing.T) {
	f := newFixture(t, nil)
	req, err := http.NewRequest(http.MethodOptions, f.http.URL+"/upload", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	r := newFixture(t, func(c *config.AppConfig) { c.AllowedOrigins = []string{"http://raid.test"} })
	for origin, want := range map[string]string{"http://raid.test": "http://raid.test", "http://evil.test": ""} {
		req, err := http.NewRequest(http.MethodGet, r.http.URL+"/api/loot", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", origin)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, want, resp.Header.Get("Access-Control-Allow-Origin"), origin)
	}
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>loot</h1>"), 0o644))
	f := newFixture(t, func(c *config.AppConfig) { c.StaticDir = dir })

	resp, err := http.Get(f.http.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "<h1>loot</h1>")

	// API routes still win over the file server
	resp2, err := http.Get(f.http.URL + "/healthz")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, "application/json", resp2.Header.Get("Content-Type"))
}
