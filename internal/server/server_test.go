package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/matheuskafuri/xupdate/internal/cache"
	"github.com/matheuskafuri/xupdate/internal/client"
	"github.com/matheuskafuri/xupdate/internal/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	value []byte
}

func (m *memStore) Put(key string, value []byte) error {
	m.value = value
	return nil
}

func (m *memStore) Get(key string) (cache.Entry, error) {
	if m.value == nil {
		return cache.Entry{}, cache.ErrNotFound
	}
	return cache.Entry{Key: key, Value: m.value, UpdatedAt: time.Now()}, nil
}

func testWidget(t *testing.T, handler http.HandlerFunc) (*Widget, *memStore) {
	t.Helper()
	api := httptest.NewServer(handler)
	t.Cleanup(api.Close)

	store := &memStore{}
	loader := feed.NewLoader(feed.LoaderOpts{
		Client:     client.New(2 * time.Second),
		Store:      store,
		CacheKey:   "x_updates_cache",
		UpdatesURL: api.URL + "/v1/updates",
		StatsURL:   api.URL + "/v1/stats",
	})
	w := NewWidget(ServerConfig{
		Loader:       loader,
		APIBase:      api.URL,
		PollInterval: time.Minute,
		Location:     time.UTC,
	})
	return w, store
}

func onlineAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/v1/updates":
		io.WriteString(w, `{"updates":[{"title":"Deploy <b>A</b>","text":"rolled out","tag":"release"},{"title":"Incident B","body":"latency spike"}]}`)
	case "/v1/stats":
		io.WriteString(w, `{"users":3,"active":true}`)
	default:
		http.NotFound(w, r)
	}
}

func get(t *testing.T, w *Widget, target string) (*http.Response, *goquery.Document) {
	t.Helper()
	resp, err := Server(w).Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return resp, doc
}

func TestPageBeforeFirstLoad(t *testing.T) {
	w, _ := testWidget(t, onlineAPI)

	resp, doc := get(t, w, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Equal(t, "Checking…", strings.TrimSpace(doc.Find("#statusText").Text()))
	assert.Equal(t, "Loading…", strings.TrimSpace(doc.Find("#statsBox").Text()))
}

func TestPageAfterRefresh(t *testing.T) {
	w, store := testWidget(t, onlineAPI)
	w.Refresh(context.Background())

	_, doc := get(t, w, "/")
	assert.Equal(t, "Online", strings.TrimSpace(doc.Find("#statusText").Text()))
	assert.True(t, doc.Find("#statusDot").HasClass("ok"))
	assert.Equal(t, 2, doc.Find("#list .item").Length())
	assert.Contains(t, doc.Find("#list").Text(), "Deploy <b>A</b>")
	assert.Equal(t, 0, doc.Find("#list b").Length())
	assert.Contains(t, doc.Find("#note").Text(), "Last updated:")
	assert.Contains(t, doc.Find("#statsBox").Text(), `"users": 3`)
	assert.NotNil(t, store.value)
}

func TestPageQueryFiltersCache(t *testing.T) {
	w, _ := testWidget(t, onlineAPI)
	w.Refresh(context.Background())

	_, doc := get(t, w, "/?q=SPIKE")
	assert.Equal(t, 1, doc.Find("#list .item").Length())
	assert.Contains(t, doc.Find("#list").Text(), "Incident B")
	val, _ := doc.Find("#search").Attr("value")
	assert.Equal(t, "SPIKE", val)
}

func TestPageUnreachable(t *testing.T) {
	w, _ := testWidget(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	w.Refresh(context.Background())

	_, doc := get(t, w, "/")
	assert.Equal(t, "Offline", strings.TrimSpace(doc.Find("#statusText").Text()))
	assert.True(t, doc.Find("#statusDot").HasClass("bad"))
	assert.Contains(t, doc.Find("#list").Text(), "Can't reach API")
	assert.Equal(t, "HTTP 500", strings.TrimSpace(doc.Find("#note").Text()))
	assert.Equal(t, "Stats unavailable (optional endpoint).", strings.TrimSpace(doc.Find("#statsBox").Text()))
}

func TestPageFallsBackToCache(t *testing.T) {
	var down atomic.Bool
	w, _ := testWidget(t, func(rw http.ResponseWriter, r *http.Request) {
		if down.Load() {
			http.Error(rw, "down", http.StatusBadGateway)
			return
		}
		onlineAPI(rw, r)
	})
	w.Refresh(context.Background())

	down.Store(true)
	w.LoadUpdates(context.Background())

	_, doc := get(t, w, "/")
	assert.Equal(t, "Offline", strings.TrimSpace(doc.Find("#statusText").Text()))
	assert.Equal(t, 2, doc.Find("#list .item").Length())
	assert.Contains(t, doc.Find("#note").Text(), "API failed. Showing cached updates from")
}

func TestRefreshRedirects(t *testing.T) {
	w, _ := testWidget(t, onlineAPI)

	resp, err := Server(w).Test(httptest.NewRequest(http.MethodPost, "/refresh", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	view := w.state.snapshot()
	assert.Equal(t, "online", view.Status)
	assert.Len(t, view.Records, 2)
}

func TestStateEndpoint(t *testing.T) {
	w, _ := testWidget(t, onlineAPI)
	w.Refresh(context.Background())

	resp, err := Server(w).Test(httptest.NewRequest(http.MethodGet, "/api/state?q=deploy", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var got stateView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "online", got.Status)
	require.Len(t, got.Records, 1)
	assert.Equal(t, "Deploy <b>A</b>", got.Records[0].Title())
	assert.Contains(t, got.Stats, `"active": true`)
}

func TestStateEndpointEmpty(t *testing.T) {
	w, _ := testWidget(t, onlineAPI)

	resp, err := Server(w).Test(httptest.NewRequest(http.MethodGet, "/api/state", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"updates":[]`)
	assert.Contains(t, string(body), `"status":"checking"`)
}

func TestMetricsEndpoint(t *testing.T) {
	w, _ := testWidget(t, onlineAPI)
	w.Refresh(context.Background())

	resp, err := Server(w).Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "xupdate_fetch_total")
}

func TestPollStopsOnCancel(t *testing.T) {
	w, _ := testWidget(t, onlineAPI)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Poll(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return w.state.snapshot().Status == "online"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestUnreachableErrorsAreTyped(t *testing.T) {
	w, _ := testWidget(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	})
	res := w.cfg.Loader.LoadUpdates(context.Background())

	var statusErr *client.StatusError
	require.True(t, errors.As(res.Err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
}
