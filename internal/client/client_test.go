package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetJSON(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write([]byte(`[{"title":"A"},{"title":"B"}]`))
	})

	p, err := New(time.Second).Get(context.Background(), srv.URL+"/v1/updates")
	require.NoError(t, err)
	assert.True(t, p.IsJSON())

	list, ok := p.Value.([]any)
	require.True(t, ok, "expected a JSON array, got %T", p.Value)
	assert.Len(t, list, 2)
}

func TestGetMalformedJSONYieldsNil(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"updates": [`))
	})

	p, err := New(time.Second).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Nil(t, p.Value)
}

func TestGetText(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("hello"))
	})

	p, err := New(time.Second).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.False(t, p.IsJSON())
	assert.Equal(t, "hello", p.Text())
}

func TestGetStatusError(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"maintenance"}`))
	})

	_, err := New(time.Second).Get(context.Background(), srv.URL)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, "HTTP 503", err.Error())
	assert.Equal(t, map[string]any{"error": "maintenance"}, statusErr.Data)
}

func TestGetTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	start := time.Now()
	_, err := New(50*time.Millisecond).Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "expected ErrTimeout, got %v", err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGetNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(time.Second).Get(context.Background(), url)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestNewDefaultsTimeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, New(0).Timeout())
}

func TestEndpointLabel(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"http://localhost:3300/v1/updates", "updates"},
		{"http://localhost:3300/v1/stats/", "stats"},
		{"http://localhost:3300/v1/stats?x=1", "stats"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, endpointLabel(tt.url), tt.url)
	}
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "status", outcome(&StatusError{StatusCode: 500}))
	assert.Equal(t, "timeout", outcome(ErrTimeout))
	assert.Equal(t, "error", outcome(errors.New("boom")))
}
