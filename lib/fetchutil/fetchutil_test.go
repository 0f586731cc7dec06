package fetchutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetCaching(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("body"))
	}))
	defer server.Close()

	client, err := NewClient(Options{CacheDir: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	body, err := client.Get(ctx, server.URL+"/doc")
	require.NoError(t, err)
	require.Equal(t, "body", string(body))

	// served from the cache, the upstream is not hit again
	body, err = client.Get(ctx, server.URL+"/doc")
	require.NoError(t, err)
	require.Equal(t, "body", string(body))
	require.EqualValues(t, 1, hits.Load())

	_, err = client.Get(ctx, server.URL+"/other")
	require.NoError(t, err)
	require.EqualValues(t, 2, hits.Load())
}

func TestPostCaching(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("p_st") == "ZZ" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client, err := NewClient(Options{CacheDir: t.TempDir(), RetryCount: 1})
	require.NoError(t, err)
	ctx := context.Background()

	form := url.Values{"p_st": {"NY"}}
	status, body, err := client.Post(ctx, server.URL, form)
	require.NoError(t, err)
	require.Equal(t, 200, status)
	require.Equal(t, "ok", string(body))

	_, _, err = client.Post(ctx, server.URL, form)
	require.NoError(t, err)
	require.EqualValues(t, 1, hits.Load())

	// a different form is a different cache entry
	_, _, err = client.Post(ctx, server.URL, url.Values{"p_st": {"CA"}})
	require.NoError(t, err)
	require.EqualValues(t, 2, hits.Load())
}

func TestPostErrorNotCached(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewClient(Options{CacheDir: t.TempDir(), RetryCount: 1})
	require.NoError(t, err)
	ctx := context.Background()

	status, _, err := client.Post(ctx, server.URL, url.Values{})
	require.NoError(t, err)
	require.Equal(t, 502, status)

	status, _, err = client.Post(ctx, server.URL, url.Values{})
	require.NoError(t, err)
	require.Equal(t, 502, status)
	require.Greater(t, hits.Load(), int64(1))
}

func TestCacheKey(t *testing.T) {
	require.NotEqual(
		t,
		cacheKey("GET", "http://a/b", ""),
		cacheKey("GET", "http://a/c", ""),
	)
	require.NotEqual(
		t,
		cacheKey("POST", "http://a/b", "p_st=NY"),
		cacheKey("POST", "http://a/b", "p_st=CA"),
	)
	require.Equal(
		t,
		cacheKey("POST", "http://a/b", "p_st=NY"),
		cacheKey("POST", "http://a/b", "p_st=NY"),
	)
}
