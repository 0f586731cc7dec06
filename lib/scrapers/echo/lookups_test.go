package echo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/edgi-govdata-archiving/epa-echo/lib/fetchutil"
	"github.com/edgi-govdata-archiving/epa-echo/lib/telemetry"

	_ "embed"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

//go:embed search_page_test.html
var searchPageTest []byte

//go:embed state_lookup_test.js
var stateLookupTest []byte

//go:embed county_lookup_test.js
var countyLookupTest []byte

func TestParseStates(t *testing.T) {
	states, err := ParseStates(stateLookupTest)
	require.NoError(t, err)
	require.Equal(t, []string{"NY", "CA", "TX"}, states)
}

func TestParseStatesMissingDelimiter(t *testing.T) {
	_, err := ParseStates([]byte("var somethingElse = 1;"))
	require.ErrorIs(t, err, ErrDiscoveryParse)
}

func TestParseCounties(t *testing.T) {
	counties, err := ParseCounties(countyLookupTest)
	require.NoError(t, err)

	want := map[string][]string{
		"NY": {"Albany", "Queens", "Suffolk"},
		"CA": {"Alameda", "Kern"},
		"TX": {"Travis"},
	}
	if diff := cmp.Diff(want, counties); diff != "" {
		t.Fatalf("counties mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCountiesMissingDelimiter(t *testing.T) {
	_, err := ParseCounties([]byte("not a lookup script"))
	require.ErrorIs(t, err, ErrDiscoveryParse)
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	fetch, err := fetchutil.NewClient(fetchutil.Options{})
	require.NoError(t, err)
	return NewClient(ClientOptions{
		BaseUrl:       server.URL,
		SearchPageUrl: server.URL + "/facilities/facility-search",
		Fetch:         fetch,
	})
}

func TestFetchLookups(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/echo")
	defer cleanup()

	mux := http.NewServeMux()
	mux.HandleFunc("/facilities/facility-search", func(w http.ResponseWriter, r *http.Request) {
		w.Write(searchPageTest)
	})
	mux.HandleFunc("/js/state_lookup.js", func(w http.ResponseWriter, r *http.Request) {
		w.Write(stateLookupTest)
	})
	mux.HandleFunc("/js/county_lookup.js", func(w http.ResponseWriter, r *http.Request) {
		w.Write(countyLookupTest)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server)
	lookups, err := client.FetchLookups(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"NY", "CA", "TX"}, lookups.States)
	require.Equal(t, []string{"Albany", "Queens", "Suffolk"}, lookups.CountiesFor("NY"))
	require.Empty(t, lookups.CountiesFor("ZZ"))
}

func TestFetchLookupsMissingScripts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/facilities/facility-search", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><head></head><body></body></html>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.FetchLookups(context.Background())
	require.ErrorIs(t, err, ErrDiscoveryParse)
}
