package harvester

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/edgi-govdata-archiving/epa-echo/lib/fetchutil"
	"github.com/edgi-govdata-archiving/epa-echo/lib/scrapers/echo"
	"github.com/edgi-govdata-archiving/epa-echo/lib/testutil"
	"github.com/edgi-govdata-archiving/epa-echo/services/harvester/db"

	"github.com/stretchr/testify/require"
)

const rowLimitFixture = `{"Results":{"Error":{"ErrorMessage":"Queryset limit exceeded: 215000 records would be returned, the limit is 100000."}}}`

// fake ECHO:
//   - NY overflows at the state level, each of its counties succeeds
//   - CA succeeds outright
//   - TX overflows at every level (irreducibly oversized)
//   - PR errors at the application level
func newEchoServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/echo_rest_services.get_facilities", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		state := r.PostForm.Get("p_st")
		county := r.PostForm.Get("p_co")

		switch {
		case state == "TX":
			w.Write([]byte(rowLimitFixture))
		case state == "PR":
			w.Write([]byte(`{"Results":{"Error":{"ErrorMessage":"No data available for this state."}}}`))
		case state == "NY" && county == "":
			w.Write([]byte(rowLimitFixture))
		case state == "NY":
			fmt.Fprintf(w, `{"Results":{"QueryID":"NY.%s","QueryRows":"12"}}`, county)
		default:
			fmt.Fprintf(w, `{"Results":{"QueryID":"%s","QueryRows":"7"}}`, state)
		}
	})
	mux.HandleFunc("/echo_rest_services.get_download", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "RegistryID,FacName\n1,facility of %s\n", r.URL.Query().Get("qid"))
	})
	return httptest.NewServer(mux)
}

func testLookups() echo.Lookups {
	return echo.Lookups{
		States: []string{"NY", "CA", "TX", "PR"},
		Counties: map[string][]string{
			"NY": {"Albany", "Queens"},
			"TX": {"Travis"},
		},
	}
}

func newTestHarvester(t *testing.T, server *httptest.Server, manifest *db.Queries, resultsDir string) *Harvester {
	fetch, err := fetchutil.NewClient(fetchutil.Options{})
	require.NoError(t, err)

	return New(Options{
		Client: echo.NewClient(echo.ClientOptions{
			BaseUrl: server.URL,
			Fetch:   fetch,
		}),
		Manifest:   manifest,
		ResultsDir: resultsDir,
		RowCap:     100000,
		Qcolumns:   "1,2,16",
		Lookups:    testLookups(),
	})
}

func TestHarvestPartitioning(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/harvester",
		DbSchema: db.Schema,
	})
	defer cleanup()
	manifest := db.New(setup.DB)

	server := newEchoServer(t)
	defer server.Close()

	resultsDir := t.TempDir()
	h := newTestHarvester(t, server, manifest, resultsDir)

	ctx := context.Background()
	categories := []echo.Category{{Name: "facilities", Media: "ALL"}}
	require.NoError(t, h.Run(ctx, categories))

	// NY split into counties, no state-level file exists
	require.FileExists(t, filepath.Join(resultsDir, "facilities", "NY-Albany.csv"))
	require.FileExists(t, filepath.Join(resultsDir, "facilities", "NY-Queens.csv"))
	require.NoFileExists(t, filepath.Join(resultsDir, "facilities", "NY.csv"))

	// CA resolved at the state level
	require.FileExists(t, filepath.Join(resultsDir, "facilities", "CA.csv"))

	// TX and PR branches were abandoned without output
	require.NoFileExists(t, filepath.Join(resultsDir, "facilities", "TX.csv"))
	require.NoFileExists(t, filepath.Join(resultsDir, "facilities", "TX-Travis.csv"))
	require.NoFileExists(t, filepath.Join(resultsDir, "facilities", "PR.csv"))

	body, err := os.ReadFile(filepath.Join(resultsDir, "facilities", "NY-Albany.csv"))
	require.NoError(t, err)
	require.Contains(t, string(body), "facility of NY.Albany")

	albany, err := manifest.GetPartition(ctx, "facilities", "NY-Albany")
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, albany.Outcome)
	require.Equal(t, "NY.Albany", albany.QueryID)
	require.EqualValues(t, 12, albany.RowCount)

	travis, err := manifest.GetPartition(ctx, "facilities", "TX-Travis")
	require.NoError(t, err)
	require.Equal(t, OutcomeOversized, travis.Outcome)

	pr, err := manifest.GetPartition(ctx, "facilities", "PR")
	require.NoError(t, err)
	require.Equal(t, OutcomeUpstreamError, pr.Outcome)
}

func TestHarvestIdempotence(t *testing.T) {
	server := newEchoServer(t)
	defer server.Close()

	resultsDir := t.TempDir()
	h := newTestHarvester(t, server, nil, resultsDir)

	ctx := context.Background()
	categories := []echo.Category{{Name: "facilities", Media: "ALL"}}
	require.NoError(t, h.Run(ctx, categories))

	path := filepath.Join(resultsDir, "facilities", "CA.csv")
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, h.Run(ctx, categories))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestCountyRefiner(t *testing.T) {
	refiner := CountyRefiner(map[string][]string{"NY": {"Albany", "Queens"}})

	children := refiner(Key{}.With(DimState, "NY"))
	require.Len(t, children, 2)
	require.Equal(t, "NY-Albany", children[0].Name("-"))
	require.Equal(t, "NY-Queens", children[1].Name("-"))

	// already fully refined
	require.Nil(t, refiner(children[0]))
	// no counties known for the state
	require.Nil(t, refiner(Key{}.With(DimState, "AK")))
	// state not bound yet
	require.Nil(t, refiner(Key{}))
}
