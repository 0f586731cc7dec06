package echo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetchColumns(t *testing.T) {
	metadata := `{"Results":{"ResultColumns":[
		{"ColumnID":"1","ObjectName":"RegistryID"},
		{"ColumnID":"2","ObjectName":"FacName"},
		{"ColumnID":"1","ObjectName":"RegistryID"},
		{"ColumnID":"16","ObjectName":"FacCaseIds"}
	]}}`

	mux := http.NewServeMux()
	mux.HandleFunc("/echo_rest_services.metadata", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(metadata))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server)
	qcolumns, err := client.FetchColumns(context.Background())
	require.NoError(t, err)

	ids := strings.Split(qcolumns, ",")
	// duplicates collapse, both within the metadata and against the
	// undocumented list
	require.Equal(t, []string{"1", "2", "16"}, ids[:3])
	for _, id := range undocumentedColumns {
		require.Contains(t, ids, id)
	}
	seen := map[string]bool{}
	for _, id := range ids {
		require.False(t, seen[id], "duplicate column id %s", id)
		seen[id] = true
	}
}

func TestFetchColumnsEmptyMetadata(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/echo_rest_services.metadata", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Results":{"ResultColumns":[]}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.FetchColumns(context.Background())
	require.ErrorIs(t, err, ErrDiscoveryParse)
}
