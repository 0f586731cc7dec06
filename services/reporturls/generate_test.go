package reporturls

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	resultsDir := t.TempDir()
	writeDataset(t, filepath.Join(resultsDir, "facilities"), "NY-Albany.csv",
		"RegistryID,FacName,FacCaseIds\n110001,PLANT A,A B C\n110002,PLANT B,\n")

	g := Generator{ResultsDir: resultsDir, OutputDir: t.TempDir()}
	ctx := context.Background()

	report, ok := ReportTypeByName("enforcement-case-reports")
	require.True(t, ok)

	count, err := g.Generate(ctx, report)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	body, err := os.ReadFile(filepath.Join(g.OutputDir, "enforcement-case-reports.txt"))
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://echo.epa.gov/enforcement-case-report?id=A",
		"https://echo.epa.gov/enforcement-case-report?id=B",
		"https://echo.epa.gov/enforcement-case-report?id=C",
	}, strings.Split(strings.TrimSpace(string(body)), "\n"))
}

func TestGenerateIdempotent(t *testing.T) {
	resultsDir := t.TempDir()
	writeDataset(t, filepath.Join(resultsDir, "facilities"), "CA.csv",
		"RegistryID,FacName\n110001,PLANT A\n")

	g := Generator{ResultsDir: resultsDir, OutputDir: t.TempDir()}
	ctx := context.Background()

	report, ok := ReportTypeByName("detailed-facility-reports")
	require.True(t, ok)

	_, err := g.Generate(ctx, report)
	require.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(g.OutputDir, "detailed-facility-reports.txt"))
	require.NoError(t, err)

	// re-running truncates instead of appending
	_, err = g.Generate(ctx, report)
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(g.OutputDir, "detailed-facility-reports.txt"))
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestGenerateRequiredFailure(t *testing.T) {
	resultsDir := t.TempDir()
	writeDataset(t, filepath.Join(resultsDir, "facilities"), "CA.csv",
		"FacName\nPLANT A\n")

	g := Generator{ResultsDir: resultsDir, OutputDir: t.TempDir()}

	report, ok := ReportTypeByName("detailed-facility-reports")
	require.True(t, ok)

	_, err := g.Generate(context.Background(), report)
	require.ErrorIs(t, err, ErrMissingIdentifierColumn)
}
