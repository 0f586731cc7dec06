package commands

import (
	"os"

	"github.com/edgi-govdata-archiving/epa-echo/lib/configutil"
	"github.com/edgi-govdata-archiving/epa-echo/lib/fetchutil"
	"github.com/edgi-govdata-archiving/epa-echo/lib/scrapers/echo"
	"github.com/edgi-govdata-archiving/epa-echo/lib/serviceutil"
)

type Config struct {
	BaseUrl       string `json:"base_url"`
	SearchPageUrl string `json:"search_page_url"`

	ResultsDir string `json:"results_dir"`
	OutputDir  string `json:"output_dir"`
	CacheDir   string `json:"cache_dir"`
	ManifestDb string `json:"manifest_db"`

	RowCap         int    `json:"row_cap"`
	ThrottleMinMs  int    `json:"throttle_min_ms"`
	ThrottleMaxMs  int    `json:"throttle_max_ms"`
	BrowserHeaders bool   `json:"browser_headers"`
	DumpDir        string `json:"dump_dir"`
}

func readConfig() Config {
	cfg, err := configutil.ReadConfig[Config]("echo.json5")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to read config", err)
	}

	if cfg.ResultsDir == "" {
		cfg.ResultsDir = "results"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "outputs"
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = ".cache/responses"
	}
	if cfg.ManifestDb == "" {
		cfg.ManifestDb = "manifest.db"
	}
	if cfg.RowCap == 0 {
		cfg.RowCap = 100000
	}
	if cfg.ThrottleMaxMs == 0 {
		cfg.ThrottleMinMs = 500
		cfg.ThrottleMaxMs = 2000
	}
	return cfg
}

func newEchoClient(cfg Config) *echo.Client {
	fetch, err := fetchutil.NewClient(fetchutil.Options{
		CacheDir:       cfg.CacheDir,
		BrowserHeaders: cfg.BrowserHeaders,
		ThrottleMinMs:  cfg.ThrottleMinMs,
		ThrottleMaxMs:  cfg.ThrottleMaxMs,
		DumpDir:        cfg.DumpDir,
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize http client", err)
	}
	return echo.NewClient(echo.ClientOptions{
		BaseUrl:       cfg.BaseUrl,
		SearchPageUrl: cfg.SearchPageUrl,
		Fetch:         fetch,
	})
}
