package echo

import (
	"github.com/edgi-govdata-archiving/epa-echo/lib/fetchutil"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("lib/scrapers/echo")

const (
	DefaultBaseUrl       = "https://echodata.epa.gov/echo"
	DefaultSearchPageUrl = "https://echo.epa.gov/facilities/facility-search"
)

// Client talks to the ECHO REST services and the search site the lookup
// scripts are served from.
type Client struct {
	BaseUrl       string
	SearchPageUrl string
	Fetch         *fetchutil.Client
}

type ClientOptions struct {
	// defaults to DefaultBaseUrl
	BaseUrl string
	// defaults to DefaultSearchPageUrl
	SearchPageUrl string
	Fetch         *fetchutil.Client
}

func NewClient(opts ClientOptions) *Client {
	baseUrl := opts.BaseUrl
	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}
	searchPageUrl := opts.SearchPageUrl
	if searchPageUrl == "" {
		searchPageUrl = DefaultSearchPageUrl
	}
	return &Client{
		BaseUrl:       baseUrl,
		SearchPageUrl: searchPageUrl,
		Fetch:         opts.Fetch,
	}
}
