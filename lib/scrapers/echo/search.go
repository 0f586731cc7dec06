package echo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// the exact message the upstream emits when a query overflows its row
// cap. this is a fragile string-match contract: if ECHO ever rewords it,
// row-limit overflows will classify as plain upstream errors and
// partitioning stops refining. locked down by a fixture in search_test.
const rowLimitMessage = "Queryset limit exceeded"

// ErrRowLimitExceeded means the query matched more rows than the
// upstream will return, the query must be partitioned further.
var ErrRowLimitExceeded = errors.New("queryset row limit exceeded")

// UpstreamError is an application-level error reported inside an
// otherwise successful response. Partitioning cannot recover these.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: %s", e.Message)
}

// SearchRequest is one attempt against the facility search endpoint.
// Refinement never mutates a request, a retry builds a new one with one
// more dimension bound.
type SearchRequest struct {
	// the p_med search-type value, always required
	Media string
	State string
	// empty until a state overflows and the branch refines
	County string
	// comma-joined column ids, computed once per run
	Qcolumns string
	// the responseset cap advertised to the upstream
	RowCap int
}

func (r SearchRequest) form() url.Values {
	form := url.Values{}
	form.Set("output", "JSON")
	form.Set("p_med", r.Media)
	form.Set("p_st", r.State)
	if r.County != "" {
		form.Set("p_co", r.County)
	}
	form.Set("qcolumns", r.Qcolumns)
	form.Set("responseset", strconv.Itoa(r.RowCap))
	return form
}

type SearchResult struct {
	QueryID string
	Rows    int
}

type searchResponse struct {
	Results struct {
		Error *struct {
			ErrorMessage string `json:"ErrorMessage"`
		} `json:"Error"`
		QueryID   string `json:"QueryID"`
		QueryRows string `json:"QueryRows"`
	} `json:"Results"`
}

// Search issues the request and classifies the response. The error is
// nil on success, ErrRowLimitExceeded when the row cap overflowed, an
// *UpstreamError for application-level failures and anything else for
// transport failures.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	ctx, span := tracer.Start(ctx, "client:Search")
	defer span.End()
	span.SetAttributes(
		attribute.String("state", req.State),
		attribute.String("county", req.County),
	)

	status, body, err := c.Fetch.Post(ctx, c.BaseUrl+"/echo_rest_services.get_facilities", req.form())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		return SearchResult{}, fmt.Errorf("facility search: %w", err)
	}
	if status != 200 {
		err = &UpstreamError{Message: fmt.Sprintf("facility search returned status %d", status)}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return SearchResult{}, err
	}

	var parsed searchResponse
	err = json.Unmarshal(body, &parsed)
	if err != nil {
		err = &UpstreamError{Message: fmt.Sprintf("malformed search response: %s", err)}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return SearchResult{}, err
	}

	if parsed.Results.Error != nil && parsed.Results.Error.ErrorMessage != "" {
		msg := parsed.Results.Error.ErrorMessage
		if strings.HasPrefix(msg, rowLimitMessage) {
			span.AddEvent("row limit exceeded")
			return SearchResult{}, ErrRowLimitExceeded
		}
		err = &UpstreamError{Message: msg}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return SearchResult{}, err
	}

	if parsed.Results.QueryID == "" {
		err = &UpstreamError{Message: "search response has no QueryID"}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return SearchResult{}, err
	}

	rows, _ := strconv.Atoi(parsed.Results.QueryRows)
	return SearchResult{QueryID: parsed.Results.QueryID, Rows: rows}, nil
}

// Download fetches the tabular result set of a successful query.
func (c *Client) Download(ctx context.Context, queryID, qcolumns string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "client:Download")
	defer span.End()
	span.SetAttributes(attribute.String("query_id", queryID))

	query := url.Values{}
	query.Set("output", "CSV")
	query.Set("qid", queryID)
	query.Set("qcolumns", qcolumns)

	body, err := c.Fetch.Get(ctx, c.BaseUrl+"/echo_rest_services.get_download?"+query.Encode())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to download result set")
		return nil, fmt.Errorf("download qid %s: %w", queryID, err)
	}
	return body, nil
}
