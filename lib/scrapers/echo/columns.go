package echo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/codes"
)

// column ids the report pipelines depend on but the metadata service
// does not advertise
var undocumentedColumns = []string{"16", "24", "60", "205", "206"}

type metadataResponse struct {
	Results struct {
		ResultColumns []struct {
			ColumnID   string `json:"ColumnID"`
			ObjectName string `json:"ObjectName"`
		} `json:"ResultColumns"`
	} `json:"Results"`
}

// FetchColumns discovers every reportable column id from the metadata
// service, unions in the undocumented ids and returns them de-duplicated
// as the comma-joined qcolumns value reused by every query.
func (c *Client) FetchColumns(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "client:FetchColumns")
	defer span.End()

	body, err := c.Fetch.Get(ctx, c.BaseUrl+"/echo_rest_services.metadata?output=JSON")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch metadata")
		return "", err
	}

	var meta metadataResponse
	err = json.Unmarshal(body, &meta)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse metadata")
		return "", fmt.Errorf("parse metadata: %w", err)
	}
	if len(meta.Results.ResultColumns) == 0 {
		err = fmt.Errorf("metadata lists no result columns: %w", ErrDiscoveryParse)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	seen := map[string]bool{}
	var ids []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}
	for _, col := range meta.Results.ResultColumns {
		add(col.ColumnID)
	}
	for _, id := range undocumentedColumns {
		add(id)
	}

	return strings.Join(ids, ","), nil
}
