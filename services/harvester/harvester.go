package harvester

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/edgi-govdata-archiving/epa-echo/lib/scrapers/echo"
	"github.com/edgi-govdata-archiving/epa-echo/services/harvester/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/harvester")

const (
	OutcomeSuccess        = "success"
	OutcomeOversized      = "oversized"
	OutcomeUpstreamError  = "upstream_error"
	OutcomeTransportError = "transport_error"
)

// Harvester resolves one search category into a directory of result
// set files, one per partition leaf. Branch failures are logged and
// abandoned, they never abort siblings or the run.
type Harvester struct {
	client   *echo.Client
	manifest *db.Queries

	resultsDir string
	rowCap     int
	qcolumns   string

	lookups  echo.Lookups
	refiners []Refiner
}

type Options struct {
	Client   *echo.Client
	Manifest *db.Queries

	ResultsDir string
	RowCap     int
	// comma-joined column ids, computed once per run and shared by
	// every request, refined retries never re-accumulate it
	Qcolumns string
	Lookups  echo.Lookups
}

func New(opts Options) *Harvester {
	return &Harvester{
		client:     opts.Client,
		manifest:   opts.Manifest,
		resultsDir: opts.ResultsDir,
		rowCap:     opts.RowCap,
		qcolumns:   opts.Qcolumns,
		lookups:    opts.Lookups,
		refiners: []Refiner{
			CountyRefiner(opts.Lookups.Counties),
		},
	}
}

// Run harvests every given category, one state root at a time. States
// are independent, a failed state never affects the next.
func (h *Harvester) Run(ctx context.Context, categories []echo.Category) error {
	ctx, span := tracer.Start(ctx, "harvester:Run")
	defer span.End()

	for _, category := range categories {
		slog.Info("harvesting category", "category", category.Name)
		for _, state := range h.lookups.States {
			if err := ctx.Err(); err != nil {
				return err
			}
			h.partition(ctx, category, Key{}.With(DimState, state))
		}
	}
	return nil
}

func (h *Harvester) request(category echo.Category, key Key) echo.SearchRequest {
	req := echo.SearchRequest{
		Media:    category.Media,
		Qcolumns: h.qcolumns,
		RowCap:   h.rowCap,
	}
	req.State, _ = key.Bound(DimState)
	req.County, _ = key.Bound(DimCounty)
	return req
}

// partition issues the key's query and either materializes the result
// set or fans out one dimension narrower. Recursion depth is bounded by
// the refiner list, each level strictly consumes a dimension.
func (h *Harvester) partition(ctx context.Context, category echo.Category, key Key) {
	ctx, span := tracer.Start(ctx, "harvester:partition")
	defer span.End()
	span.SetAttributes(
		attribute.String("category", category.Name),
		attribute.String("key", key.String()),
	)

	result, err := h.client.Search(ctx, h.request(category, key))

	var upstream *echo.UpstreamError
	switch {
	case errors.Is(err, echo.ErrRowLimitExceeded):
		children := h.refine(key)
		if children == nil {
			slog.Warn(
				"partition exceeds row cap and cannot be refined further, abandoning",
				"category", category.Name,
				"key", key.String(),
			)
			span.SetStatus(codes.Error, "irreducibly oversized partition")
			h.record(ctx, category, key, db.Partition{Outcome: OutcomeOversized})
			return
		}
		slog.Info(
			"row cap exceeded, refining partition",
			"category", category.Name,
			"key", key.String(),
			"children", len(children),
		)
		for _, child := range children {
			h.partition(ctx, category, child)
		}

	case errors.As(err, &upstream):
		slog.Warn(
			"upstream error, abandoning branch",
			"category", category.Name,
			"key", key.String(),
			"err", upstream.Message,
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream error")
		h.record(ctx, category, key, db.Partition{Outcome: OutcomeUpstreamError})

	case err != nil:
		slog.Warn(
			"transport failure, abandoning branch",
			"category", category.Name,
			"key", key.String(),
			"err", err,
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		h.record(ctx, category, key, db.Partition{Outcome: OutcomeTransportError})

	default:
		h.materialize(ctx, category, key, result)
	}
}

// refine returns the children of the first applicable refiner, or nil
// when every dimension is already bound.
func (h *Harvester) refine(key Key) []Key {
	for _, refiner := range h.refiners {
		children := refiner(key)
		if children != nil {
			return children
		}
	}
	return nil
}

// materialize downloads a successful query's result set and writes it
// verbatim, overwriting any previous run's file for the same key.
func (h *Harvester) materialize(ctx context.Context, category echo.Category, key Key, result echo.SearchResult) {
	ctx, span := tracer.Start(ctx, "harvester:materialize")
	defer span.End()
	span.SetAttributes(
		attribute.String("key", key.String()),
		attribute.String("query_id", result.QueryID),
	)

	body, err := h.client.Download(ctx, result.QueryID, h.qcolumns)
	if err != nil {
		slog.Warn(
			"failed to download result set, abandoning branch",
			"category", category.Name,
			"key", key.String(),
			"err", err,
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "download failed")
		h.record(ctx, category, key, db.Partition{Outcome: OutcomeTransportError})
		return
	}

	dir := filepath.Join(h.resultsDir, category.Name)
	err = os.MkdirAll(dir, 0777)
	if err == nil {
		err = os.WriteFile(filepath.Join(dir, key.Name("-")+".csv"), body, 0644)
	}
	if err != nil {
		slog.Error(
			"failed to write result set",
			"category", category.Name,
			"key", key.String(),
			"err", err,
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		return
	}

	slog.Info(
		"materialized result set",
		"category", category.Name,
		"key", key.String(),
		"rows", result.Rows,
	)
	h.record(ctx, category, key, db.Partition{
		Outcome:  OutcomeSuccess,
		QueryID:  result.QueryID,
		RowCount: int64(result.Rows),
		File:     filepath.Join(dir, key.Name("-")+".csv"),
	})
}

func (h *Harvester) record(ctx context.Context, category echo.Category, key Key, p db.Partition) {
	if h.manifest == nil {
		return
	}
	p.Category = category.Name
	p.Key = key.Name("-")
	p.FetchedAt = time.Now().Unix()
	err := h.manifest.RecordPartition(ctx, p)
	if err != nil {
		slog.Warn("failed to record manifest entry", "key", p.Key, "err", err)
	}
}
