package reporturls

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Generator writes one URL list per report type, reading the harvested
// corpus under ResultsDir and producing <OutputDir>/<report>.txt.
type Generator struct {
	ResultsDir string
	OutputDir  string
}

// Generate drives the extractor to completion and writes one formatted
// URL per identifier, in dataset order. The output file is truncated at
// the start so re-runs are idempotent. Returns the number of URLs
// written.
func (g Generator) Generate(ctx context.Context, report ReportType) (int, error) {
	ctx, span := tracer.Start(ctx, "generator:Generate")
	defer span.End()
	span.SetAttributes(attribute.String("report", report.Name))

	extractor, err := NewExtractor(
		filepath.Join(g.ResultsDir, report.Category),
		report.Columns,
		ExtractOptions{Required: report.Required, Multiple: report.Multiple},
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open corpus")
		return 0, err
	}

	err = os.MkdirAll(g.OutputDir, 0777)
	if err != nil {
		return 0, err
	}
	outPath := filepath.Join(g.OutputDir, report.Name+".txt")
	out, err := os.Create(outPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create output list")
		return 0, err
	}
	defer out.Close()
	writer := bufio.NewWriter(out)

	count := 0
	for extractor.Next() {
		_, err = fmt.Fprintf(writer, report.UrlTemplate+"\n", extractor.Record().ID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to append url line")
			return count, err
		}
		count++
	}
	if err := extractor.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction failed")
		return count, err
	}

	err = writer.Flush()
	if err != nil {
		return count, err
	}

	slog.Info("wrote url list", "report", report.Name, "urls", count, "file", outPath)
	return count, nil
}
