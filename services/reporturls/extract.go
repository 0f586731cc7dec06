package reporturls

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/reporturls")

// ErrMissingIdentifierColumn means a dataset exposes none of the
// candidate identifier columns. Fatal when the extraction is required.
var ErrMissingIdentifierColumn = errors.New("no identifier column present")

// ErrMissingIdentifierValue means an identifier-bearing row has an
// empty identifier field. Fatal when the extraction is required.
var ErrMissingIdentifierValue = errors.New("row is missing its identifier")

// IdentifierRecord is one extracted identifier, tagged with the dataset
// it came from for diagnostics.
type IdentifierRecord struct {
	ID     string
	Source string
}

type ExtractOptions struct {
	// fail the run instead of skipping when a dataset or row has no
	// identifier
	Required bool
	// split whitespace-packed fields into one record per token
	Multiple bool
}

// Extractor streams identifiers out of every result set in a dataset
// directory, one row at a time, without ever buffering a dataset:
//
//	it, err := NewExtractor(dir, columns, opts)
//	for it.Next() {
//		rec := it.Record()
//	}
//	err = it.Err()
//
// Datasets are visited in filename order. An extractor is single use,
// it cannot be restarted mid-stream.
type Extractor struct {
	candidates []string
	opts       ExtractOptions

	files   []string
	fileIdx int

	file   *os.File
	reader *csv.Reader
	source string
	colIdx int

	pending []IdentifierRecord
	current IdentifierRecord
	err     error
}

func NewExtractor(dir string, candidates []string, opts ExtractOptions) (*Extractor, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	return &Extractor{
		candidates: candidates,
		opts:       opts,
		files:      files,
	}, nil
}

// opens the next dataset and locates the identifier column in its
// header. Returns false when every dataset has been consumed.
func (e *Extractor) nextDataset() bool {
	for e.fileIdx < len(e.files) {
		path := e.files[e.fileIdx]
		e.fileIdx++

		file, err := os.Open(path)
		if err != nil {
			e.err = err
			return false
		}
		reader := csv.NewReader(file)

		header, err := reader.Read()
		if err == io.EOF {
			// empty result set, nothing to extract
			file.Close()
			continue
		}
		if err != nil {
			file.Close()
			e.err = fmt.Errorf("read header of %s: %w", path, err)
			return false
		}

		colIdx := -1
		for _, candidate := range e.candidates {
			for i, name := range header {
				if name == candidate {
					colIdx = i
					break
				}
			}
			if colIdx >= 0 {
				break
			}
		}
		if colIdx < 0 {
			file.Close()
			if e.opts.Required {
				e.err = fmt.Errorf(
					"dataset %s has none of the columns %v: %w",
					path, e.candidates, ErrMissingIdentifierColumn,
				)
				return false
			}
			slog.Warn(
				"dataset has no identifier column, skipping",
				"dataset", filepath.Base(path),
				"candidates", e.candidates,
			)
			continue
		}

		e.file = file
		e.reader = reader
		e.source = filepath.Base(path)
		e.colIdx = colIdx
		return true
	}
	return false
}

func (e *Extractor) closeDataset() {
	if e.file != nil {
		e.file.Close()
	}
	e.file = nil
	e.reader = nil
}

// Next advances to the next identifier. It returns false at the end of
// the corpus or on error, check Err afterwards.
func (e *Extractor) Next() bool {
	if e.err != nil {
		return false
	}

	for {
		if len(e.pending) > 0 {
			e.current = e.pending[0]
			e.pending = e.pending[1:]
			return true
		}

		if e.reader == nil {
			if !e.nextDataset() {
				return false
			}
		}

		row, err := e.reader.Read()
		if err == io.EOF {
			e.closeDataset()
			continue
		}
		if err != nil {
			e.err = fmt.Errorf("read %s: %w", e.source, err)
			e.closeDataset()
			return false
		}

		value := strings.TrimSpace(row[e.colIdx])
		if value == "" {
			if e.opts.Required {
				e.err = fmt.Errorf("dataset %s: %w", e.source, ErrMissingIdentifierValue)
				e.closeDataset()
				return false
			}
			continue
		}

		if !e.opts.Multiple {
			e.current = IdentifierRecord{ID: value, Source: e.source}
			return true
		}
		for _, token := range strings.Fields(value) {
			e.pending = append(e.pending, IdentifierRecord{ID: token, Source: e.source})
		}
	}
}

func (e *Extractor) Record() IdentifierRecord {
	return e.current
}

func (e *Extractor) Err() error {
	return e.err
}
