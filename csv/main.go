package csv

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/nodskit/ndk"
	"github.com/nodskit/ndk/termstat"
	"github.com/pkg/errors"
)

// Main contains the configuration for cleaning and summarizing CSV data. It
// is wired to flags by commandeer in the cmd packages.
type Main struct {
	Files      []string `help:"Comma separated list of CSV files or URLs to read."`
	Columns    []string `help:"Declared columns as name:type pairs (string, integer, real, categorical, boolean, stringlist)."`
	Keep       []string `help:"Columns to keep in the final projection. Empty keeps all."`
	Filter     []string `help:"Load-time equality filters as field=value pairs."`
	MaxRetries int      `help:"Max retries per file for transient read failures."`
	Strict     bool     `help:"Abort when the data drifts from the declared columns."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		MaxRetries: 3,
	}
}

// Run reads the files, validates them against the declared columns, projects,
// and writes a row dump plus a summary to stdout.
func (m *Main) Run() error {
	start := time.Now()
	schema, err := ParseColumns(m.Columns)
	if err != nil {
		return errors.Wrap(err, "parsing declared columns")
	}
	params, err := ParseFilters(m.Filter)
	if err != nil {
		return errors.Wrap(err, "parsing filters")
	}

	src := NewSource(
		WithURLs(m.Files),
		WithSchema(schema),
		WithMaxRetries(m.MaxRetries),
	)
	pipeline := ndk.Pipeline{
		Source:   src,
		Expected: schema,
		Strict:   m.Strict,
		Columns:  m.Keep,
		Stats:    termstat.NewCollector(os.Stderr),
	}
	res, err := pipeline.Run(context.Background(), params)
	if err != nil {
		return errors.Wrap(err, "running pipeline")
	}
	for _, rerr := range res.RowErrs {
		log.Printf("dropped row: %v", rerr)
	}
	if err := ndk.RenderRecords(os.Stdout, res.Records); err != nil {
		return errors.Wrap(err, "rendering records")
	}
	if err := ndk.Summarize(res.Records).Render(os.Stdout); err != nil {
		return errors.Wrap(err, "rendering summary")
	}
	log.Println("Done: ", time.Since(start))
	return nil
}

// ParseColumns parses name:type flag pairs into a schema.
func ParseColumns(pairs []string) (ndk.Schema, error) {
	schema := make(ndk.Schema, 0, len(pairs))
	for _, pair := range pairs {
		idx := strings.LastIndex(pair, ":")
		if idx <= 0 {
			return nil, errors.Errorf("'%s' is not a name:type pair", pair)
		}
		t, err := ndk.ParseColumnType(pair[idx+1:])
		if err != nil {
			return nil, errors.Wrapf(err, "column '%s'", pair[:idx])
		}
		schema = append(schema, ndk.Column{Name: pair[:idx], Type: t})
	}
	return schema, nil
}

// ParseFilters parses field=value flag pairs into fetch params.
func ParseFilters(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		idx := strings.Index(pair, "=")
		if idx <= 0 {
			return nil, errors.Errorf("'%s' is not a field=value pair", pair)
		}
		params[pair[:idx]] = pair[idx+1:]
	}
	return params, nil
}
