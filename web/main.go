package web

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/nodskit/ndk"
	"github.com/nodskit/ndk/csv"
	"github.com/nodskit/ndk/termstat"
	"github.com/pkg/errors"
)

// Main contains the configuration for fetching and summarizing records from a
// JSON web endpoint. It is wired to flags by commandeer in the cmd packages.
type Main struct {
	URL       string   `help:"Endpoint URL returning a JSON array of records."`
	Token     string   `help:"Bearer token for the endpoint."`
	TokenFile string   `help:"File containing the bearer token. Trailing newline is stripped."`
	TimeoutMS int      `help:"Request timeout in milliseconds. Required."`
	Columns   []string `help:"Declared columns as name:type pairs (string, integer, real, categorical, boolean, stringlist)."`
	Keep      []string `help:"Columns to keep in the final projection. Empty keeps all."`
	Filter    []string `help:"Query parameters as field=value pairs."`
	Strict    bool     `help:"Abort when the response drifts from the declared columns."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		TimeoutMS: 10000,
	}
}

// Run fetches the endpoint, validates the response against the declared
// columns, projects, and writes a row dump plus a summary to stdout.
func (m *Main) Run() error {
	start := time.Now()
	schema, err := csv.ParseColumns(m.Columns)
	if err != nil {
		return errors.Wrap(err, "parsing declared columns")
	}
	params, err := csv.ParseFilters(m.Filter)
	if err != nil {
		return errors.Wrap(err, "parsing filters")
	}

	opts := []Option{
		WithSchema(schema),
		WithTimeout(time.Duration(m.TimeoutMS) * time.Millisecond),
	}
	if m.Token != "" {
		opts = append(opts, WithToken(m.Token))
	}
	if m.TokenFile != "" {
		opts = append(opts, WithTokenFile(m.TokenFile))
	}
	src, err := NewSource(m.URL, opts...)
	if err != nil {
		return errors.Wrap(err, "getting source")
	}

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
