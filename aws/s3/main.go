package s3

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

// Main contains the configuration for summarizing line separated JSON records
// stored in S3. It is wired to flags by commandeer in the cmd packages.
type Main struct {
	Bucket  string   `help:"S3 bucket to read objects from."`
	Region  string   `help:"AWS region of the bucket."`
	Prefix  string   `help:"Only read objects whose keys match this prefix."`
	Columns []string `help:"Declared columns as name:type pairs (string, integer, real, categorical, boolean, stringlist)."`
	Keep    []string `help:"Columns to keep in the final projection. Empty keeps all."`
	Filter  []string `help:"Load-time equality filters as field=value pairs."`
	Strict  bool     `help:"Abort when the data drifts from the declared columns."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		Region: "us-east-1",
	}
}

// Run reads the bucket, validates the records against the declared columns,
// projects, and writes a row dump plus a summary to stdout.
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

	src, err := NewSource(
		OptSrcBucket(m.Bucket),
		OptSrcRegion(m.Region),
		OptSrcPrefix(m.Prefix),
		OptSrcSchema(schema),
	)
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
