package ndk

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"
)

// Stage is one total transformation of a RecordSet. Stages are composed by
// plain sequential application; there is no pipe operator and no magic.
type Stage func(*RecordSet) (*RecordSet, error)

// Compose chains stages left to right into a single Stage.
func Compose(stages ...Stage) Stage {
	return func(rs *RecordSet) (*RecordSet, error) {
		var err error
		for i, stage := range stages {
			rs, err = stage(rs)
			if err != nil {
				return nil, errors.Wrapf(err, "stage %d", i)
			}
		}
		return rs, nil
	}
}

// Pipeline is an explicit, by-value configuration for one
// fetch-validate-transform-project pass. There is no process-wide state
// anywhere: everything a run needs is right here, so the same Pipeline value
// can be reused across independent invocations. Runs are single-threaded and
// synchronous; each stage fully consumes its input before the next begins.
type Pipeline struct {
	Source Source

	// Expected is the schema to validate the fetched data against. Empty
	// skips validation.
	Expected Schema

	// Strict aborts the run when validation finds drift. Otherwise the
	// report is returned and the run continues.
	Strict bool

	Predicates  []Predicate
	Derivations []Derivation

	// Columns is the final projection. Empty keeps every column.
	Columns []string

	// Stats receives run counters. Nil means no stats.
	Stats Statter
}

// Result is everything a run produces: the final records, the validation
// report, and the per-row derivation errors that were isolated along the way.
type Result struct {
	Records *RecordSet
	Report  Report
	RowErrs []error
}

// Run executes the pipeline: fetch, validate, filter/derive, project.
// Transport errors abort immediately. Per-row derivation errors never abort;
// they come back aggregated in the Result. Zero fetched rows is a normal run
// over an empty set - check Records.Len, there is no "empty" error.
func (p Pipeline) Run(ctx context.Context, params map[string]string) (Result, error) {
	stats := p.Stats
	if stats == nil {
		stats = NopStatter{}
	}
	start := time.Now()

	rs, err := p.Source.Fetch(ctx, params)
	if err != nil {
		return Result{}, errors.Wrap(err, "fetching")
	}
	stats.Count("fetched", int64(rs.Len()), 1)

	res := Result{}
	if len(p.Expected) > 0 {
		res.Report = Validate(rs, p.Expected)
		if !res.Report.Clean() {
			stats.Count("validation-mismatches", 1, 1)
			if p.Strict {
				return res, res.Report.Err()
			}
			log.Printf("schema drift (continuing): %v", res.Report.Err())
		}
	}

	out, rowErrs, err := Apply(rs, p.Predicates, p.Derivations)
	if err != nil {
		return res, errors.Wrap(err, "applying transforms")
	}
	res.RowErrs = rowErrs
	stats.Count("kept", int64(out.Len()), 1)
	stats.Count("row-errors", int64(len(rowErrs)), 1)

	if len(p.Columns) > 0 {
		out, err = Project(out, p.Columns)
		if err != nil {
			return res, errors.Wrap(err, "projecting")
		}
	}
	res.Records = out
	stats.Timing("run", time.Since(start), 1)
	return res, nil
}
