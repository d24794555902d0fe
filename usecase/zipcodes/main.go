// Package zipcodes is a worked example which pulls US zip code records from a
// JSON endpoint, cleans them, and prints a summary.
package zipcodes

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/nodskit/ndk"
	"github.com/nodskit/ndk/boltdb"
	"github.com/nodskit/ndk/geohash"
	"github.com/nodskit/ndk/termstat"
	"github.com/nodskit/ndk/web"
	"github.com/pkg/errors"
)

// Main holds the configuration for the zipcodes example.
type Main struct {
	URL       string `help:"Endpoint URL returning a JSON array of zip code records."`
	TokenFile string `help:"File containing a bearer token for the endpoint."`
	TimeoutMS int    `help:"Request timeout in milliseconds."`
	State     string `help:"Restrict the fetch to a single state (server side filter)."`
	MinPop    int64  `help:"Drop rows with population below this threshold."`
	Seed      int64  `help:"Seed for picking one of each row's city aliases."`
	DictPath  string `help:"Path for the bolt file backing the city id dictionary."`
	Precision uint   `help:"Geohash precision for the derived location cell."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		URL:       "http://localhost:8000/zips",
		TimeoutMS: 10000,
		MinPop:    1,
		Seed:      42,
		DictPath:  "zipcodes.bolt",
		Precision: 6,
	}
}

// Run fetches, validates, derives, and summarizes the zip code data.
func (m *Main) Run() error {
	start := time.Now()

	schema := ndk.Schema{
		{Name: "zip", Type: ndk.String},
		{Name: "city", Type: ndk.Categorical},
		{Name: "state", Type: ndk.Categorical},
		{Name: "lat", Type: ndk.Real},
		{Name: "lon", Type: ndk.Real},
		{Name: "pop", Type: ndk.Integer},
		{Name: "aliases", Type: ndk.StringList},
	}

	opts := []web.Option{
		web.WithSchema(schema),
		web.WithTimeout(time.Duration(m.TimeoutMS) * time.Millisecond),
	}
	if m.TokenFile != "" {
		opts = append(opts, web.WithTokenFile(m.TokenFile))
	}
	src, err := web.NewSource(m.URL, opts...)
	if err != nil {
		return errors.Wrap(err, "getting source")
	}

	dict, err := boltdb.NewDict(m.DictPath, "city")
	if err != nil {
		return errors.Wrap(err, "opening city dictionary")
	}
	defer dict.Close()

	minPop := m.MinPop
	pipeline := ndk.Pipeline{
		Source:   src,
		Expected: schema,
		Predicates: []ndk.Predicate{
			ndk.NotMissing("pop"),
			ndk.Where("pop", func(v ndk.Value) bool {
				n, err := ndk.AsInt(v)
				if err != nil {
					return false
				}
				i, ok := n.(ndk.I)
				return ok && int64(i) >= minPop
			}),
		},
		Derivations: []ndk.Derivation{
			ndk.Log("log_pop", "pop"),
			geohash.Derive("cell", "lat", "lon", m.Precision),
			ndk.PickOne("alias", "aliases", m.Seed),
			ndk.Encode("city_id", "city", dict, "city"),
		},
		Columns: []string{"zip", "city", "city_id", "state", "cell", "alias", "pop", "log_pop"},
		Stats:   termstat.NewCollector(os.Stderr),
	}

	params := map[string]string{}
	if m.State != "" {
		params["state"] = m.State
	}
	res, err := pipeline.Run(context.Background(), params)
	if err != nil {
		return errors.Wrap(err, "running pipeline")
	}
	for _, rerr := range res.RowErrs {
		log.Printf("dropped row: %v", rerr)
	}
	if err := ndk.Summarize(res.Records).Render(os.Stdout); err != nil {
		return errors.Wrap(err, "rendering summary")
	}
	log.Println("Done: ", time.Since(start))
	return nil
}
