package ndk

import (
	"fmt"
	"io"
	"math"
	"sort"
	"text/tabwriter"
)

// NumericSummary holds descriptive statistics for one numeric column.
// Missing values are excluded from every statistic - excluded, not replaced
// with zero; this is not imputation. Count is the number of values that went
// into the math.
type NumericSummary struct {
	Column  string
	Count   int
	Missing int
	Min     float64
	Max     float64
	Mean    float64
	StdDev  float64
}

// CategoryCount is one frequency-table entry.
type CategoryCount struct {
	Label string
	Count int
}

// CategoricalSummary holds the frequency table for one categorical column,
// sorted by descending count with ties broken by ascending label, so output
// is deterministic regardless of insertion order.
type CategoricalSummary struct {
	Column  string
	Missing int
	Counts  []CategoryCount
}

// Summary is a human-inspection report over a RecordSet.
type Summary struct {
	Rows        int
	Numeric     []NumericSummary
	Categorical []CategoricalSummary
}

// Summarize computes descriptive statistics for every numeric column
// (Integer, Real) and a frequency table for every categorical column
// (Categorical, Boolean; each element of a StringList column counts
// individually). Plain String columns are free text and are not summarized.
// The standard deviation is the sample standard deviation (n-1). A numeric
// column with no present values reports NaN statistics alongside its missing
// count.
func Summarize(rs *RecordSet) Summary {
	sum := Summary{Rows: rs.Len()}
	for _, c := range rs.Schema() {
		switch c.Type {
		case Integer, Real:
			sum.Numeric = append(sum.Numeric, summarizeNumeric(rs, c.Name))
		case Categorical, Boolean, StringList:
			sum.Categorical = append(sum.Categorical, summarizeCategorical(rs, c.Name))
		}
	}
	return sum
}

func summarizeNumeric(rs *RecordSet, column string) NumericSummary {
	ns := NumericSummary{Column: column, Min: math.NaN(), Max: math.NaN(), Mean: math.NaN(), StdDev: math.NaN()}
	var vals []float64
	for i := 0; i < rs.Len(); i++ {
		v := rs.Row(i)[column]
		if IsMissing(v) {
			ns.Missing++
			continue
		}
		switch v := v.(type) {
		case I:
			vals = append(vals, float64(v))
		case F:
			vals = append(vals, float64(v))
		}
	}
	ns.Count = len(vals)
	if len(vals) == 0 {
		return ns
	}
	min, max, total := vals[0], vals[0], 0.0
	for _, v := range vals {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		total += v
	}
	mean := total / float64(len(vals))
	ns.Min, ns.Max, ns.Mean = min, max, mean
	if len(vals) < 2 {
		ns.StdDev = 0
		return ns
	}
	sq := 0.0
	for _, v := range vals {
		d := v - mean
		sq += d * d
	}
	ns.StdDev = math.Sqrt(sq / float64(len(vals)-1))
	return ns
}

func summarizeCategorical(rs *RecordSet, column string) CategoricalSummary {
	cs := CategoricalSummary{Column: column}
	counts := make(map[string]int)
	for i := 0; i < rs.Len(); i++ {
		v := rs.Row(i)[column]
		if IsMissing(v) {
			cs.Missing++
			continue
		}
		if l, ok := v.(Strings); ok {
			for _, s := range l {
				counts[s]++
			}
			continue
		}
		counts[Format(v)]++
	}
	for label, n := range counts {
		cs.Counts = append(cs.Counts, CategoryCount{Label: label, Count: n})
	}
	sort.Slice(cs.Counts, func(i, j int) bool {
		if cs.Counts[i].Count != cs.Counts[j].Count {
			return cs.Counts[i].Count > cs.Counts[j].Count
		}
		return cs.Counts[i].Label < cs.Counts[j].Label
	})
	return cs
}

// Render writes the summary as plain text tables. Formatting here is purely
// presentational; the numbers live in the Summary itself.
func (s Summary) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "rows\t%d\n", s.Rows)
	if len(s.Numeric) > 0 {
		fmt.Fprintln(tw, "column\tcount\tmissing\tmin\tmax\tmean\tsd")
		for _, ns := range s.Numeric {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%g\t%g\t%g\t%g\n",
				ns.Column, ns.Count, ns.Missing, ns.Min, ns.Max, ns.Mean, ns.StdDev)
		}
	}
	for _, cs := range s.Categorical {
		fmt.Fprintf(tw, "%s (missing %d)\tcount\n", cs.Column, cs.Missing)
		for _, cc := range cs.Counts {
			fmt.Fprintf(tw, "  %s\t%d\n", cc.Label, cc.Count)
		}
	}
	return tw.Flush()
}

// RenderRecords writes the record set as a plain text table, for eyeballing
// small results.
func RenderRecords(w io.Writer, rs *RecordSet) error {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	names := rs.Schema().Names()
	for i, n := range names {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, n)
	}
	fmt.Fprintln(tw)
	for i := 0; i < rs.Len(); i++ {
		row := rs.Row(i)
		for j, n := range names {
			if j > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, Format(row[n]))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
