package ndk

// Report is the result of comparing a RecordSet against an expected schema.
// Validation never fails the pipeline itself - the caller reads the report
// and decides whether to abort.
type Report struct {
	MissingColumns    []string
	UnexpectedColumns []string
	TypeMismatches    []TypeMismatch
}

// Clean reports whether no drift was found.
func (r Report) Clean() bool {
	return len(r.MissingColumns) == 0 && len(r.UnexpectedColumns) == 0 && len(r.TypeMismatches) == 0
}

// Err returns the report as a *ValidationMismatch, or nil if it is clean.
// For callers that treat drift as fatal.
func (r Report) Err() error {
	if r.Clean() {
		return nil
	}
	return &ValidationMismatch{
		MissingColumns:    r.MissingColumns,
		UnexpectedColumns: r.UnexpectedColumns,
		TypeMismatches:    r.TypeMismatches,
	}
}

// Validate compares the record set's actual columns and values against the
// expected schema. Columns expected but absent are missing; columns present
// but not expected are unexpected; for columns present in both, every row's
// value is checked against the expected declared type (Missing is always
// legal). Output ordering follows the expected schema, then the observed
// schema, so reports are deterministic.
func Validate(rs *RecordSet, expected Schema) Report {
	rep := Report{}
	actual := rs.Schema()
	for _, c := range expected {
		if actual.Index(c.Name) < 0 {
			rep.MissingColumns = append(rep.MissingColumns, c.Name)
		}
	}
	for _, c := range actual {
		if expected.Index(c.Name) < 0 {
			rep.UnexpectedColumns = append(rep.UnexpectedColumns, c.Name)
		}
	}
	for _, c := range expected {
		if actual.Index(c.Name) < 0 {
			continue
		}
		for i := 0; i < rs.Len(); i++ {
			v := rs.Row(i)[c.Name]
			if !c.Type.Accepts(v) {
				rep.TypeMismatches = append(rep.TypeMismatches, TypeMismatch{
					Column:   c.Name,
					Declared: c.Type,
					Row:      i,
					Observed: v.Kind(),
				})
			}
		}
	}
	return rep
}
