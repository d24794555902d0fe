// ndk is the NODS Development Kit. It contains the vocabulary and helper
// functions for building small ingestion and normalization pipelines over
// naturally occurring data sources: query endpoints, CSV dumps, object
// stores, message streams, and plain in-memory tables.
//
// Every pipeline is built from the same five stages, each of which has an
// interface or a plain function in this package, with concrete source
// implementations living in sub-packages.
//
// 1. Source
//
//    An ndk.Source is at the beginning of every journey. Your data is
//    everywhere - behind rate-limited query APIs, in CSV files on disk or
//    behind URLs, in S3 buckets, on Kafka topics, hard-coded in tests.
//    Different Sources know how to talk to the various systems holding your
//    data and get it out as a RecordSet, all wrapped up behind one convenient
//    Fetch contract. A Source passes filter parameters through to the
//    underlying system (or applies them at load time for local data); it is
//    not the job of the Source to clean or reshape anything.
//
// 2. Validator
//
//    Validate compares what actually came back against the schema you
//    expected: missing columns, unexpected columns, and values which violate
//    a column's declared type. It never aborts anything itself - it hands you
//    a Report and you decide whether the drift is fatal.
//
// 3. Transformer
//
//    Apply runs filter predicates and derivation rules over a RecordSet.
//    Predicates are pure keep/drop tests applied conjunctively. Derivations
//    compute new columns in a declared order, so a later rule can read the
//    output of an earlier one. A derivation failure on one row drops that row
//    and is reported alongside the result; it never sinks the batch.
//
// 4. Projector
//
//    Project selects and reorders the final column set. Asking for a column
//    that isn't there is an error, not a silently-empty column.
//
// 5. Reporter
//
//    Summarize produces descriptive statistics for human inspection -
//    min/mean/max/sd and missingness for numeric columns, frequency tables
//    for categorical ones. Missing values are excluded from the math, never
//    imputed.
package ndk
