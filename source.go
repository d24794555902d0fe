package ndk

import "context"

// Source is the interface for getting raw tabular data from somewhere. The
// endpoint descriptor (URL, file set, bucket, topic) is captured when the
// source is constructed; params is an optional mapping of field name to value
// which the source passes through to the underlying system (serialized as
// query parameters for remote endpoints, applied as equality filters at load
// time for local data). A source performs no other client-side filtering.
//
// On success Fetch returns a RecordSet whose schema matches the declared
// source schema; zero matching rows is a success with an empty RecordSet,
// never an error. Transport failures return the typed errors in this package
// (ConnectionError, TimeoutError, AuthenticationError, RequestRejected). If
// ctx is canceled the fetch is abandoned and no partial RecordSet is
// returned.
type Source interface {
	Fetch(ctx context.Context, params map[string]string) (*RecordSet, error)
}

// SourceFunc wraps a bare function as a Source, like http.HandlerFunc.
type SourceFunc func(ctx context.Context, params map[string]string) (*RecordSet, error)

// Fetch implements Source.
func (f SourceFunc) Fetch(ctx context.Context, params map[string]string) (*RecordSet, error) {
	return f(ctx, params)
}

// ParamFilter builds a keep/drop predicate from textual field=value filter
// parameters, for sources which apply filters at load time. A parameter
// naming a field absent from the schema is a *RequestRejected (mirroring what
// a remote endpoint reports for an unrecognized field name), not an empty
// result. Values are compared in their Format rendering; Missing never
// matches anything.
func ParamFilter(endpoint string, schema Schema, params map[string]string) (Predicate, error) {
	for field := range params {
		if schema.Index(field) < 0 {
			return nil, &RequestRejected{
				Endpoint: endpoint,
				Params:   params,
				Status:   400,
				Message:  "unknown field name '" + field + "'",
			}
		}
	}
	if len(params) == 0 {
		return PredicateFunc(func(Row) bool { return true }), nil
	}
	return PredicateFunc(func(r Row) bool {
		for field, want := range params {
			v := r[field]
			if IsMissing(v) || Format(v) != want {
				return false
			}
		}
		return true
	}), nil
}
