package web

import (
	"io/ioutil"
	"strings"

	"github.com/pkg/errors"
)

// LoadToken reads a single-line access credential from path. Stripping the
// trailing line terminator is this loader's job, not the transport's: a
// credential file saved with a final newline must authenticate identically to
// one saved without.
func LoadToken(path string) (string, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "reading credential file '%s'", path)
	}
	tok := strings.TrimRight(string(raw), "\r\n")
	if tok == "" {
		return "", errors.Errorf("credential file '%s' is empty", path)
	}
	return tok, nil
}

// WithTokenFile loads the credential from path at construction time and sets
// it on the source. Load failure makes NewSource fail; it is not deferred to
// the first fetch.
func WithTokenFile(path string) Option {
	return func(src *Source) {
		tok, err := LoadToken(path)
		if err != nil {
			// surfaced by NewSource's required-field checks
			src.token = ""
			src.tokenErr = err
			return
		}
		src.token = tok
	}
}
