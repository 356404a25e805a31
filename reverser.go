package bcycle

import (
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// Reverser keeps track of named route patterns and allows building URLs.
type Reverser struct {
	pats map[string][]patternPart
}

// NewReverser inits the reverser.
func NewReverser() *Reverser {
	return &Reverser{make(map[string][]patternPart)}
}

// Reverse reverses the named pattern into a url.
func (r Reverser) Reverse(name string, vals ...string) (string, error) {
	pat, ok := r.pats[name]
	if !ok {
		return "", errors.Newf("no pattern named: %q, got: %v", name, lo.Keys(r.pats))
	}

	res, err := buildPattern(pat, vals...)
	if err != nil {
		return "", errors.Wrap(err, "failed to build")
	}

	return res, nil
}

// Named is a convenience method that panics if naming the pattern fails.
func (r Reverser) Named(name, str string) string {
	str, err := r.NamedPattern(name, str)
	if err != nil {
		panic("bcycle: " + err.Error())
	}

	return str
}

// NamedPattern will parse 's' as a route pattern while returning it as well.
func (r Reverser) NamedPattern(name, str string) (string, error) {
	if _, exists := r.pats[name]; exists {
		return str, errors.Newf("pattern with name %q already exists", name)
	}

	pat, err := parsePattern(str)
	if err != nil {
		return str, errors.Wrap(err, "failed to parse pattern")
	}

	r.pats[name] = pat

	return str, nil
}

// patternPart is either a literal or, when param is set, a placeholder.
type patternPart struct {
	literal string
	param   bool
}

// parsePattern splits a route pattern in the "/items/{id}/*" form into its parts.
func parsePattern(s string) ([]patternPart, error) {
	if s == "" {
		return nil, errors.New("empty pattern")
	}

	if !strings.HasPrefix(s, "/") {
		return nil, errors.Newf("pattern %q must start with a slash", s)
	}

	var parts []patternPart
	for len(s) > 0 {
		open := strings.IndexByte(s, '{')
		if open < 0 {
			break
		}

		end, depth := -1, 0
		for i := open; i < len(s) && end < 0; i++ {
			switch s[i] {
			case '{':
				depth++
			case '}':
				if depth--; depth == 0 {
					end = i
				}
			}
		}

		if end < 0 {
			return nil, errors.Newf("unbalanced braces in pattern %q", s)
		}

		parts = append(parts, patternPart{literal: s[:open]}, patternPart{param: true})
		s = s[end+1:]
	}

	if rest, ok := strings.CutSuffix(s, "*"); ok {
		return append(parts, patternPart{literal: rest}, patternPart{param: true}), nil
	}

	return append(parts, patternPart{literal: s}), nil
}

func buildPattern(pat []patternPart, vals ...string) (string, error) {
	var b strings.Builder

	var i int
	for _, part := range pat {
		if !part.param {
			b.WriteString(part.literal)
			continue
		}

		if i >= len(vals) {
			return "", errors.Newf("not enough values, got %d", len(vals))
		}

		b.WriteString(url.PathEscape(vals[i]))
		i++
	}

	if i < len(vals) {
		return "", errors.Newf("too many values, got %d but pattern takes %d", len(vals), i)
	}

	return b.String(), nil
}
