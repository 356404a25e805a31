package bcycle

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	percentEncoded = regexp.MustCompile(`%[0-9a-fA-F]{2}`)

	// percent encoded characters from the unreserved set, these decode to the same resource
	unreservedEncoded = regexp.MustCompile(`%(?:2[146-9A-E]|3[\dABD]|4[\dA-F]|5[\dAF]|6[1-9A-F]|7[\dAE])`)
)

// SetURL rewrites the request url. It may only be called before routing, in an onRequest
// extension, and panics otherwise.
func (r *Request) SetURL(raw string) error {
	r.ensureAccepting("SetURL")

	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrapf(err, "failed to parse url %q", raw)
	}

	r.setURL(u)
	return nil
}

// SetMethod rewrites the request method, it is stored lowercase. It may only be called before
// routing, in an onRequest extension, and panics otherwise.
func (r *Request) SetMethod(method string) {
	r.ensureAccepting("SetMethod")
	r.Method = strings.ToLower(method)
}

func (r *Request) ensureAccepting(method string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != phaseAccepting {
		panic("bcycle: cannot call " + method + "() after the request was routed")
	}
}

func (r *Request) setURL(u *url.URL) {
	r.URL = u
	r.Query = u.Query()
	r.Path = u.EscapedPath()

	if r.Path != "" && r.engine.cfg.NormalizeRequestPath {
		r.Path = NormalizePath(r.Path)
	}
}

// NormalizePath uppercases every percent-encoded triplet and decodes the ones that encode
// unreserved characters. Reserved characters stay encoded.
func NormalizePath(path string) string {
	path = percentEncoded.ReplaceAllStringFunc(path, strings.ToUpper)
	return unreservedEncoded.ReplaceAllStringFunc(path, func(enc string) string {
		b, err := strconv.ParseUint(enc[1:], 16, 8)
		if err != nil {
			return enc
		}
		return string(rune(b))
	})
}
