package bcycle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
)

// Variety describes what kind of payload a response carries.
type Variety string

const (
	VarietyPlain  Variety = "plain"
	VarietyJSON   Variety = "json"
	VarietyStream Variety = "stream"
	VarietyError  Variety = "error"
	VarietyClosed Variety = "closed"
)

// Response is the response that a request will reply with.
type Response struct {
	variety     Variety
	code        int
	header      http.Header
	payload     []byte
	stream      io.ReadCloser
	source      any
	err         error
	ttl         time.Duration
	contentType string
	passThrough bool
	takeover    bool
}

// Variety returns how the response is written.
func (res *Response) Variety() Variety { return res.variety }

// StatusCode returns the http status code.
func (res *Response) StatusCode() int { return res.code }

// ContentType returns the media type that is written as the Content-Type header.
func (res *Response) ContentType() string { return res.contentType }

// TTL returns how long the response may be cached, zero means not at all.
func (res *Response) TTL() time.Duration { return res.ttl }

// Payload returns the buffered body, it is nil for streams.
func (res *Response) Payload() []byte { return res.payload }

// Err returns the error an error response was generated from.
func (res *Response) Err() error { return res.err }

// IsError reports whether the response has the error variety.
func (res *Response) IsError() bool { return res.variety == VarietyError }

// PassThrough reports whether upstream headers are forwarded.
func (res *Response) PassThrough() bool { return res.passThrough }

// Source returns the value the response was generated from, for example the upstream
// *http.Response of a proxied request.
func (res *Response) Source() any { return res.source }

// Header returns the headers that will be written with the response.
func (res *Response) Header() http.Header {
	if res.header == nil {
		res.header = http.Header{}
	}
	return res.header
}

// SetCode sets the status code.
func (res *Response) SetCode(code int) *Response {
	res.code = code
	return res
}

// SetType sets the content type.
func (res *Response) SetType(ct string) *Response {
	res.contentType = ct
	return res
}

// SetTTL sets how long the response may be cached.
func (res *Response) SetTTL(ttl time.Duration) *Response {
	res.ttl = ttl
	return res
}

// SetPassThrough marks that an upstream response's headers are forwarded as-is.
func (res *Response) SetPassThrough(v bool) *Response {
	res.passThrough = v
	return res
}

// Takeover makes the response final: the remaining stages of the cycle are skipped.
func (res *Response) Takeover() *Response {
	res.takeover = true
	return res
}

// OverrideValue is returned from a stage or onPreResponse extension to replace the current
// response with Value.
type OverrideValue struct{ Value any }

func (o *OverrideValue) Error() string { return "bcycle: response override" }

// Override returns an error that, when returned from a stage or onPreResponse extension,
// replaces the current response with one generated from v.
func Override(v any) error {
	return &OverrideValue{Value: v}
}

// ResponseBuilder turns reply values into responses and writes them.
type ResponseBuilder interface {
	// Generate turns a reply value into a response.
	Generate(v any, r *Request) *Response
	// Prepare finalizes a response before it is sent. A nil response is an implementation
	// error of the route.
	Prepare(ctx context.Context, res *Response, r *Request) *Response
	// Respond writes the response to the transport.
	Respond(ctx context.Context, res *Response, r *Request) error
}

// Responder is the default [ResponseBuilder].
type Responder struct{}

// NewResponder inits the default response builder.
func NewResponder() *Responder { return &Responder{} }

var _ ResponseBuilder = &Responder{}

// Generate implements [ResponseBuilder].
func (rb *Responder) Generate(v any, r *Request) *Response {
	switch v := v.(type) {
	case *Response:
		return v
	case *OverrideValue:
		return rb.Generate(v.Value, r)
	case error:
		return generateError(v)
	case *http.Response:
		return &Response{
			variety:     VarietyStream,
			code:        v.StatusCode,
			stream:      v.Body,
			source:      v,
			contentType: v.Header.Get("Content-Type"),
		}
	case nil:
		return &Response{variety: VarietyPlain, code: http.StatusOK}
	case string:
		return &Response{
			variety: VarietyPlain, code: http.StatusOK, source: v,
			payload: []byte(v), contentType: "text/html; charset=utf-8",
		}
	case []byte:
		return &Response{
			variety: VarietyPlain, code: http.StatusOK, source: v,
			payload: v, contentType: "application/octet-stream",
		}
	case io.Reader:
		rc, ok := v.(io.ReadCloser)
		if !ok {
			rc = io.NopCloser(v)
		}
		return &Response{
			variety: VarietyStream, code: http.StatusOK, source: v,
			stream: rc, contentType: "application/octet-stream",
		}
	default:
		payload, err := json.Marshal(v)
		if err != nil {
			return generateError(errors.NewAssertionErrorWithWrappedErrf(err,
				"bcycle: reply value of type %T is not json encodable", v))
		}
		return &Response{
			variety: VarietyJSON, code: http.StatusOK, source: v,
			payload: payload, contentType: "application/json; charset=utf-8",
		}
	}
}

type errorBody struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
}

func generateError(err error) *Response {
	res := &Response{variety: VarietyError, code: StatusOf(err), err: err, source: err}

	herr, ok := asError(err)
	if ok && herr.IsPassThrough() {
		res.payload, res.contentType = herr.Payload(), herr.ContentType()
		return res
	}

	body := errorBody{StatusCode: res.code, Error: http.StatusText(res.code)}
	switch {
	case res.code == http.StatusInternalServerError:
		body.Message = "An internal server error occurred"
	case ok && herr.err != nil:
		body.Message = herr.err.Error()
	case !ok:
		body.Message = err.Error()
	}

	res.payload, _ = json.Marshal(body)
	res.contentType = "application/json; charset=utf-8"
	return res
}

// Prepare implements [ResponseBuilder].
func (rb *Responder) Prepare(_ context.Context, res *Response, r *Request) *Response {
	if res == nil {
		res = generateError(errors.AssertionFailedf(
			"bcycle: cycle of route %q completed without a response", r.Route().Settings.Path))
	}

	hdr := res.Header()
	if src, ok := res.source.(*http.Response); ok && res.passThrough {
		for k, vs := range src.Header {
			if isHopByHop(k) {
				continue
			}
			hdr[k] = append([]string(nil), vs...)
		}
	}

	if r.JSONP != "" && res.variety == VarietyJSON {
		res.payload = fmt.Appendf(nil, "%s(%s);", r.JSONP, res.payload)
		res.contentType = "text/javascript; charset=utf-8"
	}

	if res.contentType != "" {
		hdr.Set("Content-Type", res.contentType)
	}

	if hdr.Get("Cache-Control") == "" {
		if res.code == http.StatusOK && res.ttl > 0 && r.Route().Settings.Cache.Client {
			hdr.Set("Cache-Control", fmt.Sprintf("max-age=%d, must-revalidate", int(res.ttl.Seconds())))
		} else {
			hdr.Set("Cache-Control", "no-cache")
		}
	}

	return res
}

// Respond implements [ResponseBuilder].
func (rb *Responder) Respond(_ context.Context, res *Response, r *Request) error {
	w := r.Raw().Res
	for k, vs := range res.Header() {
		w.Header()[k] = vs
	}

	for _, c := range r.States() {
		http.SetCookie(w, c)
	}

	if res.stream != nil {
		defer res.stream.Close()
	}

	w.WriteHeader(res.code)
	if r.Method == "head" {
		return nil
	}

	if res.stream != nil {
		if _, err := io.Copy(w, res.stream); err != nil {
			return errors.Wrap(err, "failed to copy response stream")
		}
		return nil
	}

	if _, err := w.Write(res.payload); err != nil {
		return errors.Wrap(err, "failed to write response payload")
	}

	return nil
}

func isHopByHop(name string) bool {
	switch http.CanonicalHeaderKey(name) {
	case "Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
		"Te", "Trailer", "Transfer-Encoding", "Upgrade":
		return true
	default:
		return false
	}
}
