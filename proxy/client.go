package proxy

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/cockroachdb/errors"
	"github.com/pquerna/cachecontrol/cacheobject"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// ErrTimeout marks upstream requests that did not receive response headers in time.
var ErrTimeout = errors.New("upstream timeout")

// RequestOptions configure a single upstream request.
type RequestOptions struct {
	Headers            http.Header
	Body               io.Reader
	ContentLength      int64
	Redirects          int
	Timeout            time.Duration
	RejectUnauthorized bool
}

// Client performs upstream requests for the proxy handler.
type Client interface {
	// Request sends the request and returns the response with its body unread.
	Request(ctx context.Context, method, uri string, opts RequestOptions) (*http.Response, error)
	// Parse reads and closes the response body.
	Parse(res *http.Response) ([]byte, error)
	// ParseCacheControl returns the max-age of a Cache-Control header, if any.
	ParseCacheControl(header string) (time.Duration, bool)
}

// HTTPClient is the default [Client]. Outbound requests are traced and response bodies are
// never decompressed, so they can be forwarded verbatim.
type HTTPClient struct {
	secure   http.RoundTripper
	insecure http.RoundTripper
}

// NewHTTPClient inits the client with transports instrumented with OpenTelemetry tracing.
// The TracerProvider and Propagator are explicitly injected to avoid global state.
func NewHTTPClient(tp trace.TracerProvider, prop propagation.TextMapPropagator) *HTTPClient {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.DisableCompression = true

	insecure := base.Clone()
	insecure.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec

	return &HTTPClient{
		secure:   NewHTTPTransport(base, tp, prop),
		insecure: NewHTTPTransport(insecure, tp, prop),
	}
}

// NewHTTPTransport wraps base with OpenTelemetry tracing.
func NewHTTPTransport(base http.RoundTripper, tp trace.TracerProvider, prop propagation.TextMapPropagator) http.RoundTripper {
	return otelhttp.NewTransport(base,
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithPropagators(prop),
	)
}

// Request implements [Client]. The timeout only bounds the wait for the response headers, the
// body can be read for as long as ctx allows. Closing the body releases the request.
func (c *HTTPClient) Request(ctx context.Context, method, uri string, opts RequestOptions) (*http.Response, error) {
	ctx, cancel := context.WithCancel(ctx)

	rb := requests.URL(uri).Method(strings.ToUpper(method))
	for name, vals := range opts.Headers {
		rb.Header(name, vals...)
	}

	if opts.Body != nil {
		rb.BodyReader(opts.Body)
	}

	req, err := rb.Request(ctx)
	if err != nil {
		cancel()
		return nil, errors.Wrapf(err, "failed to build upstream request for %q", uri)
	}

	if opts.Body != nil && opts.ContentLength > 0 {
		req.ContentLength = opts.ContentLength
	}

	var timedOut atomic.Bool
	if opts.Timeout > 0 {
		timer := time.AfterFunc(opts.Timeout, func() {
			timedOut.Store(true)
			cancel()
		})
		defer timer.Stop()
	}

	hc := &http.Client{
		Transport: c.secure,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) > opts.Redirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	if !opts.RejectUnauthorized {
		hc.Transport = c.insecure
	}

	res, err := hc.Do(req) //nolint:bodyclose
	if err != nil {
		cancel()
		if timedOut.Load() {
			return nil, errors.Mark(errors.Wrapf(err, "no response headers within %s", opts.Timeout), ErrTimeout)
		}
		return nil, errors.Wrapf(err, "failed to request upstream %q", uri)
	}

	res.Body = &releasingBody{ReadCloser: res.Body, release: cancel}
	return res, nil
}

// Parse implements [Client].
func (c *HTTPClient) Parse(res *http.Response) ([]byte, error) {
	defer res.Body.Close()

	var buf bytes.Buffer
	if err := requests.ToBytesBuffer(&buf)(res); err != nil {
		return nil, errors.Wrap(err, "failed to read upstream response")
	}

	return buf.Bytes(), nil
}

// ParseCacheControl implements [Client].
func (c *HTTPClient) ParseCacheControl(header string) (time.Duration, bool) {
	return ParseCacheControl(header)
}

// ParseCacheControl returns the max-age directive of a Cache-Control response header.
func ParseCacheControl(header string) (time.Duration, bool) {
	dirs, err := cacheobject.ParseResponseCacheControl(header)
	if err != nil || dirs.MaxAge < 0 {
		return 0, false
	}

	return time.Duration(dirs.MaxAge) * time.Second, true
}

type releasingBody struct {
	io.ReadCloser
	release context.CancelFunc
}

func (b *releasingBody) Close() error {
	defer b.release()
	return b.ReadCloser.Close()
}

var _ Client = &HTTPClient{}
