// Package proxy provides a route handler that forwards requests to an upstream server.
package proxy

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/advdv/bcycle"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"golang.org/x/net/http/httpguts"
)

// TTLUpstream derives the response ttl from the upstream Cache-Control max-age.
const TTLUpstream = "upstream"

// DefaultTimeout bounds the wait for upstream response headers.
const DefaultTimeout = 3 * time.Minute

// MapURIFunc maps a request onto the upstream uri and optional extra headers.
type MapURIFunc func(ctx context.Context, r *bcycle.Request) (string, http.Header, error)

// PostResponseFunc handles a buffered upstream response. It replies on r or returns an error.
type PostResponseFunc func(
	ctx context.Context, r *bcycle.Request, s *Settings, res *http.Response, payload string, ttl time.Duration,
) error

// Options configure the proxy handler.
type Options struct {
	// Protocol, Host and Port address the upstream when no URI or MapURI is given.
	Protocol string
	Host     string
	Port     int
	// URI is an upstream uri template with {protocol}, {host}, {port} and {path} placeholders.
	URI string
	// MapURI maps requests onto upstream uris, it takes precedence over URI.
	MapURI MapURIFunc
	// PassThrough forwards inbound headers upstream and upstream headers downstream.
	PassThrough bool
	// XForward appends the X-Forwarded-For, -Port and -Proto headers.
	XForward bool
	// TTL is either empty or [TTLUpstream].
	TTL string
	// Redirects is the number of redirects that are followed.
	Redirects int
	// Timeout for receiving the upstream response headers, defaults to [DefaultTimeout].
	Timeout time.Duration
	// RejectUnauthorized verifies upstream tls certificates, defaults to true.
	RejectUnauthorized *bool
	// PostResponse handles buffered upstream responses, see [DefaultPostResponse].
	PostResponse PostResponseFunc
}

// Settings are the options resolved for a route.
type Settings struct {
	Options

	mapURI       MapURIFunc
	postResponse PostResponseFunc
	parsed       bool
}

// Parsed reports whether upstream responses are buffered and handed to the post-response
// function instead of being streamed.
func (s *Settings) Parsed() bool { return s.parsed }

// Handler forwards requests upstream.
type Handler struct {
	route    *bcycle.Route
	settings *Settings
	client   Client
}

// New validates opts against the route and inits the proxy handler.
func New(route *bcycle.Route, opts Options, client Client) (*Handler, error) {
	cache := route.Settings.Cache
	switch {
	case client == nil:
		return nil, errors.New("proxy: no client configured")
	case opts.PassThrough && cache.Server:
		return nil, errors.New("proxy: cannot use pass-through proxy mode with caching")
	case opts.TTL != "" && !cache.Server && !cache.Client:
		return nil, errors.New("proxy: cannot set proxy ttl without caching")
	case opts.TTL != "" && opts.TTL != TTLUpstream:
		return nil, errors.Newf("proxy: unsupported ttl policy %q", opts.TTL)
	case opts.MapURI == nil && opts.URI == "" && opts.Host == "":
		return nil, errors.New("proxy: one of host, uri or uri mapper is required")
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	if opts.RejectUnauthorized == nil {
		opts.RejectUnauthorized = lo.ToPtr(true)
	}

	s := &Settings{
		Options:      opts,
		mapURI:       opts.MapURI,
		postResponse: opts.PostResponse,
		parsed:       opts.PostResponse != nil || cache.Server,
	}

	if s.mapURI == nil {
		s.mapURI = MapURI(opts)
	}

	if s.postResponse == nil {
		s.postResponse = DefaultPostResponse
	}

	return &Handler{route: route, settings: s, client: client}, nil
}

// Builder returns a route handler builder for [bcycle.Mux.Build].
func Builder(opts Options, client Client) bcycle.HandlerBuilder {
	return func(route *bcycle.Route) (bcycle.Handler, error) {
		return New(route, opts, client)
	}
}

// Settings returns the resolved settings.
func (h *Handler) Settings() *Settings { return h.settings }

// ServeCycle implements [bcycle.Handler].
func (h *Handler) ServeCycle(ctx context.Context, r *bcycle.Request) error {
	uri, extra, err := h.settings.mapURI(ctx, r)
	if err != nil {
		return err
	}

	inbound := r.Raw().Req

	headers := http.Header{}
	if h.settings.PassThrough {
		headers = inbound.Header.Clone()
		headers.Del("Host")
	}

	for name, vals := range extra {
		if !httpguts.ValidHeaderFieldName(name) {
			return errors.AssertionFailedf("proxy: uri mapper returned invalid header name %q", name)
		}

		for _, v := range vals {
			if !httpguts.ValidHeaderFieldValue(v) {
				return errors.AssertionFailedf("proxy: uri mapper returned invalid value for header %q", name)
			}
		}

		headers[http.CanonicalHeaderKey(name)] = vals
	}

	if h.settings.XForward {
		appendForwarded(headers, "X-Forwarded-For", r.Info.RemoteAddress)
		appendForwarded(headers, "X-Forwarded-Port", r.Info.RemotePort)
		appendForwarded(headers, "X-Forwarded-Proto", lo.CoalesceOrEmpty(h.settings.Protocol, r.Server().Protocol))
	}

	if h.settings.parsed {
		headers.Del("Accept-Encoding")
	}

	if ct := inbound.Header.Get("Content-Type"); ct != "" {
		headers.Set("Content-Type", ct)
	}

	var body io.Reader
	length := inbound.ContentLength
	switch {
	case r.RawPayload != nil:
		body, length = bytes.NewReader(r.RawPayload), int64(len(r.RawPayload))
	case inbound.Body != nil && inbound.Body != http.NoBody:
		body = inbound.Body
	}

	res, err := h.client.Request(ctx, r.Method, uri, RequestOptions{
		Headers:            headers,
		Body:               body,
		ContentLength:      length,
		Redirects:          h.settings.Redirects,
		Timeout:            h.settings.Timeout,
		RejectUnauthorized: *h.settings.RejectUnauthorized,
	})
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			return bcycle.NewError(bcycle.CodeGatewayTimeout, err)
		}
		return bcycle.NewError(bcycle.CodeBadGateway, err)
	}

	var ttl time.Duration
	if h.settings.TTL == TTLUpstream {
		if cc := res.Header.Get("Cache-Control"); cc != "" {
			ttl, _ = h.client.ParseCacheControl(cc)
		}
	}

	r.Log([]string{"proxy", "upstream"}, map[string]any{"uri": uri, "status": res.StatusCode, "ttl": ttl.String()})

	if !h.settings.parsed {
		resp := r.Reply(res).SetPassThrough(h.settings.PassThrough)
		if ttl > 0 {
			resp.SetTTL(ttl)
		}
		return nil
	}

	payload, err := h.client.Parse(res)
	if err != nil {
		return bcycle.NewError(bcycle.CodeBadGateway, err)
	}

	return h.settings.postResponse(ctx, r, h.settings, res, string(payload), ttl)
}

// DefaultPostResponse replies with the upstream payload, or fails with a pass-through error
// when the upstream did not respond with a 200.
func DefaultPostResponse(
	_ context.Context, r *bcycle.Request, _ *Settings, res *http.Response, payload string, ttl time.Duration,
) error {
	ct := res.Header.Get("Content-Type")
	if res.StatusCode != http.StatusOK {
		return bcycle.PassThrough(res.StatusCode, []byte(payload), ct)
	}

	resp := r.Reply(payload)
	if ttl > 0 {
		resp.SetTTL(ttl)
	}

	if ct != "" {
		resp.SetType(ct)
	}

	return nil
}

// appendForwarded folds every line of key into one comma-joined chain that ends with value.
func appendForwarded(h http.Header, key, value string) {
	hops := lo.Compact(append(h.Values(key), value))
	h.Set(key, strings.Join(hops, ","))
}

var _ bcycle.Handler = &Handler{}
