package bcycle

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
)

// CacheSettings configure caching for a route.
type CacheSettings struct {
	// Server enables caching of successful responses in the route's [Cache].
	Server bool
	// Client allows clients to cache responses for their ttl.
	Client bool
	// ExpiresIn is the ttl for responses that didn't set one.
	ExpiresIn time.Duration
}

// RouteSettings describe a route.
type RouteSettings struct {
	Method string
	Path   string
	Name   string
	JSONP  string
	Cache  CacheSettings
}

// Route is a resolved route: its settings and the ordered stages of its cycle.
type Route struct {
	Settings RouteSettings
	Cycle    []Stage
	Cache    Cache

	middleware []Middleware
}

// Router resolves requests into routes.
type Router interface {
	// Resolve returns the route for the request and sets its path parameters.
	Resolve(r *Request) *Route
	// NotFound returns the route for requests that match nothing.
	NotFound() *Route
}

// RouteOption configures a route.
type RouteOption func(*Route)

// WithJSONP enables JSONP responses through the given query parameter.
func WithJSONP(param string) RouteOption {
	return func(rt *Route) { rt.Settings.JSONP = param }
}

// WithCache configures caching for the route.
func WithCache(cs CacheSettings) RouteOption {
	return func(rt *Route) { rt.Settings.Cache = cs }
}

// Named names the route so it can be reversed into a url.
func Named(name string) RouteOption {
	return func(rt *Route) { rt.Settings.Name = name }
}

// WithMiddleware wraps the route handler.
func WithMiddleware(m ...Middleware) RouteOption {
	return func(rt *Route) { rt.middleware = append(rt.middleware, m...) }
}

// Mux is a [Router] on top of a chi route tree.
type Mux struct {
	tree     *chi.Mux
	routes   map[string]*Route
	reverser *Reverser
	cache    Cache
	notFound *Route
}

// NewMux creates a new Mux without a server cache.
func NewMux() *Mux {
	return NewMuxWith(nil, NewReverser())
}

// NewMuxWith creates a Mux with a cache for routes that enable server caching.
func NewMuxWith(cache Cache, reverser *Reverser) *Mux {
	m := &Mux{
		tree:     chi.NewMux(),
		routes:   map[string]*Route{},
		reverser: reverser,
		cache:    cache,
	}

	m.notFound = &Route{Settings: RouteSettings{Method: "*", Path: "/{p*}"}, Cache: cache}
	m.notFound.Cycle = DefaultCycle(m.notFound, HandlerFunc(func(context.Context, *Request) error {
		return NewError(CodeNotFound, errors.New("Not Found"))
	}))

	return m
}

// Reverse returns the url based on the name and parameter values.
func (m *Mux) Reverse(name string, vals ...string) (string, error) {
	return m.reverser.Reverse(name, vals...)
}

// HandleFunc handles the request given the pattern using a function.
func (m *Mux) HandleFunc(pattern string, handler HandlerFunc, opts ...RouteOption) {
	m.Handle(pattern, handler, opts...)
}

// Handle registers a handler for a pattern such as "GET /items/{id}". Patterns without a
// method match every method. It panics if the route is invalid.
func (m *Mux) Handle(pattern string, handler Handler, opts ...RouteOption) {
	if err := m.Build(pattern, func(*Route) (Handler, error) { return handler, nil }, opts...); err != nil {
		panic("bcycle: " + err.Error())
	}
}

// Build registers the handler that build returns for the route, build receives the configured
// route and may reject its settings.
func (m *Mux) Build(pattern string, build HandlerBuilder, opts ...RouteOption) error {
	method, path := splitPattern(pattern)

	rt := &Route{Settings: RouteSettings{Method: strings.ToLower(method), Path: path}, Cache: m.cache}
	for _, opt := range opts {
		opt(rt)
	}

	h, err := build(rt)
	if err != nil {
		return errors.Wrapf(err, "failed to build handler for %q", pattern)
	}

	rt.Cycle = DefaultCycle(rt, Wrap(h, rt.middleware...))
	return m.HandleRoute(rt)
}

// HandleRoute registers a route with a custom cycle.
func (m *Mux) HandleRoute(rt *Route) error {
	if !strings.HasPrefix(rt.Settings.Path, "/") {
		return errors.Newf("route pattern %q must start with a slash", rt.Settings.Path)
	}

	if rt.Settings.Name != "" {
		if _, err := m.reverser.NamedPattern(rt.Settings.Name, rt.Settings.Path); err != nil {
			return err
		}
	}

	method := strings.ToUpper(rt.Settings.Method)
	if method == "" {
		method = "*"
	}

	if _, exists := m.routes[method+" "+rt.Settings.Path]; exists {
		return errors.Newf("route %s %s already exists", method, rt.Settings.Path)
	}

	// the chi tree is only used for matching, the route is looked up by its pattern
	var noop http.HandlerFunc = func(http.ResponseWriter, *http.Request) {}
	if method == "*" {
		m.tree.Handle(rt.Settings.Path, noop)
	} else {
		m.tree.Method(method, rt.Settings.Path, noop)
	}

	m.routes[method+" "+rt.Settings.Path] = rt
	return nil
}

// Resolve implements [Router].
func (m *Mux) Resolve(r *Request) *Route {
	method := strings.ToUpper(r.Method)

	rctx, rt := m.find(method, r.Path)
	if rt == nil && method == http.MethodHead {
		rctx, rt = m.find(http.MethodGet, r.Path)
	}

	if rt == nil {
		return m.notFound
	}

	for i, key := range rctx.URLParams.Keys {
		r.Params[key] = rctx.URLParams.Values[i]
	}

	return rt
}

// find matches path for method, falling back to routes registered for any method.
func (m *Mux) find(method, path string) (*chi.Context, *Route) {
	rctx := chi.NewRouteContext()
	pattern := m.tree.Find(rctx, method, path)
	if pattern == "" {
		return nil, nil
	}

	if rt, ok := m.routes[method+" "+pattern]; ok {
		return rctx, rt
	}

	return rctx, m.routes["* "+pattern]
}

// NotFound implements [Router].
func (m *Mux) NotFound() *Route { return m.notFound }

// DefaultCycle returns the standard cycle for a route around handler h.
func DefaultCycle(rt *Route, h Handler) []Stage {
	var cycle []Stage
	if rt.Settings.JSONP != "" {
		cycle = append(cycle, HandlerStage(HandlerFunc(ParseJSONP)))
	}

	if rt.Settings.Cache.Server && rt.Cache != nil {
		h = Cached(rt)(h)
	}

	return append(cycle,
		ExtStage(OnPreAuth),
		ExtStage(OnPostAuth),
		ExtStage(OnPreHandler),
		HandlerStage(h),
		ExtStage(OnPostHandler),
	)
}

func splitPattern(pattern string) (method, path string) {
	pattern = strings.TrimSpace(pattern)
	if method, path, ok := strings.Cut(pattern, " "); ok {
		return method, strings.TrimSpace(path)
	}
	return "", pattern
}

var _ Router = &Mux{}
