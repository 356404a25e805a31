package bcycle

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

type phase int

const (
	phaseAccepting phase = iota // url and method may still be rewritten
	phaseRouting
	phaseReplied
	phaseWagging // replied, only waiting on tails
)

// Info holds connection level information about a request.
type Info struct {
	Received      time.Time
	RemoteAddress string
	RemotePort    string
	Referrer      string
	Host          string
}

// Auth holds the authentication state of a request. IsAuthenticated is only ever true
// when Credentials is set.
type Auth struct {
	IsAuthenticated bool
	Credentials     any
	Artifacts       any
	Session         any
}

// Raw holds the transport level request and response writer.
type Raw struct {
	Req *http.Request
	Res http.ResponseWriter
}

// RequestOptions configure the construction of a request.
type RequestOptions struct {
	// Credentials are pre-supplied credentials, for example from an injected request.
	Credentials any
}

// ServerInfo describes the server the engine runs as.
type ServerInfo struct {
	Protocol string
	Host     string
	Port     int
}

// Request is the per-request state that travels through the lifecycle. A request is created
// for every inbound http request and replies exactly once.
//
// The exported fields are not guarded. Only the stage that currently runs may change them, and
// a stage whose context is done no longer runs: after a server timeout the request belongs to
// the reply.
type Request struct {
	ID      string
	URL     *url.URL
	Query   url.Values
	Path    string
	Method  string
	Headers http.Header
	Info    Info
	Auth    Auth
	Session any

	// App is for application specific state, Plugins for extension state namespaced by
	// extension name.
	App     map[string]any
	Plugins map[string]any

	Pre       map[string]any
	Responses map[string]*Response

	Params     map[string]string
	RawPayload []byte
	Payload    any
	JSONP      string

	engine *Engine
	raw    Raw
	route  *Route
	timer  *time.Timer
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	phase     phase
	response  *Response
	states    map[string]*http.Cookie
	logger    []LogEntry
	tails     map[int]string
	tailIDs   int
	isDrained bool
	drained   chan struct{}
}

func newRequest(e *Engine, w http.ResponseWriter, hr *http.Request, opts RequestOptions) *Request {
	now := time.Now()

	r := &Request{
		ID:        fmt.Sprintf("%d-%d-%d", now.UnixMilli(), os.Getpid(), rand.IntN(0x10000)),
		Headers:   hr.Header,
		App:       map[string]any{},
		Plugins:   map[string]any{},
		Pre:       map[string]any{},
		Responses: map[string]*Response{},
		Params:    map[string]string{},
		Info: Info{
			Received: now,
			Referrer: lo.CoalesceOrEmpty(hr.Header.Get("Referrer"), hr.Header.Get("Referer")),
			Host:     strings.Join(strings.Fields(hr.Host), ""),
		},
		engine:  e,
		raw:     Raw{Req: hr, Res: w},
		route:   e.router.NotFound(),
		states:  map[string]*http.Cookie{},
		tails:   map[int]string{},
		drained: make(chan struct{}),
	}

	r.ctx, r.cancel = context.WithCancel(hr.Context())

	host, port, err := net.SplitHostPort(hr.RemoteAddr)
	if err != nil {
		host = hr.RemoteAddr
	}
	r.Info.RemoteAddress, r.Info.RemotePort = host, port

	u := *hr.URL
	r.setURL(&u)
	r.SetMethod(hr.Method)

	if opts.Credentials != nil {
		r.Auth.Credentials = opts.Credentials
	}

	if e.cfg.SocketTimeout > 0 {
		// writers that don't support deadlines (recorders, some middleware) are left alone
		_ = http.NewResponseController(w).SetReadDeadline(now.Add(e.cfg.SocketTimeout))
	}

	r.LogAt([]string{"bcycle", "received"}, map[string]string{
		"id":     r.ID,
		"method": r.Method,
		"url":    r.URL.String(),
		"agent":  hr.Header.Get("User-Agent"),
	}, now) // must be last, the request is fully constructed

	return r
}

// Raw returns the transport level request and response writer. Handlers that write to the
// response writer directly must call [Request.Close].
func (r *Request) Raw() Raw { return r.raw }

// Route returns the route the request resolved to. Before routing this is the router's
// not-found route, whose settings are usable.
func (r *Request) Route() *Route { return r.route }

// Server returns information about the server that handles the request.
func (r *Request) Server() ServerInfo { return r.engine.Info() }

// Context returns the request's lifecycle context. It is cancelled once the request replied.
func (r *Request) Context() context.Context { return r.ctx }

// Response returns the response that is currently set, or nil.
func (r *Request) Response() *Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.response
}

// Reply turns v into a response and sets it on the request. Values are converted by the
// engine's response builder: errors, strings, byte slices, readers, upstream *http.Response
// values and anything that encodes as JSON. Replies that arrive after the request replied
// (for example after a server timeout) are discarded.
func (r *Request) Reply(v any) *Response {
	res := r.engine.responses.Generate(v, r)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase >= phaseReplied {
		return res
	}

	r.response = res
	return res
}

// Close marks that the handler has taken over the response writer. The engine will not write
// a response but still finalizes the request.
func (r *Request) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase >= phaseReplied {
		return
	}

	r.response = &Response{variety: VarietyClosed, code: http.StatusOK}
}

// Replied reports whether the request has replied.
func (r *Request) Replied() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase >= phaseReplied
}

// Drained returns a channel that is closed once the request replied and all tails completed.
func (r *Request) Drained() <-chan struct{} { return r.drained }

// Authenticate marks the request as authenticated with the given credentials.
func (r *Request) Authenticate(credentials, artifacts any) error {
	if credentials == nil {
		return errors.New("bcycle: cannot authenticate without credentials")
	}

	r.Auth.IsAuthenticated = true
	r.Auth.Credentials = credentials
	r.Auth.Artifacts = artifacts
	return nil
}

// SetState sets a cookie on the response. It panics once the request replied.
func (r *Request) SetState(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureNotReplied("SetState")

	r.states[name] = &http.Cookie{Name: name, Value: value, Path: "/"}
}

// ClearState expires a cookie on the client. It panics once the request replied.
func (r *Request) ClearState(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureNotReplied("ClearState")

	r.states[name] = &http.Cookie{Name: name, Path: "/", MaxAge: -1}
}

// States returns the cookies that will be set on the response, ordered by name.
func (r *Request) States() []*http.Cookie {
	r.mu.Lock()
	defer r.mu.Unlock()

	cookies := lo.Values(r.states)
	slices.SortFunc(cookies, func(a, b *http.Cookie) int { return strings.Compare(a.Name, b.Name) })
	return cookies
}

func (r *Request) ensureNotReplied(method string) {
	if r.phase >= phaseReplied {
		panic("bcycle: cannot call " + method + "() after the request replied")
	}
}

// swapResponse sets the response unconditionally, it is used by the engine while replying.
func (r *Request) swapResponse(res *Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.response = res
}

func (r *Request) endMutations() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase == phaseAccepting {
		r.phase = phaseRouting
	}
}

// markReplied transitions the request into the replied phase. It returns false if the
// request already replied.
func (r *Request) markReplied() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase >= phaseReplied {
		return false
	}

	r.phase = phaseReplied
	return true
}

// startWagging disables tails and returns the number of tails that are still pending.
func (r *Request) startWagging() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phase = phaseWagging
	return len(r.tails)
}

func (r *Request) markDrained() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isDrained {
		return false
	}

	r.isDrained = true
	close(r.drained)
	return true
}
