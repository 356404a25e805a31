package bcycle

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Engine drives requests through their lifecycle: onRequest, routing, the route's cycle and a
// single reply, bounded by the server timeout.
type Engine struct {
	cfg       Config
	router    Router
	ext       ExtensionRegistry
	responses ResponseBuilder
	logs      Logger
	observers []Observer
}

// Option configures the engine.
type Option func(*Engine)

// WithExtensions sets the extension registry.
func WithExtensions(x ExtensionRegistry) Option {
	return func(e *Engine) { e.ext = x }
}

// WithResponseBuilder sets the response builder.
func WithResponseBuilder(b ResponseBuilder) Option {
	return func(e *Engine) { e.responses = b }
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(e *Engine) { e.logs = l }
}

// WithObservers adds observers for lifecycle events.
func WithObservers(obs ...Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, obs...) }
}

// New inits an engine that routes with router.
func New(cfg Config, router Router, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg,
		router:    router,
		ext:       NewExtensions(),
		responses: NewResponder(),
		logs:      NewStdLogger(nil),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Info returns the server information requests see.
func (e *Engine) Info() ServerInfo {
	return ServerInfo{Protocol: e.cfg.Protocol, Host: e.cfg.Host, Port: e.cfg.Port}
}

// ServeHTTP makes the engine implement the http.Handler interface.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.Serve(w, r, RequestOptions{})
}

// Serve handles a request and returns it once it replied. Tails registered by the request
// may still be running.
func (e *Engine) Serve(w http.ResponseWriter, hr *http.Request, opts RequestOptions) *Request {
	r := newRequest(e, w, hr, opts)
	e.emit(RequestReceived{Req: r})
	e.execute(r.ctx, r)
	return r
}

func (e *Engine) execute(ctx context.Context, r *Request) {
	err := protect(func() error { return e.ext.Invoke(ctx, r, OnRequest) })
	r.endMutations()
	if err != nil {
		e.reply(ctx, r, err)
		return
	}

	if !strings.HasPrefix(r.Path, "/") {
		e.reply(ctx, r, BadRequest("Invalid path"))
		return
	}

	r.route = e.router.Resolve(r)

	var timeout <-chan time.Time
	if e.cfg.ServerTimeout > 0 {
		remaining := e.cfg.ServerTimeout - time.Since(r.Info.Received)
		if remaining <= 0 {
			e.reply(ctx, r, ServerTimeout())
			return
		}

		r.timer = time.NewTimer(remaining)
		timeout = r.timer.C
	}

	stageCtx, cancelStages := context.WithCancel(ctx)
	defer cancelStages()

	done := make(chan error, 1)
	go func() { done <- e.cycle(stageCtx, r) }()

	select {
	case err := <-done:
		e.reply(ctx, r, err)
	case <-timeout:
		// the in-flight stage is released before the reply touches the request
		if r.markReplied() {
			cancelStages()
			e.settle(ctx, r, ServerTimeout())
		}
	}
}

var errCycleAborted = errors.New("cycle aborted")

// cycle runs the route's stages in order until one fails, a response takes over or the
// request replied from elsewhere.
func (e *Engine) cycle(ctx context.Context, r *Request) error {
	for _, stage := range r.route.Cycle {
		if r.Replied() {
			r.Log([]string{"bcycle", "server", "timeout"}, nil)
			return errCycleAborted
		}

		err := protect(func() error {
			if stage.Handler != nil {
				return stage.Handler.ServeCycle(ctx, r)
			}
			return e.ext.Invoke(ctx, r, stage.Name)
		})
		if err != nil {
			return err
		}

		if res := r.Response(); res != nil && res.takeover {
			return nil
		}
	}

	return nil
}

// reply settles the response and writes it, at most once per request.
func (e *Engine) reply(ctx context.Context, r *Request, exit error) {
	if !r.markReplied() {
		return
	}

	e.settle(ctx, r, exit)
}

// settle produces and writes the response of a request that was marked as replied.
func (e *Engine) settle(ctx context.Context, r *Request, exit error) {
	if r.timer != nil {
		r.timer.Stop()
	}

	if res := r.Response(); res != nil && res.variety == VarietyClosed {
		if f, ok := r.raw.Res.(http.Flusher); ok {
			f.Flush()
		}

		e.finalize(r)
		return
	}

	if exit != nil {
		e.override(ctx, r, exit)
	}

	r.swapResponse(e.responses.Prepare(ctx, r.Response(), r))

	if err := protect(func() error { return e.ext.Invoke(ctx, r, OnPreResponse) }); err != nil {
		e.override(ctx, r, err)
		r.swapResponse(e.responses.Prepare(ctx, r.Response(), r))
	}

	if err := e.responses.Respond(ctx, r.Response(), r); err != nil {
		r.Log([]string{"bcycle", "response", "error"}, err)
		e.logs.LogRespondError(err)
	}

	e.finalize(r)
}

// override replaces the current response with one generated from exit. A successful response
// that is replaced may already be cached, so the route's cache entry is dropped.
func (e *Engine) override(ctx context.Context, r *Request, exit error) {
	var value any = exit
	if ov := (*OverrideValue)(nil); errors.As(exit, &ov) {
		value = ov.Value
	}

	if prev := r.Response(); prev != nil {
		if prev.stream != nil {
			_ = prev.stream.Close()
		}

		if !prev.IsError() {
			e.dropCache(ctx, r)
		}
	}

	r.swapResponse(e.responses.Generate(value, r))
}

func (e *Engine) dropCache(ctx context.Context, r *Request) {
	if r.route.Cache == nil {
		return
	}

	err := r.route.Cache.Drop(context.WithoutCancel(ctx), CacheKey(r))
	r.Log([]string{"bcycle", "cache", "drop"}, err)
	if err != nil {
		e.logs.LogCacheError(err)
	}
}

func (e *Engine) finalize(r *Request) {
	res := r.Response()
	if res != nil && res.IsError() && res.code == http.StatusInternalServerError {
		e.emit(InternalError{Req: r, Err: res.err})

		tags := []string{"bcycle", "internal"}
		if IsImplementationError(res.err) {
			tags = append(tags, "implementation")
		}
		r.Log(tags, res.err)
	}

	e.emit(ResponseSent{Req: r, Response: res})

	if r.startWagging() == 0 {
		e.drain(r)
	}

	r.cancel()
}

func (e *Engine) drain(r *Request) {
	if !r.markDrained() {
		return
	}

	e.emit(TailDrained{Req: r})
}

func (e *Engine) emit(ev Event) {
	for _, obs := range e.observers {
		obs.Observe(ev)
	}
}

// protect turns a panic in fn into an implementation error.
func protect(fn func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			if perr, ok := v.(error); ok {
				err = errors.NewAssertionErrorWithWrappedErrf(perr, "bcycle: panic")
				return
			}
			err = errors.AssertionFailedf("bcycle: panic: %v", v)
		}
	}()

	return fn()
}
