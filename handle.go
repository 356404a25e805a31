package bcycle

import (
	"context"
)

// Handler is a route handler. It runs as one stage of a route's cycle and produces a response
// through [Request.Reply] or fails by returning an error.
//
// ctx is cancelled when the server timeout replies without the stage. From then on the request
// is owned by the reply and a stage must return without touching it.
type Handler interface {
	ServeCycle(ctx context.Context, r *Request) error
}

// HandlerFunc allow casting a function to imple [Handler].
type HandlerFunc func(ctx context.Context, r *Request) error

// ServeCycle implements the [Handler] interface.
func (f HandlerFunc) ServeCycle(ctx context.Context, r *Request) error {
	return f(ctx, r)
}

// HandlerBuilder constructs the handler for a route. It receives the route so that it can
// validate its configuration against the route settings.
type HandlerBuilder func(route *Route) (Handler, error)

// Stage is one unit of a route's cycle: either a named extension point or a handler.
type Stage struct {
	Name    string
	Handler Handler
}

// ExtStage returns a stage that invokes all extensions registered for the named point.
func ExtStage(name string) Stage {
	return Stage{Name: name}
}

// HandlerStage returns a stage that calls h directly.
func HandlerStage(h Handler) Stage {
	return Stage{Handler: h}
}

// String returns the name of an extension stage, or "handler".
func (s Stage) String() string {
	if s.Name != "" {
		return s.Name
	}
	return "handler"
}
