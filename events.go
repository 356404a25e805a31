package bcycle

// Event is emitted by the engine during a request's lifecycle.
type Event interface {
	Request() *Request
}

// RequestReceived is emitted once a request was constructed.
type RequestReceived struct{ Req *Request }

// RequestLogged is emitted for every entry in a request's event log.
type RequestLogged struct {
	Req   *Request
	Entry LogEntry
}

// ResponseSent is emitted after the response was written, or skipped for closed responses.
type ResponseSent struct {
	Req      *Request
	Response *Response
}

// TailDrained is emitted exactly once per request, after it replied and all tails completed.
type TailDrained struct{ Req *Request }

// InternalError is emitted when a request replied with a 500 error.
type InternalError struct {
	Req *Request
	Err error
}

func (e RequestReceived) Request() *Request { return e.Req }
func (e RequestLogged) Request() *Request   { return e.Req }
func (e ResponseSent) Request() *Request    { return e.Req }
func (e TailDrained) Request() *Request     { return e.Req }
func (e InternalError) Request() *Request   { return e.Req }

// Observer receives lifecycle events. Observers are called synchronously from the goroutine
// that caused the event and must not block.
type Observer interface {
	Observe(ev Event)
}

// ObserverFunc allows a function to be used as an [Observer].
type ObserverFunc func(ev Event)

// Observe implements [Observer].
func (f ObserverFunc) Observe(ev Event) { f(ev) }
