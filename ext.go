package bcycle

import (
	"context"
	"sync"
)

// Extension points of the lifecycle.
const (
	OnRequest     = "onRequest"
	OnPreAuth     = "onPreAuth"
	OnPostAuth    = "onPostAuth"
	OnPreHandler  = "onPreHandler"
	OnPostHandler = "onPostHandler"
	OnPreResponse = "onPreResponse"
)

// Extension runs at an extension point. Returning an error stops the lifecycle and replies with
// the error, returning [Override] replaces the response.
type Extension func(ctx context.Context, r *Request) error

// ExtensionRegistry invokes the extensions registered for a point.
type ExtensionRegistry interface {
	Invoke(ctx context.Context, r *Request, point string) error
}

// Extensions is the default [ExtensionRegistry].
type Extensions struct {
	mu     sync.RWMutex
	points map[string][]Extension
	sealed bool
}

// NewExtensions inits an empty registry.
func NewExtensions() *Extensions {
	return &Extensions{points: map[string][]Extension{}}
}

// Ext registers extensions for a point. Extensions for the same point run in the order
// they were registered. It panics once the registry served a request.
func (x *Extensions) Ext(point string, fns ...Extension) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.sealed {
		panic("bcycle: cannot call Ext() after the first request was served")
	}

	x.points[point] = append(x.points[point], fns...)
}

// Invoke runs the extensions for point in order and stops at the first error.
func (x *Extensions) Invoke(ctx context.Context, r *Request, point string) error {
	x.mu.RLock()
	fns := x.points[point]
	sealed := x.sealed
	x.mu.RUnlock()

	if !sealed {
		x.mu.Lock()
		x.sealed = true
		x.mu.Unlock()
	}

	for _, fn := range fns {
		if err := fn(ctx, r); err != nil {
			return err
		}
	}

	return nil
}

var _ ExtensionRegistry = &Extensions{}
