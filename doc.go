// Package bcycle provides a request lifecycle engine with extension points, a single reply per
// request and background work that outlives the response.
//
// # Overview
//
// Every inbound request becomes a [Request] that the [Engine] drives through a fixed
// lifecycle:
//
//  1. onRequest extensions run, they may still rewrite the url and method
//  2. the path is validated and the request is routed
//  3. the route's cycle runs: onPreAuth, onPostAuth, onPreHandler, the handler and onPostHandler
//  4. the request replies exactly once, onPreResponse extensions see the final response
//  5. the request waits on its tails and emits [TailDrained] when they complete
//
// A minimal example:
//
//	mux := bcycle.NewMux()
//	mux.HandleFunc("GET /items/{id}", func(ctx context.Context, r *bcycle.Request) error {
//	    item, err := db.GetItem(ctx, r.Params["id"])
//	    if err != nil {
//	        return bcycle.NewError(bcycle.CodeNotFound, err)
//	    }
//	    r.Reply(item)
//	    return nil
//	}, bcycle.Named("get-item"))
//
//	http.ListenAndServe(":8080", bcycle.New(bcycle.DefaultConfig(), mux))
//
// # Handlers and Replies
//
// Handlers produce a response with [Request.Reply]. The value is converted by the engine's
// [ResponseBuilder]: strings and byte slices are sent as-is, readers and upstream
// *http.Response values are streamed and everything else is encoded as JSON. Returning an
// error from any stage stops the cycle and replies with the error instead.
//
// # Error Handling
//
// Errors reply with their status code:
//
//   - [*Error] (created with [NewError]): Uses the error's code and message
//   - Pass-through errors (created with [PassThrough]): Reply with the upstream status, body and content type
//   - Other errors: Logged and converted to 500 Internal Server Error
//
// Panics in stages and extensions are recovered as implementation errors, see
// [IsImplementationError]. They reply with a 500 and are tagged "implementation" in the
// request's event log.
//
// # Timeouts
//
// With [Config.ServerTimeout] set, a request that did not reply in time replies with a 503.
// The cycle keeps running in the background but its replies are discarded, and it observes
// the timeout before starting its next stage.
//
// # Tails
//
// [Request.AddTail] registers background work that continues after the response was sent:
//
//	done := r.AddTail("audit")
//	go func() {
//	    defer done()
//	    audit.Record(context.WithoutCancel(ctx), r.ID)
//	}()
//
// # Event Log
//
// Each request keeps an ordered log of tagged entries, see [Request.Log] and
// [Request.GetLog]. All entries are also delivered to [Observer] implementations as
// [RequestLogged] events. Entries with one of [Config.DebugTags] are passed to the [Logger].
//
// # Named Routes and URL Reversing
//
// Routes can be named for URL generation, avoiding hardcoded paths:
//
//	mux.HandleFunc("GET /users/{id}", getUser, bcycle.Named("get-user"))
//
//	// Generate URLs by name
//	url, err := mux.Reverse("get-user", "123")  // returns "/users/123"
//
// The [Reverser] component parses chi route patterns and substitutes path parameters in order.
package bcycle
