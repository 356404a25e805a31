package bcycle

import (
	"context"
	"regexp"
)

var jsonpCallback = regexp.MustCompile(`^[\w$\[\].]+$`)

// ParseJSONP reads the callback from the query parameter the route configured for JSONP. An
// invalid callback is a bad request.
func ParseJSONP(_ context.Context, r *Request) error {
	param := r.Route().Settings.JSONP
	if param == "" {
		return nil
	}

	cb := r.Query.Get(param)
	if cb == "" {
		return nil
	}

	if !jsonpCallback.MatchString(cb) {
		return BadRequest("Invalid JSONP parameter value")
	}

	r.JSONP = cb
	r.Query.Del(param)
	return nil
}
