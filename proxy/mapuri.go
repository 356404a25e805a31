package proxy

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/advdv/bcycle"
	"github.com/samber/lo"
)

// MapURI returns the uri mapper for static options. A URI template is expanded with the server
// info and the request path, a template without placeholders is used verbatim. Without a
// template the upstream is addressed by protocol, host and port.
func MapURI(opts Options) MapURIFunc {
	if opts.URI != "" {
		tmpl := opts.URI
		return func(_ context.Context, r *bcycle.Request) (string, http.Header, error) {
			if !strings.Contains(tmpl, "{") {
				return tmpl, nil, nil
			}

			info := r.Server()
			return strings.NewReplacer(
				"{protocol}", info.Protocol,
				"{host}", info.Host,
				"{port}", strconv.Itoa(info.Port),
				"{path}", r.Path,
			).Replace(tmpl), nil, nil
		}
	}

	protocol := lo.CoalesceOrEmpty(opts.Protocol, "http")
	port := opts.Port
	if port == 0 {
		port = lo.Ternary(protocol == "http", 80, 443)
	}

	base := fmt.Sprintf("%s://%s:%d", protocol, opts.Host, port)
	return func(_ context.Context, r *bcycle.Request) (string, http.Header, error) {
		uri := base + r.Path
		if r.URL.RawQuery != "" {
			uri += "?" + r.URL.RawQuery
		}

		return uri, nil, nil
	}
}
