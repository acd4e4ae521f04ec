package http11

// Handler processes a dispatched request. The returned status becomes the
// response status unless the handler already flushed headers; handlers never
// panic across this boundary.
type Handler func(req *Request, rw *ResponseWriter, data any) int

// RouteFlags control the per-route dispatch steps.
type RouteFlags uint8

const (
	// RouteAuth gates the route behind the authorization check.
	RouteAuth RouteFlags = 1 << iota

	// RouteStripSlashes trims repeated leading '/' after the prefix
	// strip.
	RouteStripSlashes

	// RouteParseAcceptEncoding eagerly parses Accept-Encoding before the
	// handler runs.
	RouteParseAcceptEncoding

	// RouteAllowPOST admits POST bodies; without it a POST answers 405.
	RouteAllowPOST

	// RouteAllowRewrite lets the handler replace the URL and route
	// again, up to MaxRewrites times.
	RouteAllowRewrite

	// RouteCompressResponse re-encodes the staged response body with the
	// best coding the client accepts.
	RouteCompressResponse
)

// Route is one URL-map record: a path prefix bound to a handler with its
// dispatch flags and authorization parameters.
type Route struct {
	Prefix       string
	Handler      Handler
	Flags        RouteFlags
	Realm        string
	PasswordFile string
	Data         any
}

// RouteLookup is the prefix-lookup contract the dispatcher consumes. The
// table's internal layout is its own business; the dispatcher only needs the
// longest matching record and how many bytes of the URL it claims.
type RouteLookup interface {
	// LookupPrefix returns the route with the longest prefix matching
	// path and the matched length, or (nil, 0).
	LookupPrefix(path []byte) (*Route, int)
}

// Authorizer validates the request's Authorization header against a route's
// realm and password file. Implementations must be safe for concurrent use.
type Authorizer interface {
	Authorize(authorization []byte, realm, passwordFile string) bool
}

// BodyEncoder re-encodes a staged response body with a coding the client
// accepts. Wired by the server; nil disables compression.
type BodyEncoder interface {
	Encode(rw *ResponseWriter, accepted EncodingFlags)
}

// Dispatch routes the request through the pipeline: prefix lookup,
// authorization, slash stripping, accept-encoding parse, POST admission,
// handler invocation and the bounded rewrite loop. Returns the response
// status; the caller reports it and flushes.
func Dispatch(req *Request, rw *ResponseWriter, routes RouteLookup, auth Authorizer, enc BodyEncoder) int {
	for {
		route, prefixLen := routes.LookupPrefix(req.url)
		if route == nil {
			return StatusNotFound
		}
		req.url = req.url[prefixLen:]

		if route.Flags&RouteAuth != 0 {
			if auth == nil || !auth.Authorize(req.Helper.Authorization, route.Realm, route.PasswordFile) {
				return StatusNotAuthorized
			}
		}

		if route.Flags&RouteStripSlashes != 0 {
			for len(req.url) > 0 && req.url[0] == '/' {
				req.url = req.url[1:]
			}
		}

		if route.Flags&RouteParseAcceptEncoding != 0 {
			req.AcceptEncoding()
		}

		if req.Method == MethodPOST {
			if route.Flags&RouteAllowPOST == 0 {
				return StatusNotAllowed
			}
			if err := req.ingestBody(); err != nil {
				return StatusOf(err)
			}
		}

		status := route.Handler(req, rw, route.Data)

		if route.Flags&RouteAllowRewrite != 0 && req.Has(FlagURLRewritten) {
			req.flags &^= FlagURLRewritten
			req.Helper.rewrites++
			if req.Helper.rewrites > MaxRewrites {
				return StatusInternalError
			}
			if err := req.reparseRewrittenURL(); err != nil {
				return StatusBadRequest
			}
			continue
		}

		if status == StatusOK && route.Flags&RouteCompressResponse != 0 && enc != nil {
			enc.Encode(rw, req.AcceptEncoding())
		}
		return status
	}
}

// BodyIngested reports whether the POST gate has admitted the body. Until
// then, buffered bytes past the head are body bytes, not a pipelined
// request.
func (r *Request) BodyIngested() bool {
	return r.bodyDone
}

// ingestBody runs the connection's body reader exactly once per request.
func (r *Request) ingestBody() error {
	if r.bodyDone {
		return nil
	}
	if r.readBody == nil {
		return ErrBadRequest
	}
	if err := r.readBody(r); err != nil {
		return err
	}
	r.bodyDone = true
	return nil
}

// reparseRewrittenURL re-splits fragment and query off a handler-supplied
// URL and decodes the remaining path, resetting the query view so lookups
// see the rewritten parameters.
func (r *Request) reparseRewrittenURL() error {
	raw := r.url
	r.Helper.Fragment = nil
	r.Helper.Query = nil
	r.flags &^= FlagQueryParsed
	r.query = nil
	original := r.originalURL
	err := splitAndDecodeURL(r, raw)
	r.originalURL = original
	return err
}
