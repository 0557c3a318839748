package routing

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/routelens/routelens/pkg/emitter"
	"github.com/routelens/routelens/pkg/payload"
)

// ArgsFunc extracts the route arguments for a matched request, in the order
// they should appear in the trace payload. Returning nil means the route has
// no argument map.
type ArgsFunc func(r *http.Request) payload.Args

// Route describes one registered target.
type Route struct {
	// Pattern is the exact path the route matches, or a prefix when it
	// ends with "/".
	Pattern string
	// TargetName identifies the handler in trace events.
	TargetName string
	// Glue marks routing infrastructure (404 handlers, redirects) that
	// must not be traced as the handler of a request.
	Glue bool

	Handler http.Handler
	Args    ArgsFunc
}

// Router is a prefix-matching dispatcher that reports every resolution to
// the trace emitter before delegating to the target handler. It stands in
// for whatever routing engine hosts the pipeline; the emitter contract is
// the same either way.
type Router struct {
	mu      sync.RWMutex
	routes  map[string]Route
	emitter *emitter.Emitter

	notFound Route
}

// NewRouter creates a router reporting to em.
func NewRouter(em *emitter.Emitter) *Router {
	return &Router{
		routes:  make(map[string]Route),
		emitter: em,
		notFound: Route{
			TargetName: "NotFoundHandler",
			Glue:       true,
			Handler:    http.NotFoundHandler(),
		},
	}
}

// Register adds a route. Patterns must be unique and non-empty.
func (rt *Router) Register(route Route) error {
	if route.Pattern == "" {
		return fmt.Errorf("route pattern cannot be empty")
	}
	if route.Handler == nil {
		return fmt.Errorf("route %q has no handler", route.Pattern)
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if _, exists := rt.routes[route.Pattern]; exists {
		return fmt.Errorf("route %q already registered", route.Pattern)
	}
	rt.routes[route.Pattern] = route
	return nil
}

// Routes returns the registered routes sorted by pattern.
func (rt *Router) Routes() []Route {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	routes := make([]Route, 0, len(rt.routes))
	for _, r := range rt.routes {
		routes = append(routes, r)
	}
	sort.Slice(routes, func(i, j int) bool {
		return routes[i].Pattern < routes[j].Pattern
	})
	return routes
}

// resolve finds the route for a path: exact match first, then the longest
// registered prefix, then the glue not-found route.
func (rt *Router) resolve(path string) Route {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	if route, ok := rt.routes[path]; ok {
		return route
	}

	best := rt.notFound
	bestLen := -1
	for pattern, route := range rt.routes {
		if strings.HasSuffix(pattern, "/") && strings.HasPrefix(path, pattern) && len(pattern) > bestLen {
			best = route
			bestLen = len(pattern)
		}
	}
	return best
}

// ServeHTTP resolves the target, reports the resolution, and delegates.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := rt.resolve(r.URL.Path)

	requestID, _ := RequestIDFromContext(r.Context())

	var args payload.Args
	if route.Args != nil {
		args = route.Args(r)
	}

	rt.emitter.RequestRouted(r.Context(), emitter.RouteInfo{
		RequestID:  requestID,
		Method:     r.Method,
		Path:       r.URL.Path,
		PathBase:   route.Pattern,
		TargetName: route.TargetName,
		IsGlue:     route.Glue,
		Args:       args,
	})

	route.Handler.ServeHTTP(w, r)
}
