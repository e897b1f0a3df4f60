// Package httpapi is the HTTP collaborator kept out of the core: request
// routing, body framing, header shaping, CORS, and request metrics. It
// drives driftbox.Repository and driftbox.Slab and translates their
// results into HTTP status codes and headers.
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/pat"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/driftbox/driftbox"
)

const (
	// routeFile matches the gorilla/pat capture syntax dzyanis-ent's
	// main.go uses for its own bucket/key routes.
	routeFile        = `/files/{path:.+}`
	keyPath          = "path"
	maxUploadBytes   = 16 << 20 // default cap on a single upload body.
	defaultGraceWait = 2 * time.Second
)

// RouterOptions configures the HTTP collaborator. Zero value is usable.
type RouterOptions struct {
	// MaxUploadBytes caps POST bodies. Defaults to 16 MiB.
	MaxUploadBytes int64
	// UploadGracePeriod delays cancellation propagation to Slab.Append
	// after the client disconnects, so a final buffered chunk can still
	// land. Defaults to 2s.
	UploadGracePeriod time.Duration
	// Clock defaults to driftbox.SystemClock; no handler reads it. The
	// core's own Clock is configured separately on the Repository.
	Clock driftbox.Clock
	// Registerer receives the request-metrics vectors if non-nil.
	Registerer prometheus.Registerer
}

func (o RouterOptions) withDefaults() RouterOptions {
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = maxUploadBytes
	}
	if o.UploadGracePeriod <= 0 {
		o.UploadGracePeriod = defaultGraceWait
	}
	if o.Clock == nil {
		o.Clock = driftbox.SystemClock
	}
	return o
}

// NewRouter builds the HTTP front door over repo, grounded on
// dzyanis-ent's main.go: a gorilla/pat router with per-route request
// metrics and CORS headers layered on with the same middleware idiom.
func NewRouter(repo *driftbox.Repository, opts RouterOptions) http.Handler {
	opts = opts.withDefaults()
	metrics := newRequestMetrics(opts.Registerer)

	h := &handlers{repo: repo, opts: opts}

	r := pat.New()

	r.Add("POST", routeFile, withMetrics(metrics, "upload", h.handleUpload))
	r.Add("GET", routeFile, withCORS(withMetrics(metrics, "download", h.handleDownload)))
	r.Add("DELETE", routeFile, withMetrics(metrics, "delete", h.handleDelete))
	r.Add("GET", "/diagnostics", withCORS(withMetrics(metrics, "diagnostics", h.handleDiagnostics)))

	return lowercasePaths(r)
}

// lowercasePaths folds the path segment of every /files/ request to
// lowercase before gorilla/pat ever sees it, so that the same resource
// is reachable regardless of how a client capitalizes the URL and the
// core never has to case-fold paths itself.
func lowercasePaths(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/files/") {
			r.URL.Path = "/files/" + strings.ToLower(strings.TrimPrefix(r.URL.Path, "/files/"))
		}
		next.ServeHTTP(w, r)
	})
}
