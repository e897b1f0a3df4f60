package httpapi

import (
	"net/http"

	yall "yall.in"

	"github.com/driftbox/driftbox"
	"github.com/driftbox/driftbox/diagnostics"
)

// handlers closes over the Repository and RouterOptions every route
// needs; its methods are the terminal http.HandlerFunc behind the
// metrics/CORS middleware chain NewRouter builds.
type handlers struct {
	repo *driftbox.Repository
	opts RouterOptions
}

func (h *handlers) path(r *http.Request) string {
	return "/" + r.URL.Query().Get(":"+keyPath)
}

// handleUpload creates a fresh Slab at path and drains the request body
// into it with Slab.Append. The handler returns as soon as Append
// settles, win or lose; it does not wait for any reader.
func (h *handlers) handleUpload(w http.ResponseWriter, r *http.Request) {
	path := h.path(r)
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	slab, err := h.repo.Create(path, contentType)
	if err != nil {
		yall.FromContext(r.Context()).WithError(err).Error("create failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	body := http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	source := driftbox.NewReaderSource(body)

	ctx, stop := graceContext(r.Context(), h.opts.UploadGracePeriod)
	defer stop()
	ctx = yall.InContext(ctx, yall.FromContext(r.Context()))

	if err := slab.Append(ctx, source); err != nil {
		yall.FromContext(r.Context()).WithError(err).WithField("path", path).Info("upload failed")
		http.Error(w, "upload failed", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// handleDownload looks up the current Slab for path and streams it to
// the response as bytes become available, so a download can start and
// keep pace with an upload that is still in progress.
func (h *handlers) handleDownload(w http.ResponseWriter, r *http.Request) {
	path := h.path(r)

	slab, ok := h.repo.Lookup(path)
	if !ok {
		http.Error(w, driftbox.ErrNotFound.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", slab.ContentType())
	w.Header().Set("Cache-Control", "no-cache")
	sink := newResponseSink(w)

	if err := slab.Read(r.Context(), sink); err != nil {
		if err == driftbox.ErrIncomplete && !sink.wrote {
			// Nothing reached the client yet, so a failed upload looks
			// the same as a plain not-found.
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		if err == driftbox.ErrIncomplete {
			yall.FromContext(r.Context()).WithField("path", path).Info("download observed a failed upload")
		}
		// Either the client is gone, or headers and at least one chunk
		// of the body are already written; there is nothing left to do
		// but let the connection end truncated.
		return
	}
}

// handleDelete removes any current entry for path. Delete is an
// idempotent no-op when nothing is present, so a DELETE always
// succeeds here too.
func (h *handlers) handleDelete(w http.ResponseWriter, r *http.Request) {
	h.repo.Delete(h.path(r))
	w.WriteHeader(http.StatusNoContent)
}

// handleDiagnostics renders the Repository's current contents as an
// operator-facing HTML page: every live path, its size, access count,
// and expiry, for eyeballing what the process is holding right now.
func (h *handlers) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	rows := h.repo.Snapshot()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := diagnostics.Render(w, rows); err != nil {
		yall.FromContext(r.Context()).WithError(err).Error("diagnostics render failed")
	}
}
