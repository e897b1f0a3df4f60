package httpapi

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/driftbox/driftbox"
)

// statusFor maps a core error to the HTTP response code a client should
// see for it, grounded on dzyanis-ent/main.go's errorStatusCode switch.
func statusFor(err error) int {
	switch errors.Cause(err) {
	case driftbox.ErrNotFound:
		return http.StatusNotFound
	case driftbox.ErrIncomplete:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
