package dav

import "net/http"

// HandleWellKnown redirects /.well-known/caldav and /.well-known/carddav
// to the DAV base path per RFC 6764.
func (h *Handlers) HandleWellKnown(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.basePath+"/", http.StatusMovedPermanently)
}
