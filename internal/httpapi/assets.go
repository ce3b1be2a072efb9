package httpapi

import "net/http"

// AssetsHandler serves the static frontend from dir. With no directory
// configured every asset request is a JSON 404.
func AssetsHandler(dir string) http.Handler {
	if dir == "" {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSONError(w, http.StatusNotFound, "not found")
		})
	}
	return http.FileServer(http.Dir(dir))
}
