package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, media *MediaHandler) {
	mux.HandleFunc("GET /healthz", HandleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/timeline", media.HandleTimeline)
	mux.HandleFunc("GET /api/media/{year}", media.HandleMediaByYear)
	mux.Handle("POST /api/upload", RateLimit(media.opts.UploadLimiter, http.HandlerFunc(media.HandleUpload)))
	mux.HandleFunc("/api/upload", HandleMethodNotAllowed(http.MethodPost))

	mux.HandleFunc("GET /uploads/{filename}", media.HandleServeFile)
}

// HandleMethodNotAllowed answers 405 with a JSON body and an Allow header.
func HandleMethodNotAllowed(allow string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allow)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
