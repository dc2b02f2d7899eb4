package api

import "net/http"

// Middleware wraps a handler, for example with metrics instrumentation.
type Middleware func(http.Handler) http.Handler

// SetupRoutes registers the evidence endpoints and the MCP endpoint on mux.
func SetupRoutes(mux *http.ServeMux, h *Handler, mw Middleware) {
	if mw == nil {
		mw = func(next http.Handler) http.Handler { return next }
	}

	mux.Handle("/health", mw(h.withRequestID(h.Health)))
	mux.Handle("/api/v1/validate-evidence", mw(h.withRequestID(h.ValidateEvidence)))
	mux.Handle("/api/v1/analyze-image-evidence", mw(h.withRequestID(h.AnalyzeImageEvidence)))
	mux.Handle("/mcp", mw(enableCORS(h.withRequestID(h.MCP))))
}

// enableCORS lets browser-hosted MCP clients reach the endpoint.
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
