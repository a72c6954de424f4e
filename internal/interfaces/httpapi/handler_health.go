package httpapi

import "net/http"

// Healthz answers 200 with status "degraded" while the kv store is down.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	resp := healthResponse{Status: "ok", Store: "up", RosterCache: h.playerResolver.CacheStats()}
	if !h.store.Healthy(ctx) {
		resp.Status = "degraded"
		resp.Store = "unavailable"
	}
	writeSuccess(ctx, w, http.StatusOK, resp)
}
