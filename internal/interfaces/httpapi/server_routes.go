package httpapi

import (
	"net/http"

	"golang.org/x/time/rate"
)

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if swaggerEnabled {
		mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
		mux.HandleFunc("GET /docs", handler.SwaggerUI)
	}
}

func registerImportRoutes(mux *http.ServeMux, handler *Handler, limiter *rate.Limiter) {
	mux.Handle("POST /v1/imports/mapping", RateLimit(limiter, http.HandlerFunc(handler.GenerateMapping)))
	mux.Handle("POST /v1/imports/preview", RateLimit(limiter, http.HandlerFunc(handler.PreviewImport)))
	mux.Handle("POST /v1/imports/apply", RateLimit(limiter, http.HandlerFunc(handler.ApplyImport)))
	mux.Handle("POST /v1/players/resolve", RateLimit(limiter, http.HandlerFunc(handler.ResolvePlayers)))
}

func registerTeamRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/teams/{teamID}/templates", handler.ListTemplates)
	mux.HandleFunc("POST /v1/teams/{teamID}/templates", handler.SaveTemplate)
	mux.HandleFunc("DELETE /v1/teams/{teamID}/cache", handler.ClearTeamCache)
}
