package httpapi

import (
	"net/http"

	"github.com/riskibarqy/perf-import/internal/usecase"
)

func (h *Handler) GenerateMapping(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GenerateMapping")
	defer span.End()

	var req autoMappingRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.mappingService.GenerateAutoMapping(ctx, usecase.AutoMappingInput{
		TeamID:        req.TeamID,
		Headers:       req.Headers,
		CaptureCustom: req.CaptureCustom,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "generate mapping failed", "team_id", req.TeamID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) PreviewImport(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PreviewImport")
	defer span.End()

	var req previewRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	preview, err := h.importService.Preview(ctx, req.Rows, req.Mapping, req.TeamID, req.SampleSize)
	if err != nil {
		h.logger.WarnContext(ctx, "preview import failed", "team_id", req.TeamID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, preview)
}

func (h *Handler) ApplyImport(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ApplyImport")
	defer span.End()

	var req applyMappingRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.importService.ApplyMapping(ctx, req.Rows, req.Mapping, req.TeamID, usecase.ApplyOptions{
		Headers: req.Headers,
		Vendor:  req.Vendor,
		DryRun:  req.DryRun,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "apply import failed", "team_id", req.TeamID, "rows", len(req.Rows), "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) ResolvePlayers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ResolvePlayers")
	defer span.End()

	var req resolvePlayersRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	session := h.playerResolver.NewSession(req.TeamID)
	results := make([]usecase.ResolveResult, 0, len(req.Tokens))
	for _, token := range req.Tokens {
		outcome, err := session.ResolveToken(ctx, token)
		if err != nil {
			h.logger.WarnContext(ctx, "resolve players failed", "team_id", req.TeamID, "error", err)
			writeError(ctx, w, err)
			return
		}
		results = append(results, usecase.NewResolveResult(token, outcome))
	}

	writeSuccess(ctx, w, http.StatusOK, resolvePlayersResponse{Results: results, Session: session.Stats()})
}
