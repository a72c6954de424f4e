package httpapi

import (
	"net/http"
	"strings"

	"github.com/riskibarqy/perf-import/internal/domain/telemetry"
)

const templateSourceManual = "Manual"

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListTemplates")
	defer span.End()

	teamID := strings.TrimSpace(r.PathValue("teamID"))
	named, err := h.templateService.ListNamed(ctx, teamID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	learned, err := h.templateService.ListAll(ctx, teamID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, teamTemplatesResponse{TeamID: teamID, Named: named, Learned: learned})
}

func (h *Handler) SaveTemplate(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SaveTemplate")
	defer span.End()

	teamID := strings.TrimSpace(r.PathValue("teamID"))
	var req saveTemplateRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	tpl, err := h.templateService.SaveNamed(ctx, teamID, req.Name, req.Mapping, telemetry.TemplateMeta{
		Vendor: req.Vendor,
		Source: templateSourceManual,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "save template failed", "team_id", teamID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, tpl)
}

func (h *Handler) ClearTeamCache(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ClearTeamCache")
	defer span.End()

	teamID := strings.TrimSpace(r.PathValue("teamID"))
	deleted, err := h.templateService.ClearTeam(ctx, teamID)
	if err != nil {
		h.logger.WarnContext(ctx, "clear team cache failed", "team_id", teamID, "error", err)
		writeError(ctx, w, err)
		return
	}

	h.logger.InfoContext(ctx, "team cache cleared", "team_id", teamID, "deleted", deleted)
	writeSuccess(ctx, w, http.StatusOK, clearCacheResponse{TeamID: teamID, Deleted: deleted})
}
