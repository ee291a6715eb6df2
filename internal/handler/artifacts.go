package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/dutyops-dev/duty-roster/backend/internal/domain"
	"github.com/dutyops-dev/duty-roster/backend/internal/export"
)

const (
	defaultArtifactListLimit = 50
	maxArtifactListLimit     = 200
)

func (h *Handler) ListRosterArtifacts(w http.ResponseWriter, r *http.Request) {
	limit := defaultArtifactListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.errorResponse(w, r, "limit 参数无效")
			return
		}
		limit = min(parsed, maxArtifactListLimit)
	}

	artifacts, err := h.repository.GetAllRosterArtifacts(limit)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取产物列表成功", artifacts)
}

func (h *Handler) GetRosterArtifact(w http.ResponseWriter, r *http.Request) {
	artifact := r.Context().Value(ArtifactCtx).(*domain.RosterArtifact)

	if r.URL.Query().Get("download") != "1" {
		h.successResponse(w, r, "获取产物成功", artifact)
		return
	}

	format, err := export.ParseFormat(artifact.Format)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	filename := artifact.Name
	if ext := format.Extension(); len(filename) < len(ext) || filename[len(filename)-len(ext):] != ext {
		filename += ext
	}

	h.audit.LogArtifactAccess(actingUsername(r), artifact.ID.String(), "downloaded", true, "", clientIP(r))

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(artifact.Data); err != nil {
		h.logInternalServerError(r, err)
	}
}

func (h *Handler) DeleteRosterArtifact(w http.ResponseWriter, r *http.Request) {
	artifact := r.Context().Value(ArtifactCtx).(*domain.RosterArtifact)

	if err := h.repository.DeleteRosterArtifact(artifact.ID); err != nil {
		h.audit.LogArtifactAccess(actingUsername(r), artifact.ID.String(), "deleted", false, err.Error(), clientIP(r))
		h.internalServerError(w, r, err)
		return
	}

	h.audit.LogArtifactAccess(actingUsername(r), artifact.ID.String(), "deleted", true, "", clientIP(r))
	h.successResponse(w, r, "删除产物成功", nil)
}
