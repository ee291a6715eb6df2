package handler

import (
	"net/http"
	"strconv"
)

const (
	defaultAuditTrailLimit = 100
	maxAuditTrailLimit     = 500
)

// GetAuditTrail 按动作子串和用户过滤，最新的在前
func (h *Handler) GetAuditTrail(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditTrailLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.errorResponse(w, r, "limit 参数无效")
			return
		}
		limit = min(parsed, maxAuditTrailLimit)
	}

	action := r.URL.Query().Get("action")
	user := r.URL.Query().Get("user")

	events, err := h.repository.GetAuditTrail(action, user, limit)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取审计日志成功", events)
}
