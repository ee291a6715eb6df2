package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"
)

// 对外暴露的服务版本，和导出的 schemaVersion 保持同步
const apiVersion = "2.0"

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   apiVersion,
	})
}

// Readyz 逐个探测依赖，任何一个不可用都返回 503
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{
		"database": "ok",
		"redis":    "ok",
		"rabbitmq": "ok",
	}
	ready := true

	if err := h.repository.Ping(ctx); err != nil {
		checks["database"] = err.Error()
		ready = false
	}
	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		checks["redis"] = err.Error()
		ready = false
	}
	if h.mailChannel == nil || h.mailChannel.IsClosed() {
		checks["rabbitmq"] = "channel closed"
		ready = false
	}

	status := "ready"
	code := http.StatusOK
	if !ready {
		status = "not_ready"
		code = http.StatusServiceUnavailable
	}

	h.writeJSON(w, r, code, map[string]any{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Metrics 运行时指标加生成计数。默认关闭，开关打开且是管理员才可见
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	if !h.config.Features.MetricsEndpoint {
		h.statusResponse(w, r, http.StatusNotFound, "接口不存在")
		return
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"runtime": map[string]any{
			"goroutines":     runtime.NumGoroutine(),
			"heapAllocBytes": mem.HeapAlloc,
			"heapSysBytes":   mem.HeapSys,
			"numGC":          mem.NumGC,
		},
		"counters": map[string]any{
			"generations":        h.generations.Load(),
			"generationFailures": h.generationFailures.Load(),
			"artifactsStored":    h.artifactsStored.Load(),
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
