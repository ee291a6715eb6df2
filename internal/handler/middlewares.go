package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dutyops-dev/duty-roster/backend/internal/domain"
)

type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
}

func (rw *ResponseWriter) WriteHeader(statusCode int) {
	rw.StatusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (h *Handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-ID", id)

		ctx := context.WithValue(r.Context(), RequestIDCtxKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// shortRequestID 日志里只带请求 ID 的前 8 位，完整 ID 在响应头中
func shortRequestID(r *http.Request) string {
	id, ok := r.Context().Value(RequestIDCtxKey).(string)
	if !ok || len(id) < 8 {
		return ""
	}
	return id[:8]
}

func (h *Handler) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &ResponseWriter{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		duration := time.Since(start)
		slog.Info("已处理请求", "request_id", shortRequestID(r), "status", rw.StatusCode, "ip", clientIP(r), "method", r.Method, "path", r.URL.Path, "duration", duration)
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.internalServerError(w, r, fmt.Errorf("panic: %v", err))
				stackTrace := string(debug.Stack())
				fmt.Print(stackTrace) // 这里如果用 slog 的话会很乱
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		if h.config.Environment == "production" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) bodyLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, h.config.Security.MaxRequestBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP 依次看代理头，取不到再退回 RemoteAddr
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	if cfIP := r.Header.Get("CF-Connecting-IP"); cfIP != "" {
		return strings.TrimSpace(cfIP)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 关闭认证后，所有请求以内置的系统编辑员身份运行
		if !h.config.Auth.Enabled {
			ctx := r.Context()
			ctx = context.WithValue(ctx, RoleCtxKey, string(domain.RoleEditor))
			ctx = context.WithValue(ctx, SubCtxKey, "0")
			ctx = context.WithValue(ctx, UsernameCtxKey, "system")
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		// 从 cookie 中获取 token
		cookie, err := r.Cookie(h.config.JWT.CookieName)
		if err != nil {
			switch {
			case errors.Is(err, http.ErrNoCookie):
				h.statusResponse(w, r, http.StatusUnauthorized, "用户未登录")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		// 验证 token
		tokenString := cookie.Value
		claims := &AuthClaims{}
		_, err = jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(h.config.JWT.Secret), nil
		})
		if err != nil {
			h.statusResponse(w, r, http.StatusUnauthorized, "无效的令牌")
			return
		}

		// 将 claims 中的身份信息附在 context 中
		ctx := r.Context()
		ctx = context.WithValue(ctx, RoleCtxKey, claims.Role)
		ctx = context.WithValue(ctx, SubCtxKey, claims.Subject)
		ctx = context.WithValue(ctx, UsernameCtxKey, claims.Username)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// systemEditor 认证关闭时的内置身份，不落库
func systemEditor() *domain.User {
	return &domain.User{
		ID:       0,
		Username: "system",
		FullName: "系统编辑员",
		Role:     domain.RoleEditor,
		IsActive: true,
	}
}

func (h *Handler) myInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subString := r.Context().Value(SubCtxKey).(string)

		sub, err := strconv.ParseInt(subString, 10, 64)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}

		var myInfo *domain.User
		if sub == 0 {
			myInfo = systemEditor()
		} else {
			myInfo, err = h.repository.GetUserByID(sub)
			if err != nil {
				switch {
				case errors.Is(err, sql.ErrNoRows):
					h.errorResponse(w, r, "个人信息不存在")
				default:
					h.internalServerError(w, r, err)
				}
				return
			}
		}

		ctx := context.WithValue(r.Context(), MyInfoCtx, myInfo)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) RequireRole(roles ...domain.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roleCtx := r.Context().Value(RoleCtxKey).(string)
			role := domain.Role(roleCtx)
			if !slices.Contains(roles, role) {
				h.statusResponse(w, r, http.StatusForbidden, "权限不足")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) userInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userIDParam := chi.URLParam(r, "userID")
		userID, err := strconv.ParseInt(userIDParam, 10, 64)
		if err != nil {
			h.errorResponse(w, r, "用户ID无效")
			return
		}

		user, err := h.repository.GetUserByID(userID)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.errorResponse(w, r, "用户不存在")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), UserInfoCtx, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) artifactInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "artifactID"))
		if err != nil {
			h.errorResponse(w, r, "产物 ID 无效")
			return
		}

		artifact, err := h.repository.GetRosterArtifactByID(id)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.errorResponse(w, r, "产物不存在")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), ArtifactCtx, artifact)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) preventOperateInitialAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.Context().Value(UserInfoCtx).(*domain.User)
		if user.Username == h.config.InitialAdmin.Username {
			h.errorResponse(w, r, "禁止操作初始管理员")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// actingUsername 当前请求者的用户名，审计和限流用
func actingUsername(r *http.Request) string {
	if username, ok := r.Context().Value(UsernameCtxKey).(string); ok {
		return username
	}
	return ""
}

// rateLimitIdentity 限流身份：已登录的按用户名，未登录的按来源 IP
func rateLimitIdentity(r *http.Request) string {
	if username := actingUsername(r); username != "" {
		return "user:" + username
	}
	return "ip:" + clientIP(r)
}

// rateLimitWindow 固定窗口的起点和重置时间
func rateLimitWindow(now time.Time, windowSeconds int) (start, reset time.Time) {
	window := time.Duration(windowSeconds) * time.Second
	start = now.Truncate(window)
	return start, start.Add(window)
}

func rateLimitKey(identity string, windowStart time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%d", identity, windowStart.Unix())
}

// enforceRateLimit 固定窗口计数。redis 不可用时放行，限流不应成为单点
func (h *Handler) enforceRateLimit(w http.ResponseWriter, r *http.Request, limit int) bool {
	if !h.config.RateLimit.Enabled || limit <= 0 {
		return true
	}

	now := time.Now()
	start, reset := rateLimitWindow(now, h.config.RateLimit.WindowSeconds)
	key := rateLimitKey(rateLimitIdentity(r), start)

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationExpiration)*time.Second)
	defer cancel()

	count, err := h.redisClient.Incr(ctx, key).Result()
	if err != nil {
		slog.Warn("限流计数失败，放行请求", "request_id", shortRequestID(r), "key", key, "error", err)
		return true
	}
	if count == 1 {
		// 窗口起点编码在 key 里，过期只是为了清理
		h.redisClient.Expire(ctx, key, reset.Sub(now)+time.Minute)
	}

	remaining := int64(limit) - count
	if remaining < 0 {
		remaining = 0
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

	if count > int64(limit) {
		w.Header().Set("Retry-After", strconv.Itoa(int(reset.Sub(now).Seconds())+1))
		h.statusResponse(w, r, http.StatusTooManyRequests, "请求过于频繁，请稍后再试")
		return false
	}
	return true
}

func (h *Handler) rateLimit(limit int) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !h.enforceRateLimit(w, r, limit) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitByRole 管理员的配额比普通用户宽
func (h *Handler) rateLimitByRole(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := h.config.RateLimit.RequestsPerHour
		if role, ok := r.Context().Value(RoleCtxKey).(string); ok && domain.Role(role) == domain.RoleAdmin {
			limit = h.config.RateLimit.AdminRequestsPerHour
		}
		if !h.enforceRateLimit(w, r, limit) {
			return
		}
		next.ServeHTTP(w, r)
	})
}
