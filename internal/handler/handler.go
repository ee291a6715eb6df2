package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/dutyops-dev/duty-roster/backend/internal/audit"
	"github.com/dutyops-dev/duty-roster/backend/internal/config"
	"github.com/dutyops-dev/duty-roster/backend/internal/domain"
	"github.com/dutyops-dev/duty-roster/backend/internal/repository"
)

// MailQueueName 与 cmd/api 声明、cmd/mail 消费的队列名保持一致
const MailQueueName = "email_queue"

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  *repository.Repository
	translator  ut.Translator
	mailChannel *amqp.Channel
	redisClient *redis.Client
	audit       *audit.Logger

	// /metrics 暴露的生成计数
	generations        atomic.Int64
	generationFailures atomic.Int64
	artifactsStored    atomic.Int64

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, mailCh *amqp.Channel, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		translator:  trans,
		mailChannel: mailCh,
		redisClient: rdb,
		audit:       audit.NewLogger(repo, cfg.Audit.PrivacyHashing),

		Mux: chi.NewRouter(),
	}, nil
}

// publishMail 把邮件消息投递到队列，由 cmd/mail 异步发送
func (h *Handler) publishMail(msg domain.MailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	return h.mailChannel.PublishWithContext(
		ctx,
		"",
		MailQueueName,
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.requestID)
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)
	h.Mux.Use(h.securityHeaders)
	h.Mux.Use(h.bodyLimit)

	h.Mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.statusResponse(w, r, http.StatusNotFound, "接口不存在")
	})
	h.Mux.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.statusResponse(w, r, http.StatusMethodNotAllowed, "请求方法不允许")
	})

	// 探活接口不走认证，用宽松的独立限流桶
	h.Mux.With(h.rateLimit(h.config.RateLimit.HealthRequestsPerHour)).Get("/healthz", h.Healthz)
	h.Mux.With(h.rateLimit(h.config.RateLimit.ReadyRequestsPerHour)).Get("/readyz", h.Readyz)
	h.Mux.With(h.requireAuth, h.RequireRole(domain.RoleAdmin), h.rateLimit(h.config.RateLimit.MetricsRequestsPerHour)).Get("/metrics", h.Metrics)

	h.Mux.Route("/api", func(r chi.Router) {
		// 认证相关，登录前按 IP 限流
		r.Route("/auth", func(r chi.Router) {
			r.Use(h.rateLimit(h.config.RateLimit.RequestsPerHour))
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.Route("/reset-password", func(r chi.Router) {
				r.Post("/request", h.RequestResetPassword)
				r.Post("/confirm", h.ConfirmResetPassword)
			})
		})

		// 以下 API 必须要在登录后才允许调用
		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Use(h.rateLimitByRole)

			r.Route("/me", func(r chi.Router) {
				r.Use(h.myInfo)
				r.Get("/", h.GetMyInfo)
				r.Post("/password", h.UpdateMyPassword)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", h.GetAllUserInfo) // 登录用户都可以看用户目录
				r.With(h.RequireRole(domain.RoleAdmin)).Post("/", h.CreateUser)
				r.Route("/{userID}", func(r chi.Router) {
					r.Use(h.userInfo)
					r.Get("/", h.GetUserInfo)
					r.With(h.preventOperateInitialAdmin, h.RequireRole(domain.RoleAdmin)).Patch("/", h.UpdateUser)
					r.With(h.preventOperateInitialAdmin, h.RequireRole(domain.RoleAdmin)).Delete("/", h.DeleteUser)
					r.With(h.RequireRole(domain.RoleAdmin)).Post("/password", h.UpdateUserPassword)
				})
			})

			r.Route("/roster", func(r chi.Router) {
				r.Use(h.RequireRole(domain.RoleEditor, domain.RoleAdmin))
				r.Post("/generate", h.GenerateRoster)
				r.Route("/artifacts", func(r chi.Router) {
					r.Get("/", h.ListRosterArtifacts)
					r.Route("/{artifactID}", func(r chi.Router) {
						r.Use(h.artifactInfo)
						r.Get("/", h.GetRosterArtifact)
						r.With(h.RequireRole(domain.RoleAdmin)).Delete("/", h.DeleteRosterArtifact)
					})
				})
			})

			r.With(h.RequireRole(domain.RoleAdmin)).Get("/audit", h.GetAuditTrail)
		})
	})
}
