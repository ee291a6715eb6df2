package domain

import "time"

// 审计动作。ADMIN_ 前缀的动作由 audit.Logger 按目标资源拼出
const (
	AuditLoginSuccess             = "LOGIN_SUCCESS"
	AuditLoginFailed              = "LOGIN_FAILED"
	AuditLogout                   = "LOGOUT"
	AuditScheduleGenerated        = "SCHEDULE_GENERATED"
	AuditScheduleGenerationFailed = "SCHEDULE_GENERATION_FAILED"
	AuditArtifactCreated          = "ARTIFACT_CREATED"
	AuditArtifactDownloaded       = "ARTIFACT_DOWNLOADED"
	AuditArtifactDeleted          = "ARTIFACT_DELETED"
)

// AuditEvent: 单条审计记录。开启隐私散列时 UserID 和 IP 存的是带前缀的
// sha256 摘要而不是原始值
type AuditEvent struct {
	ID           int64          `json:"id"`
	OccurredAt   time.Time      `json:"occurredAt"`
	UserID       string         `json:"userID"`
	Action       string         `json:"action"`
	Resource     string         `json:"resource,omitempty"`
	IP           string         `json:"ip,omitempty"`
	UserAgent    string         `json:"userAgent,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Success      bool           `json:"success"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
}
