// Package audit 同步写审计事件。开启隐私散列时，
// 用户标识、IP 和元信息里的姓名、邮箱都只存 sha256 摘要
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"

	"github.com/dutyops-dev/duty-roster/backend/internal/domain"
)

// Store 审计事件的持久化端，由 repository 实现
type Store interface {
	InsertAuditEvent(event *domain.AuditEvent) error
}

type Logger struct {
	store   Store
	hashing bool
}

func NewLogger(store Store, privacyHashing bool) *Logger {
	return &Logger{store: store, hashing: privacyHashing}
}

// Log 写入一条事件。写库失败只记日志不上抛，审计不能把业务请求打挂
func (l *Logger) Log(event domain.AuditEvent) {
	event.UserID = l.hash(event.UserID, "user")
	event.IP = l.hash(event.IP, "ip")
	event.Metadata = l.sanitizeMetadata(event.Metadata)

	if err := l.store.InsertAuditEvent(&event); err != nil {
		slog.Error("写入审计事件失败", "action", event.Action, "error", err)
	}
}

func (l *Logger) LogAuthentication(userID string, success bool, ip string, userAgent string, errMsg string) {
	action := domain.AuditLoginSuccess
	if !success {
		action = domain.AuditLoginFailed
	}
	l.Log(domain.AuditEvent{
		UserID:       userID,
		Action:       action,
		IP:           ip,
		UserAgent:    userAgent,
		Success:      success,
		ErrorMessage: errMsg,
	})
}

func (l *Logger) LogScheduleGeneration(userID string, engineerCount int, weeks int, format string, success bool, errMsg string, ip string) {
	action := domain.AuditScheduleGenerated
	if !success {
		action = domain.AuditScheduleGenerationFailed
	}
	l.Log(domain.AuditEvent{
		UserID: userID,
		Action: action,
		IP:     ip,
		Metadata: map[string]any{
			"engineerCount": engineerCount,
			"weeks":         weeks,
			"format":        format,
		},
		Success:      success,
		ErrorMessage: errMsg,
	})
}

func (l *Logger) LogArtifactAccess(userID string, artifactID string, verb string, success bool, errMsg string, ip string) {
	l.Log(domain.AuditEvent{
		UserID:       userID,
		Action:       "ARTIFACT_" + strings.ToUpper(verb),
		Resource:     artifactID,
		IP:           ip,
		Success:      success,
		ErrorMessage: errMsg,
	})
}

func (l *Logger) LogAdminAction(userID string, verb string, resource string, metadata map[string]any, success bool, errMsg string, ip string) {
	l.Log(domain.AuditEvent{
		UserID:       userID,
		Action:       "ADMIN_" + strings.ToUpper(verb),
		Resource:     resource,
		IP:           ip,
		Metadata:     metadata,
		Success:      success,
		ErrorMessage: errMsg,
	})
}

// sanitizeMetadata 把元信息中的姓名和邮箱换成摘要，其余键原样保留
func (l *Logger) sanitizeMetadata(metadata map[string]any) map[string]any {
	if !l.hashing || len(metadata) == 0 {
		return metadata
	}

	safe := make(map[string]any, len(metadata))
	for key, value := range metadata {
		switch key {
		case "engineers", "engineerNames", "names":
			safe[key] = l.hashAny(value, "engineer")
		case "email", "emails":
			safe[key] = l.hashAny(value, "email")
		default:
			safe[key] = value
		}
	}
	return safe
}

func (l *Logger) hashAny(value any, prefix string) any {
	switch v := value.(type) {
	case []string:
		hashed := make([]string, len(v))
		for i, item := range v {
			hashed[i] = l.hash(item, prefix)
		}
		return hashed
	case string:
		return l.hash(v, prefix)
	default:
		return value
	}
}

func (l *Logger) hash(value string, prefix string) string {
	if !l.hashing || value == "" {
		return value
	}
	sum := sha256.Sum256([]byte(value))
	return prefix + "_" + hex.EncodeToString(sum[:])[:12]
}
