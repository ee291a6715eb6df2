package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dutyops-dev/duty-roster/backend/internal/domain"
)

func (r *Repository) InsertAuditEvent(event *domain.AuditEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO audit_events (user_id, action, resource, ip, user_agent, metadata, success, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, occurred_at
	`

	args := []any{
		event.UserID,
		event.Action,
		event.Resource,
		event.IP,
		event.UserAgent,
		metadata,
		event.Success,
		event.ErrorMessage,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&event.ID, &event.OccurredAt); err != nil {
		return err
	}

	return nil
}

// GetAuditTrail 按动作子串和用户过滤，最新的在前。空过滤条件表示不过滤
func (r *Repository) GetAuditTrail(action string, userID string, limit int) ([]*domain.AuditEvent, error) {
	query := `
		SELECT id, occurred_at, user_id, action, resource, ip, user_agent, metadata, success, error_message
		FROM audit_events
		WHERE ($1 = '' OR action LIKE '%' || $1 || '%')
		  AND ($2 = '' OR user_id = $2)
		ORDER BY occurred_at DESC
		LIMIT $3
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, action, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*domain.AuditEvent, 0)
	for rows.Next() {
		event := &domain.AuditEvent{}
		var metadata []byte

		dst := []any{
			&event.ID,
			&event.OccurredAt,
			&event.UserID,
			&event.Action,
			&event.Resource,
			&event.IP,
			&event.UserAgent,
			&metadata,
			&event.Success,
			&event.ErrorMessage,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, err
			}
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
