package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dutyops-dev/duty-roster/backend/internal/domain"
)

func (r *Repository) InsertRosterArtifact(artifact *domain.RosterArtifact) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO roster_artifacts
			(id, name, format, created_by, size, config_hash, engineer_count, weeks, start_date, equity_score, violation_count, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`

	args := []any{
		artifact.ID,
		artifact.Name,
		artifact.Format,
		artifact.CreatedBy,
		artifact.Size,
		artifact.ConfigHash,
		artifact.EngineerCount,
		artifact.Weeks,
		artifact.StartDate,
		artifact.EquityScore,
		artifact.ViolationCount,
		artifact.Data,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&artifact.CreatedAt); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetRosterArtifactByID(id uuid.UUID) (*domain.RosterArtifact, error) {
	query := `
		SELECT name, format, created_by, size, config_hash, engineer_count, weeks, start_date, equity_score, violation_count, data, created_at
		FROM roster_artifacts WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	artifact := &domain.RosterArtifact{
		ID: id,
	}

	dst := []any{
		&artifact.Name,
		&artifact.Format,
		&artifact.CreatedBy,
		&artifact.Size,
		&artifact.ConfigHash,
		&artifact.EngineerCount,
		&artifact.Weeks,
		&artifact.StartDate,
		&artifact.EquityScore,
		&artifact.ViolationCount,
		&artifact.Data,
		&artifact.CreatedAt,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return artifact, nil
}

// GetAllRosterArtifacts 只取元信息不取 data，列表接口不需要把文件内容捞出来
func (r *Repository) GetAllRosterArtifacts(limit int) ([]*domain.RosterArtifact, error) {
	query := `
		SELECT id, name, format, created_by, size, config_hash, engineer_count, weeks, start_date, equity_score, violation_count, created_at
		FROM roster_artifacts
		ORDER BY created_at DESC
		LIMIT $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	artifacts := make([]*domain.RosterArtifact, 0)
	for rows.Next() {
		artifact := &domain.RosterArtifact{}
		dst := []any{
			&artifact.ID,
			&artifact.Name,
			&artifact.Format,
			&artifact.CreatedBy,
			&artifact.Size,
			&artifact.ConfigHash,
			&artifact.EngineerCount,
			&artifact.Weeks,
			&artifact.StartDate,
			&artifact.EquityScore,
			&artifact.ViolationCount,
			&artifact.CreatedAt,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return artifacts, nil
}

func (r *Repository) DeleteRosterArtifact(id uuid.UUID) error {
	query := `
		DELETE FROM roster_artifacts WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return nil
}

// DeleteRosterArtifactsBefore 清理过保留期的存档，由 cmd/api 中的定时任务调用
func (r *Repository) DeleteRosterArtifactsBefore(cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM roster_artifacts WHERE created_at < $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	result, err := r.dbpool.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
