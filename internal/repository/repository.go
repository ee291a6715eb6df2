package repository

import (
	"context"
	"database/sql"

	"github.com/dutyops-dev/duty-roster/backend/internal/config"
)

type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
	}
}

// Ping 就绪探针用，确认数据库连接可用
func (r *Repository) Ping(ctx context.Context) error {
	return r.dbpool.PingContext(ctx)
}
