package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/dutyops-dev/duty-roster/backend/internal/config"
	"github.com/dutyops-dev/duty-roster/backend/internal/repository"
	"github.com/dutyops-dev/duty-roster/backend/internal/seed"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var weeks int
	var fixturesPath string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机用户, 2: 按 YAML 名册插入用户, 3: 插入演示排班产物)")
	flag.IntVar(&n, "n", 5, "随机用户数量或演示名册的工程师人数")
	flag.IntVar(&weeks, "weeks", 4, "演示排班覆盖的周数")
	flag.StringVar(&fixturesPath, "f", "fixtures.yaml", "YAML 名册文件路径")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if n <= 0 {
			slog.Error("请输入合法的用户数量")
			return
		}

		inserted := seed.SeedRandomUsers(repo, cfg, n)
		slog.Info("插入随机用户完成", slog.Int("count", inserted))
	case 2:
		fixtures, err := seed.LoadFixtures(fixturesPath)
		if err != nil {
			slog.Error("加载名册失败", slog.String("error", err.Error()))
			return
		}

		inserted := seed.SeedFixtureUsers(repo, cfg, fixtures)
		slog.Info("按名册插入用户完成", slog.Int("count", inserted))
	case 3:
		if n <= 0 || weeks <= 0 {
			slog.Error("请输入合法的工程师人数和周数")
			return
		}

		artifact, err := seed.SeedDemoArtifact(repo, cfg, n, weeks)
		if err != nil {
			slog.Error("插入演示排班产物失败", slog.String("error", err.Error()))
			return
		}

		slog.Info("插入演示排班产物完成", slog.String("id", artifact.ID.String()), slog.String("name", artifact.Name))
	default:
		slog.Error("指定的操作非法")
	}
}
