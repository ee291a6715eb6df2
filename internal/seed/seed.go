// Package seed 提供本地联调用的数据灌入：固定用户名册、随机用户和演示排班产物。
package seed

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dutyops-dev/duty-roster/backend/internal/config"
	"github.com/dutyops-dev/duty-roster/backend/internal/domain"
	"github.com/dutyops-dev/duty-roster/backend/internal/export"
	"github.com/dutyops-dev/duty-roster/backend/internal/repository"
	"github.com/dutyops-dev/duty-roster/backend/internal/scheduler"
	"github.com/dutyops-dev/duty-roster/backend/internal/utils"
)

type FixtureUser struct {
	Username string `yaml:"username"`
	FullName string `yaml:"fullName"`
	Email    string `yaml:"email"`
	Role     string `yaml:"role"`
	// 为空时使用 SEED_USER_PASSWORD
	Password string `yaml:"password"`
}

type Fixtures struct {
	Users []FixtureUser `yaml:"users"`
}

var validRoles = []string{
	string(domain.RoleViewer),
	string(domain.RoleEditor),
	string(domain.RoleAdmin),
}

// LoadFixtures 读取并校验 YAML 名册文件
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取名册文件失败: %w", err)
	}

	fixtures := &Fixtures{}
	if err := yaml.Unmarshal(data, fixtures); err != nil {
		return nil, fmt.Errorf("解析名册文件失败: %w", err)
	}

	for i, user := range fixtures.Users {
		if user.Username == "" {
			return nil, fmt.Errorf("第 %d 个用户缺少 username", i+1)
		}
		if user.Email == "" {
			return nil, fmt.Errorf("第 %d 个用户缺少 email", i+1)
		}
		if !slices.Contains(validRoles, user.Role) {
			return nil, fmt.Errorf("第 %d 个用户的角色非法: %s", i+1, user.Role)
		}
	}

	return fixtures, nil
}

// SeedFixtureUsers 按名册插入用户，已存在的用户名跳过
func SeedFixtureUsers(repo *repository.Repository, cfg *config.Config, fixtures *Fixtures) int {
	inserted := 0
	for _, fixture := range fixtures.Users {
		if _, err := repo.GetUserByUsername(fixture.Username); err == nil {
			slog.Info("用户已存在，跳过", "username", fixture.Username)
			continue
		} else if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("查询用户失败", "username", fixture.Username, "error", err)
			continue
		}

		password := fixture.Password
		if password == "" {
			password = cfg.Seed.User.Password
		}
		passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			slog.Error("生成密码散列失败", "username", fixture.Username, "error", err)
			continue
		}

		user := &domain.User{
			Username:     fixture.Username,
			PasswordHash: string(passwordHash),
			FullName:     fixture.FullName,
			Email:        fixture.Email,
			Role:         domain.Role(fixture.Role),
		}
		if err := repo.CreateUser(user); err != nil {
			slog.Error("插入用户失败", "username", fixture.Username, "error", err)
			continue
		}

		inserted++
	}

	return inserted
}

// SeedRandomUsers 插入 n 个随机用户
func SeedRandomUsers(repo *repository.Repository, cfg *config.Config, n int) int {
	inserted := 0
	for i := 0; i < n; i++ {
		user, err := utils.GenerateRandomUser(cfg.Seed.User.Password, cfg.Email.UserDomain)
		if err != nil {
			slog.Error("生成随机用户失败", "error", err)
			continue
		}

		if err := repo.CreateUser(user); err != nil {
			slog.Error("插入用户失败", "username", user.Username, "error", err)
			continue
		}

		inserted++
	}

	return inserted
}

// SeedDemoArtifact 用随机名册跑一次排班，把 JSON 产物落库，便于演示产物接口
func SeedDemoArtifact(repo *repository.Repository, cfg *config.Config, engineers int, weeks int) (*domain.RosterArtifact, error) {
	roster := utils.GenerateRandomRoster(engineers)

	now := time.Now()
	startSunday := now.AddDate(0, 0, -int(now.Weekday()))

	params := &scheduler.Parameters{
		Engineers:   roster,
		StartSunday: startSunday,
		Weeks:       weeks,

		MinRosterSize:      cfg.Scheduler.MinRosterSize,
		MaxRosterSize:      cfg.Scheduler.MaxRosterSize,
		MaxWeeks:           cfg.Scheduler.MaxWeeks,
		OutlierThreshold:   cfg.Scheduler.OutlierThreshold,
		MinWeekdayCoverage: cfg.Scheduler.MinWeekdayCoverage,
		MinWeekendCoverage: cfg.Scheduler.MinWeekendCoverage,
	}

	s, err := scheduler.New(params)
	if err != nil {
		return nil, fmt.Errorf("排班参数非法: %w", err)
	}
	result, err := s.Generate()
	if err != nil {
		return nil, fmt.Errorf("生成排班失败: %w", err)
	}

	manager := export.NewManager(result)
	payload, err := manager.Export(export.FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("导出排班失败: %w", err)
	}

	canonical, _ := json.Marshal(map[string]any{"engineers": roster, "weeks": weeks})
	sum := sha256.Sum256(canonical)

	artifact := &domain.RosterArtifact{
		ID:            uuid.New(),
		Name:          "演示排班" + utils.GenerateRandomID(3, 3),
		Format:        string(export.FormatJSON),
		CreatedBy:     "seed",
		Size:          int64(len(payload)),
		ConfigHash:    hex.EncodeToString(sum[:])[:12],
		EngineerCount: result.Metadata.EngineerCount,
		Weeks:         result.Metadata.Weeks,
		StartDate:     result.Metadata.StartDate,
		Data:          payload,
	}
	if result.FairnessReport != nil {
		artifact.EquityScore = result.FairnessReport.EquityScore
	}
	if result.Violations != nil {
		artifact.ViolationCount = result.Violations.Total
	}

	if err := repo.InsertRosterArtifact(artifact); err != nil {
		return nil, fmt.Errorf("插入排班产物失败: %w", err)
	}

	return artifact, nil
}
