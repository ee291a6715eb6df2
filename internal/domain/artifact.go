package domain

import (
	"time"

	"github.com/google/uuid"
)

// RosterArtifact: 存档的排班产物。列表接口只返回元信息，Data 仅在下载时读出
type RosterArtifact struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Format         string    `json:"format"` // csv | xlsx | json
	CreatedBy      string    `json:"createdBy"`
	Size           int64     `json:"size"`
	ConfigHash     string    `json:"configHash"`
	EngineerCount  int       `json:"engineerCount"`
	Weeks          int       `json:"weeks"`
	StartDate      time.Time `json:"startDate"`
	EquityScore    float64   `json:"equityScore"`
	ViolationCount int       `json:"violationCount"`
	Data           []byte    `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
}
