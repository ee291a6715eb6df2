package scheduler

import (
	"fmt"
	"strconv"
	"time"
)

// Role: 值班角色
type Role string

const (
	RoleWeekend      Role = "weekend"
	RoleChat         Role = "chat"
	RoleOnCall       Role = "oncall"
	RoleAppointments Role = "appointments"
	RoleEarly        Role = "early"
)

// Roles 按公平性报告中的固定顺序列出所有角色
var Roles = []Role{RoleWeekend, RoleChat, RoleOnCall, RoleAppointments, RoleEarly}

// RoleWeights: 各角色在公平性统计中的权重（周末负担最重）
var RoleWeights = map[Role]float64{
	RoleWeekend:      2.0,
	RoleOnCall:       1.5,
	RoleEarly:        1.2,
	RoleChat:         1.0,
	RoleAppointments: 1.0,
}

// 工程师每日状态
const (
	StatusWork  = "WORK"
	StatusOff   = "OFF"
	StatusLeave = "LEAVE"
)

// 班次时段
const (
	ShiftEarly    = "06:45-15:45"
	ShiftStandard = "08:00-17:00"
	ShiftWeekend  = "Weekend"
)

// SchemaVersion: 输出结构的版本号，导出与存档时会携带
const SchemaVersion = "2.0"

// Seeds: 每个角色的轮换种子，取值范围 0..n-1
type Seeds struct {
	Weekend      int `json:"weekend"`
	Chat         int `json:"chat"`
	OnCall       int `json:"oncall"`
	Appointments int `json:"appointments"`
	Early        int `json:"early"`
}

func (s Seeds) ForRole(role Role) int {
	switch role {
	case RoleWeekend:
		return s.Weekend
	case RoleChat:
		return s.Chat
	case RoleOnCall:
		return s.OnCall
	case RoleAppointments:
		return s.Appointments
	case RoleEarly:
		return s.Early
	default:
		return 0
	}
}

// LeaveRecord: 规范化后的请假记录，入口适配器负责把各种外部形状统一成它
type LeaveRecord struct {
	Engineer string    `json:"engineer"`
	Date     time.Time `json:"date"`
	Reason   string    `json:"reason,omitempty"`
}

// Parameters: 一次排班生成的全部输入
type Parameters struct {
	Engineers   []string
	StartSunday time.Time
	Weeks       int
	Seeds       Seeds
	Leave       []LeaveRecord

	// 行为开关
	EarlyOnWeekends          bool // 周末是否也安排早班
	FairnessWeightedWeekends bool // 周末轮换是否按公平性加权（默认纯轮换）

	// 约束参数，零值时由 New 填充默认值
	MinRosterSize      int
	MaxRosterSize      int
	MaxWeeks           int
	OutlierThreshold   float64
	MinWeekdayCoverage int
	MinWeekendCoverage int
}

// 约束参数默认值
const (
	DefaultMinRosterSize      = 2
	DefaultMaxRosterSize      = 20
	DefaultMaxWeeks           = 52
	DefaultOutlierThreshold   = 1.5
	DefaultMinWeekdayCoverage = 3
	DefaultMinWeekendCoverage = 1
)

// ConfigurationError: 生成开始前的配置校验错误，带上出错的字段
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("配置错误 [%s]: %s", e.Field, e.Message)
}

// EngineerCell: 行中单个工程师的 (姓名, 状态, 班次) 三元组
type EngineerCell struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Shift  string `json:"shift"`
}

// Row: 单日排班记录
type Row struct {
	Date         time.Time      `json:"date"`
	Day          string         `json:"day"` // "Sun".."Sat"
	WeekIndex    int            `json:"weekIndex"`
	Early1       string         `json:"early1"`
	Early2       string         `json:"early2"`
	Chat         string         `json:"chat"`
	OnCall       string         `json:"oncall"`
	Appointments string         `json:"appointments"`
	Engineers    []EngineerCell `json:"engineers"`
	Tickets      []string       `json:"tickets"` // 没有具体角色的在岗工程师
}

// Cells 按导出表头顺序展开为字符串单元格
func (r *Row) Cells() []string {
	cells := make([]string, 0, 8+3*len(r.Engineers))
	cells = append(cells,
		r.Date.Format(time.DateOnly),
		r.Day,
		strconv.Itoa(r.WeekIndex),
		r.Early1,
		r.Early2,
		r.Chat,
		r.OnCall,
		r.Appointments,
	)
	for _, cell := range r.Engineers {
		cells = append(cells, cell.Name, cell.Status, cell.Shift)
	}
	return cells
}

// Headers 返回与 Row.Cells 对应的导出表头
func Headers(roster []string) []string {
	headers := []string{"Date", "Day", "WeekIndex", "Early1", "Early2", "Chat", "OnCall", "Appointments"}
	for i := range roster {
		headers = append(headers,
			fmt.Sprintf("%d) Engineer", i+1),
			fmt.Sprintf("Status %d", i+1),
			fmt.Sprintf("Shift %d", i+1),
		)
	}
	return headers
}

// DecisionEntry: 决策日志条目。条目内容为对外契约，使用英文
type DecisionEntry struct {
	Date         string    `json:"date"`
	Type         string    `json:"decisionType"`
	Affected     []string  `json:"affectedEngineers"`
	Reason       string    `json:"reason"`
	Alternatives []string  `json:"alternativesConsidered"`
	Timestamp    time.Time `json:"timestamp"`
}

// 固定的决策类型；角色相关类型由 roleAssignmentType 等函数拼出
const (
	DecisionEnhancedOnCall       = "enhanced_oncall_assignment"
	DecisionEnhancedEarly        = "enhanced_early_shift_assignment"
	DecisionWeekendEarly         = "weekend_early_shift_assignment"
	DecisionEnhancedBackfill     = "enhanced_backfill_selection"
	DecisionBackfillFailure      = "backfill_selection_failure"
	DecisionLeaveExclusion       = "leave_exclusion"
	DecisionLeaveCoverageWarning = "leave_coverage_warning"
)

// CompensationRecord: 周末值班换来的调休记录
type CompensationRecord struct {
	Engineer    string      `json:"engineer"`
	WeekendDate time.Time   `json:"weekendDate"`
	CompDates   []time.Time `json:"compDates"`
	Pattern     string      `json:"pattern"` // "A"、"B" 或合并后的 "A+B"
}

// EngineerStats: 单个工程师的角色统计，来源是最终生成的行而不是 tracker 内部状态
type EngineerStats struct {
	Name              string `json:"name"`
	WeekendCount      int    `json:"weekendCount"`
	OnCallCount       int    `json:"oncallCount"`
	EarlyCount        int    `json:"earlyCount"`
	ChatCount         int    `json:"chatCount"`
	AppointmentsCount int    `json:"appointmentsCount"`
	TotalWorkDays     int    `json:"totalWorkDays"`
	LeaveDays         int    `json:"leaveDays"`
}

// CountForRole 返回该工程师在指定角色上的次数
func (s EngineerStats) CountForRole(role Role) int {
	switch role {
	case RoleWeekend:
		return s.WeekendCount
	case RoleOnCall:
		return s.OnCallCount
	case RoleEarly:
		return s.EarlyCount
	case RoleChat:
		return s.ChatCount
	case RoleAppointments:
		return s.AppointmentsCount
	default:
		return 0
	}
}

// FairnessReport: 公平性报告
type FairnessReport struct {
	EngineerStats map[string]EngineerStats `json:"engineerStats"`
	EquityScore   float64                  `json:"equityScore"` // Gini 系数，0 表示完全平均
	MaxMinDeltas  map[string]int           `json:"maxMinDeltas"`
	GeneratedAt   time.Time                `json:"generationTimestamp"`
}

// 违规严重程度
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// 违规类型
const (
	ViolationNoOnCallWeekends       = "no_oncall_weekends"
	ViolationStatusFieldIntegrity   = "status_field_integrity"
	ViolationEngineerFieldIntegrity = "engineer_field_integrity"
	ViolationDoubleBooking          = "double_booking"
	ViolationLeaveExclusivity       = "leave_exclusivity"
	ViolationFairnessDistribution   = "fairness_distribution"
	ViolationDateContinuity         = "date_continuity"
)

// Violation: 完成后批量校验发现的单条违规，不会阻断输出
type Violation struct {
	Kind      string   `json:"kind"`
	Severity  string   `json:"severity"`
	Message   string   `json:"message"`
	Dates     []string `json:"dates,omitempty"`
	Engineers []string `json:"engineers,omitempty"`
}

// ViolationSummary: 违规汇总
type ViolationSummary struct {
	Total      int            `json:"total"`
	BySeverity map[string]int `json:"bySeverity"`
	ByKind     map[string]int `json:"byKind"`
	Critical   []string       `json:"criticalIssues"`
	Violations []Violation    `json:"violations"`
}

// Metadata: 生成元信息
type Metadata struct {
	GeneratedAt   time.Time      `json:"generationTimestamp"`
	Configuration map[string]any `json:"configuration"`
	Engineers     []string       `json:"engineers"`
	EngineerCount int            `json:"engineerCount"`
	Weeks         int            `json:"weeks"`
	StartDate     time.Time      `json:"startDate"`
	EndDate       time.Time      `json:"endDate"`
	TotalDays     int            `json:"totalDays"`
	SchemaVersion string         `json:"schemaVersion"`
}

// Result: 一次生成的完整产物
type Result struct {
	Rows             []Row                `json:"rows"`
	FairnessReport   *FairnessReport      `json:"fairnessReport"`
	FairnessInsights []string             `json:"fairnessInsights"`
	DecisionLog      []DecisionEntry      `json:"decisionLog"`
	Compensations    []CompensationRecord `json:"weekendCompensation"`
	Violations       *ViolationSummary    `json:"violationSummary"`
	Metadata         Metadata             `json:"metadata"`
}

// Headers 返回导出表头，与 TabularRows 的列一一对应
func (r *Result) Headers() []string {
	return Headers(r.Metadata.Engineers)
}

// TabularRows 把所有行展开为字符串表格，供 CSV/XLSX 导出使用
func (r *Result) TabularRows() [][]string {
	rows := make([][]string, 0, len(r.Rows))
	for i := range r.Rows {
		rows = append(rows, r.Rows[i].Cells())
	}
	return rows
}
