package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

// InvariantChecker 对生成结果做事后校验，发现的违规只记录不阻断输出
type InvariantChecker struct {
	roster     []string
	rosterSet  map[string]bool
	violations []Violation
}

func NewInvariantChecker(roster []string) *InvariantChecker {
	set := make(map[string]bool, len(roster))
	for _, name := range roster {
		set[name] = true
	}
	return &InvariantChecker{roster: roster, rosterSet: set}
}

// CheckAll 依次运行所有基于排班行的检查并返回累计违规
func (c *InvariantChecker) CheckAll(rows []Row, leave []LeaveRecord, startSunday time.Time, weeks int) []Violation {
	c.violations = nil
	c.checkNoOnCallWeekends(rows)
	c.checkStatusFieldIntegrity(rows)
	c.checkEngineerFieldIntegrity(rows)
	c.checkDoubleBooking(rows)
	c.checkLeaveExclusivity(rows, leave)
	c.checkDateContinuity(rows, startSunday, weeks)
	return c.violations
}

// checkNoOnCallWeekends 周末不允许出现值班位
func (c *InvariantChecker) checkNoOnCallWeekends(rows []Row) {
	var dates, engineers []string
	for _, row := range rows {
		if !isWeekday(row.Date) && strings.TrimSpace(row.OnCall) != "" {
			dates = append(dates, row.Date.Format(time.DateOnly))
			engineers = append(engineers, row.OnCall)
		}
	}
	if len(dates) > 0 {
		c.violations = append(c.violations, Violation{
			Kind:      ViolationNoOnCallWeekends,
			Severity:  SeverityError,
			Message:   fmt.Sprintf("Found %d oncall assignments on weekends", len(dates)),
			Dates:     dates,
			Engineers: lo.Uniq(engineers),
		})
	}
}

// checkStatusFieldIntegrity 状态列只允许 WORK/OFF/LEAVE/空，出现人名说明列错位
func (c *InvariantChecker) checkStatusFieldIntegrity(rows []Row) {
	valid := map[string]bool{StatusWork: true, StatusOff: true, StatusLeave: true, "": true}
	var dates []string
	count := 0
	for _, row := range rows {
		for _, cell := range row.Engineers {
			status := strings.TrimSpace(cell.Status)
			if c.rosterSet[status] || !valid[status] {
				count++
				dates = append(dates, row.Date.Format(time.DateOnly))
			}
		}
	}
	if count > 0 {
		c.violations = append(c.violations, Violation{
			Kind:     ViolationStatusFieldIntegrity,
			Severity: SeverityError,
			Message:  fmt.Sprintf("Found %d invalid status field values", count),
			Dates:    lo.Uniq(dates),
		})
	}
}

// checkEngineerFieldIntegrity 角色列只允许名册内的人名或空，
// 含冒号或全数字的值视为时间串串列
func (c *InvariantChecker) checkEngineerFieldIntegrity(rows []Row) {
	var dates, bad []string
	for _, row := range rows {
		for _, value := range []string{row.Early1, row.Early2, row.Chat, row.OnCall, row.Appointments} {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			if strings.Contains(value, ":") || isAllDigits(value) || !c.rosterSet[value] {
				dates = append(dates, row.Date.Format(time.DateOnly))
				bad = append(bad, value)
			}
		}
	}
	if len(bad) > 0 {
		c.violations = append(c.violations, Violation{
			Kind:      ViolationEngineerFieldIntegrity,
			Severity:  SeverityError,
			Message:   fmt.Sprintf("Found %d invalid engineer field values: %s", len(bad), strings.Join(lo.Uniq(bad), ", ")),
			Dates:     lo.Uniq(dates),
			Engineers: lo.Uniq(lo.Filter(bad, func(v string, _ int) bool { return c.rosterSet[v] })),
		})
	}
}

// checkDoubleBooking 工作日同一人不得占用多个角色位，值班人兼早班一除外
func (c *InvariantChecker) checkDoubleBooking(rows []Row) {
	var dates, engineers []string
	count := 0
	for _, row := range rows {
		if !isWeekday(row.Date) {
			continue
		}
		occupied := map[string]int{}
		for _, value := range append([]string{row.Early2, row.Chat, row.OnCall, row.Appointments}, row.Tickets...) {
			if value != "" {
				occupied[value]++
			}
		}
		// 早班一与值班同人是设计行为，只有不同人时才计入
		if row.Early1 != "" && row.Early1 != row.OnCall {
			occupied[row.Early1]++
		}
		for name, n := range occupied {
			if n > 1 {
				count++
				dates = append(dates, row.Date.Format(time.DateOnly))
				engineers = append(engineers, name)
			}
		}
	}
	if count > 0 {
		c.violations = append(c.violations, Violation{
			Kind:      ViolationDoubleBooking,
			Severity:  SeverityError,
			Message:   fmt.Sprintf("Found %d double-booked role assignments", count),
			Dates:     lo.Uniq(dates),
			Engineers: lo.Uniq(engineers),
		})
	}
}

// checkLeaveExclusivity 请假当天不得出现在任何角色位或工单池中
func (c *InvariantChecker) checkLeaveExclusivity(rows []Row, leave []LeaveRecord) {
	onLeave := map[string]map[string]bool{}
	for _, rec := range leave {
		key := DateOnly(rec.Date).Format(time.DateOnly)
		if onLeave[key] == nil {
			onLeave[key] = map[string]bool{}
		}
		onLeave[key][rec.Engineer] = true
	}

	var dates, engineers []string
	count := 0
	for _, row := range rows {
		key := row.Date.Format(time.DateOnly)
		leaveToday := onLeave[key]
		if len(leaveToday) == 0 {
			continue
		}
		assigned := append([]string{row.Early1, row.Early2, row.Chat, row.OnCall, row.Appointments}, row.Tickets...)
		for _, name := range lo.Uniq(assigned) {
			if name != "" && leaveToday[name] {
				count++
				dates = append(dates, key)
				engineers = append(engineers, name)
			}
		}
	}
	if count > 0 {
		c.violations = append(c.violations, Violation{
			Kind:      ViolationLeaveExclusivity,
			Severity:  SeverityError,
			Message:   fmt.Sprintf("Found %d assignments for engineers on leave", count),
			Dates:     lo.Uniq(dates),
			Engineers: lo.Uniq(engineers),
		})
	}
}

// checkDateContinuity 日期必须从起始周日起连续且恰好 weeks*7 天
func (c *InvariantChecker) checkDateContinuity(rows []Row, startSunday time.Time, weeks int) {
	expected := weeks * 7
	var problems []string
	if len(rows) != expected {
		problems = append(problems, fmt.Sprintf("expected %d rows, got %d", expected, len(rows)))
	}
	for i, row := range rows {
		want := startSunday.AddDate(0, 0, i)
		if !DateOnly(row.Date).Equal(want) {
			problems = append(problems, fmt.Sprintf("row %d: expected %s, got %s",
				i, want.Format(time.DateOnly), row.Date.Format(time.DateOnly)))
		}
	}
	if len(problems) > 0 {
		c.violations = append(c.violations, Violation{
			Kind:     ViolationDateContinuity,
			Severity: SeverityError,
			Message:  fmt.Sprintf("Schedule dates are not continuous: %s", strings.Join(problems, "; ")),
		})
	}
}

// CheckFairness 按角色检查指派次数的最大最小差：超过 1 记警告，超过 2 记错误。
// 结果单独返回，不并入 CheckAll 的累计清单
func (c *InvariantChecker) CheckFairness(report *FairnessReport) []Violation {
	if report == nil || len(report.EngineerStats) < 2 {
		return nil
	}

	var violations []Violation
	for _, role := range Roles {
		counts := lo.Map(c.roster, func(name string, _ int) int {
			if stats, ok := report.EngineerStats[name]; ok {
				return stats.CountForRole(role)
			}
			return 0
		})
		minCount := lo.Min(counts)
		maxCount := lo.Max(counts)
		delta := maxCount - minCount
		if delta <= 1 {
			continue
		}

		severity := SeverityWarning
		if delta > 2 {
			severity = SeverityError
		}
		violations = append(violations, Violation{
			Kind:     ViolationFairnessDistribution,
			Severity: severity,
			Message: fmt.Sprintf("Unfair distribution in %s assignments: min %d, max %d, delta %d",
				role, minCount, maxCount, delta),
		})
	}
	return violations
}

// SummarizeViolations 汇总违规清单：总数、按严重级别、按类型，错误消息单列
func SummarizeViolations(violations []Violation) *ViolationSummary {
	summary := &ViolationSummary{
		Total:      len(violations),
		BySeverity: map[string]int{},
		ByKind:     map[string]int{},
		Critical:   []string{},
		Violations: violations,
	}
	if violations == nil {
		summary.Violations = []Violation{}
	}
	for _, v := range violations {
		summary.BySeverity[v.Severity]++
		summary.ByKind[v.Kind]++
		if v.Severity == SeverityError {
			summary.Critical = append(summary.Critical, v.Message)
		}
	}
	return summary
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
