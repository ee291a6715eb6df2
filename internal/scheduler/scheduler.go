// Package scheduler 实现确定性的值班表生成：
// 周末按种子轮换，工作日角色按公平性加权选择，
// 同样的输入永远产出同样的结果。
package scheduler

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
)

type Scheduler struct {
	params *Parameters
}

// run 单次生成过程的全部工作状态
type run struct {
	params    *Parameters
	roster    []string
	tracker   *FairnessTracker
	weekend   *weekendScheduler
	log       *decisionLog
	leave     map[string]map[string]bool // 日期 -> 请假人集合
	conflicts []Violation
}

// New 校验配置并返回调度器。
// 任何配置问题都在生成开始前以 ConfigurationError 暴露，绝不返回半成品
func New(params *Parameters) (*Scheduler, error) {
	if params == nil {
		return nil, &ConfigurationError{Field: "parameters", Message: "参数不能为空"}
	}

	p := *params
	if p.MinRosterSize <= 0 {
		p.MinRosterSize = DefaultMinRosterSize
	}
	if p.MaxRosterSize <= 0 {
		p.MaxRosterSize = DefaultMaxRosterSize
	}
	if p.MaxWeeks <= 0 {
		p.MaxWeeks = DefaultMaxWeeks
	}
	if p.OutlierThreshold <= 0 {
		p.OutlierThreshold = DefaultOutlierThreshold
	}
	if p.MinWeekdayCoverage <= 0 {
		p.MinWeekdayCoverage = DefaultMinWeekdayCoverage
	}
	if p.MinWeekendCoverage <= 0 {
		p.MinWeekendCoverage = DefaultMinWeekendCoverage
	}
	p.StartSunday = DateOnly(p.StartSunday)

	n := len(p.Engineers)
	if n < p.MinRosterSize || n > p.MaxRosterSize {
		return nil, &ConfigurationError{
			Field:   "engineers",
			Message: fmt.Sprintf("名册人数必须在 %d 到 %d 之间，当前为 %d", p.MinRosterSize, p.MaxRosterSize, n),
		}
	}
	for i, name := range p.Engineers {
		if strings.TrimSpace(name) == "" {
			return nil, &ConfigurationError{
				Field:   "engineers",
				Message: fmt.Sprintf("第 %d 个工程师姓名为空", i+1),
			}
		}
	}
	if dups := lo.FindDuplicates(p.Engineers); len(dups) > 0 {
		return nil, &ConfigurationError{
			Field:   "engineers",
			Message: fmt.Sprintf("名册中存在重复姓名: %s", strings.Join(dups, ", ")),
		}
	}
	if p.StartSunday.Weekday() != time.Sunday {
		return nil, &ConfigurationError{Field: "startSunday", Message: "起始日期必须是周日"}
	}
	if p.Weeks < 1 || p.Weeks > p.MaxWeeks {
		return nil, &ConfigurationError{
			Field:   "weeks",
			Message: fmt.Sprintf("周数必须在 1 到 %d 之间", p.MaxWeeks),
		}
	}
	for _, role := range Roles {
		if seed := p.Seeds.ForRole(role); seed < 0 || seed >= n {
			return nil, &ConfigurationError{
				Field:   "seeds",
				Message: fmt.Sprintf("%s 种子必须在 0 到 %d 之间，当前为 %d", role, n-1, seed),
			}
		}
	}

	rosterSet := make(map[string]bool, n)
	for _, name := range p.Engineers {
		rosterSet[name] = true
	}
	for _, rec := range p.Leave {
		if !rosterSet[rec.Engineer] {
			return nil, &ConfigurationError{
				Field:   "leave",
				Message: fmt.Sprintf("请假记录中的 %s 不在名册中", rec.Engineer),
			}
		}
	}

	return &Scheduler{params: &p}, nil
}

// newRun 初始化一次生成所需的全部工作状态
func newRun(p *Parameters) (*run, error) {
	rotation, err := BuildRotation(p.Engineers, p.Seeds.Weekend)
	if err != nil {
		return nil, err
	}

	tracker := NewFairnessTracker(p.Engineers, p.OutlierThreshold)
	return &run{
		params:  p,
		roster:  p.Engineers,
		tracker: tracker,
		weekend: newWeekendScheduler(rotation, p.Seeds.Weekend, p.FairnessWeightedWeekends, tracker),
		log:     newDecisionLog(),
		leave:   leaveByDate(p.Leave),
	}, nil
}

// Generate 生成完整值班表及其全部附属产物：
// 公平性报告与结论、决策日志、调休记录、违规汇总和元信息
func (s *Scheduler) Generate() (*Result, error) {
	p := s.params

	r, err := newRun(p)
	if err != nil {
		return nil, err
	}

	totalDays := p.Weeks * 7
	rows := make([]Row, 0, totalDays)
	for dayIdx := 0; dayIdx < totalDays; dayIdx++ {
		d := p.StartSunday.AddDate(0, 0, dayIdx)
		rows = append(rows, r.assignDay(d, dayIdx))
	}

	report := buildFairnessReport(rows, p.Engineers)

	checker := NewInvariantChecker(p.Engineers)
	violations := checker.CheckAll(rows, p.Leave, p.StartSunday, p.Weeks)
	violations = append(violations, checker.CheckFairness(report)...)
	violations = append(violations, r.conflicts...)

	return &Result{
		Rows:             rows,
		FairnessReport:   report,
		FairnessInsights: GenerateFairnessInsights(report),
		DecisionLog:      r.log.entries,
		Compensations:    r.weekend.compensationRecords(p.StartSunday, p.Weeks),
		Violations:       SummarizeViolations(violations),
		Metadata: Metadata{
			GeneratedAt:   time.Now().UTC(),
			Configuration: s.configuration(),
			Engineers:     p.Engineers,
			EngineerCount: len(p.Engineers),
			Weeks:         p.Weeks,
			StartDate:     p.StartSunday,
			EndDate:       p.StartSunday.AddDate(0, 0, totalDays-1),
			TotalDays:     totalDays,
			SchemaVersion: SchemaVersion,
		},
	}, nil
}

// configuration 写入元信息的生效配置快照
func (s *Scheduler) configuration() map[string]any {
	p := s.params
	return map[string]any{
		"seeds": map[string]int{
			string(RoleWeekend):      p.Seeds.Weekend,
			string(RoleChat):         p.Seeds.Chat,
			string(RoleOnCall):       p.Seeds.OnCall,
			string(RoleAppointments): p.Seeds.Appointments,
			string(RoleEarly):        p.Seeds.Early,
		},
		"earlyOnWeekends":          p.EarlyOnWeekends,
		"fairnessWeightedWeekends": p.FairnessWeightedWeekends,
		"minWeekdayCoverage":       p.MinWeekdayCoverage,
		"minWeekendCoverage":       p.MinWeekendCoverage,
		"outlierThreshold":         p.OutlierThreshold,
		"leaveRecords":             len(p.Leave),
	}
}

// leaveByDate 把请假记录按日期归组成集合，便于逐日查询
func leaveByDate(records []LeaveRecord) map[string]map[string]bool {
	byDate := make(map[string]map[string]bool, len(records))
	for _, rec := range records {
		key := DateOnly(rec.Date).Format(time.DateOnly)
		if byDate[key] == nil {
			byDate[key] = map[string]bool{}
		}
		byDate[key][rec.Engineer] = true
	}
	return byDate
}

// buildFairnessReport 从最终行推导各工程师的角色统计与公平性指标。
// 统计以实际产出为准而不是 tracker 的中间状态，保证报告和表格一致
func buildFairnessReport(rows []Row, roster []string) *FairnessReport {
	stats := make(map[string]EngineerStats, len(roster))
	for _, name := range roster {
		stats[name] = EngineerStats{Name: name}
	}

	bump := func(name string, update func(*EngineerStats)) {
		if s, ok := stats[name]; ok {
			update(&s)
			stats[name] = s
		}
	}

	for _, row := range rows {
		weekend := !isWeekday(row.Date)
		for _, cell := range row.Engineers {
			switch cell.Status {
			case StatusWork:
				bump(cell.Name, func(s *EngineerStats) {
					s.TotalWorkDays++
					if weekend {
						s.WeekendCount++
					}
				})
			case StatusLeave:
				bump(cell.Name, func(s *EngineerStats) { s.LeaveDays++ })
			}
		}
		if row.OnCall != "" {
			bump(row.OnCall, func(s *EngineerStats) { s.OnCallCount++ })
		}
		if row.Chat != "" {
			bump(row.Chat, func(s *EngineerStats) { s.ChatCount++ })
		}
		if row.Appointments != "" {
			bump(row.Appointments, func(s *EngineerStats) { s.AppointmentsCount++ })
		}
		for _, name := range []string{row.Early1, row.Early2} {
			if name != "" {
				bump(name, func(s *EngineerStats) { s.EarlyCount++ })
			}
		}
	}

	totals := make([]float64, 0, len(roster))
	for _, name := range roster {
		totals = append(totals, weightedTotal(stats[name]))
	}

	deltas := make(map[string]int, len(Roles))
	for _, role := range Roles {
		counts := lo.Map(roster, func(name string, _ int) int {
			return stats[name].CountForRole(role)
		})
		deltas[string(role)] = lo.Max(counts) - lo.Min(counts)
	}

	return &FairnessReport{
		EngineerStats: stats,
		EquityScore:   GiniCoefficient(totals),
		MaxMinDeltas:  deltas,
		GeneratedAt:   time.Now().UTC(),
	}
}

// GenerateFairnessInsights 把公平性报告转成可读的结论列表。文本为对外契约，使用英文
func GenerateFairnessInsights(report *FairnessReport) []string {
	if report == nil {
		return nil
	}

	insights := make([]string, 0, 4)
	switch {
	case report.EquityScore < 0.1:
		insights = append(insights,
			fmt.Sprintf("🟢 Excellent fairness: equity score %.3f shows a balanced workload distribution", report.EquityScore))
	case report.EquityScore < 0.3:
		insights = append(insights,
			fmt.Sprintf("🟡 Moderate fairness: equity score %.3f, some assignments could be rebalanced", report.EquityScore))
	default:
		insights = append(insights,
			fmt.Sprintf("🔴 Critical fairness issue: equity score %.3f indicates an unbalanced workload distribution", report.EquityScore))
	}

	names := lo.Keys(report.EngineerStats)
	sort.Strings(names)
	if len(names) == 0 {
		return insights
	}

	balanced := 0
	for _, role := range Roles {
		if report.MaxMinDeltas[string(role)] <= 1 {
			balanced++
			continue
		}

		maxName, minName := names[0], names[0]
		maxCount := report.EngineerStats[names[0]].CountForRole(role)
		minCount := maxCount
		for _, name := range names[1:] {
			c := report.EngineerStats[name].CountForRole(role)
			if c > maxCount {
				maxCount, maxName = c, name
			}
			if c < minCount {
				minCount, minName = c, name
			}
		}
		insights = append(insights,
			fmt.Sprintf("⚠️ %s assignments are uneven: %s has the most (%d) while %s has the fewest (%d)",
				role, maxName, maxCount, minName, minCount))
	}
	insights = append(insights,
		fmt.Sprintf("%d of %d roles show an even distribution (max-min delta within 1)", balanced, len(Roles)))

	busiest, lightest := names[0], names[0]
	busiestLoad := weightedTotal(report.EngineerStats[names[0]])
	lightestLoad := busiestLoad
	for _, name := range names[1:] {
		load := weightedTotal(report.EngineerStats[name])
		if load > busiestLoad {
			busiestLoad, busiest = load, name
		}
		if load < lightestLoad {
			lightestLoad, lightest = load, name
		}
	}
	insights = append(insights,
		fmt.Sprintf("Weighted workload ranges from %.1f (%s) to %.1f (%s)", lightestLoad, lightest, busiestLoad, busiest))

	return insights
}

// weightedTotal 单个工程师按角色权重折算的总负担
func weightedTotal(s EngineerStats) float64 {
	return float64(s.WeekendCount)*RoleWeights[RoleWeekend] +
		float64(s.OnCallCount)*RoleWeights[RoleOnCall] +
		float64(s.EarlyCount)*RoleWeights[RoleEarly] +
		float64(s.ChatCount)*RoleWeights[RoleChat] +
		float64(s.AppointmentsCount)*RoleWeights[RoleAppointments]
}
