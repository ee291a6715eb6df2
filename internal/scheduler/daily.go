package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

// dayRoles: 单日各角色的指派结果
type dayRoles struct {
	Early1       string
	Early2       string
	Chat         string
	OnCall       string
	Appointments string
}

// assignDay 生成单日排班：先确定应到集合并剔除请假，再按固定顺序指派角色
func (r *run) assignDay(d time.Time, dayIdx int) Row {
	week := dayIdx / 7
	leaveToday := r.leave[d.Format(time.DateOnly)]

	expected := make([]string, 0, len(r.roster))
	for _, name := range r.roster {
		if r.weekend.worksToday(name, d, r.params.StartSunday) {
			expected = append(expected, name)
		}
	}

	working := lo.Filter(expected, func(name string, _ int) bool {
		return !leaveToday[name]
	})
	if removed := lo.Filter(expected, func(name string, _ int) bool { return leaveToday[name] }); len(removed) > 0 {
		r.log.add(d, DecisionLeaveExclusion, removed,
			fmt.Sprintf("Excluded %d engineer(s) on leave from the working set", len(removed)),
			append([]string(nil), working...))
	}

	working = r.ensureCoverage(d, dayIdx, expected, working, leaveToday)

	roles := dayRoles{}
	if isWeekday(d) {
		roles = r.assignWeekdayRoles(d, dayIdx, week, working)
	} else if r.params.EarlyOnWeekends {
		roles.Early1, roles.Early2 = r.assignWeekendEarly(d, dayIdx, working)
	}

	return r.buildRow(d, dayIdx, week, working, leaveToday, roles)
}

// assignWeekdayRoles 按固定顺序指派工作日角色：
// 客服 -> 值班（避开周末值班人）-> 值班人兼早班一 -> 早班二 -> 预约，剩余归工单池
func (r *run) assignWeekdayRoles(d time.Time, dayIdx, week int, working []string) dayRoles {
	roles := dayRoles{}
	pool := append([]string(nil), working...)

	roles.Chat = r.assignRole(d, dayIdx, pool, RoleChat, roleAssignmentType(RoleChat))
	pool = removeOne(pool, roles.Chat)

	roles.OnCall = r.assignOnCall(d, dayIdx, week, pool)
	pool = removeOne(pool, roles.OnCall)

	// 值班工程师无条件兼任第一个早班位，不走早班轮换
	roles.Early1 = roles.OnCall

	if len(pool) > 0 {
		roles.Early2 = r.assignEarlySecond(d, dayIdx, pool)
		pool = removeOne(pool, roles.Early2)
	}

	roles.Appointments = r.assignRole(d, dayIdx, pool, RoleAppointments, roleAssignmentType(RoleAppointments))
	pool = removeOne(pool, roles.Appointments)

	return roles
}

// assignRole 按公平性加权从候选池中选出一人并记录决策，池为空时记录失败
func (r *run) assignRole(d time.Time, dayIdx int, pool []string, role Role, decisionType string) string {
	if len(pool) == 0 {
		r.log.add(d, roleFailureType(role), nil,
			fmt.Sprintf("No engineers available for %s assignment", role),
			[]string{"Manual assignment required"})
		return ""
	}

	seed := r.params.Seeds.ForRole(role)
	order := r.tracker.FairnessWeightedOrder(pool, role, seed, dayIdx)
	selected := order[0]

	r.log.add(d, decisionType, []string{selected},
		fmt.Sprintf("Selected %s for %s via rotation with fairness weighting", selected, role),
		alternativesAfter(order, selected, 3))
	r.trackWithContext(d, selected, role)
	return selected
}

// assignOnCall 选出值班工程师，尽量避开本周周末值班人，周五还要避开下周的；
// 避让后无人可选时回退到全量候选并在决策中说明
func (r *run) assignOnCall(d time.Time, dayIdx, week int, pool []string) string {
	if len(pool) == 0 {
		r.log.add(d, roleFailureType(RoleOnCall), nil,
			"No engineers available for oncall assignment",
			[]string{"Manual assignment required"})
		return ""
	}

	avoid := []string{r.weekend.workerForWeek(week)}
	if d.Weekday() == time.Friday {
		avoid = append(avoid, r.weekend.workerForWeek(week+1))
	}
	avoid = lo.Uniq(avoid)

	avoided := lo.Filter(avoid, func(name string, _ int) bool { return lo.Contains(pool, name) })
	eligible := lo.Without(pool, avoid...)

	seed := r.params.Seeds.OnCall
	if len(eligible) == 0 {
		// 回退：候选全是周末值班人
		order := r.tracker.FairnessWeightedOrder(pool, RoleOnCall, seed, dayIdx)
		selected := order[0]
		r.log.add(d, DecisionEnhancedOnCall, []string{selected},
			fmt.Sprintf("Selected %s for oncall, fallback used: no non-weekend options available", selected),
			alternativesAfter(order, selected, 3))
		r.trackWithContext(d, selected, RoleOnCall)
		return selected
	}

	order := r.tracker.FairnessWeightedOrder(eligible, RoleOnCall, seed, dayIdx)
	selected := order[0]

	reason := fmt.Sprintf("Selected %s for oncall via rotation with fairness weighting", selected)
	if len(avoided) > 0 {
		reason += fmt.Sprintf(" (avoided weekend workers: %s)", strings.Join(avoided, ", "))
	}
	r.log.add(d, DecisionEnhancedOnCall, []string{selected}, reason, alternativesAfter(order, selected, 3))
	r.trackWithContext(d, selected, RoleOnCall)
	return selected
}

// assignEarlySecond 从剩余候选中选出第二个早班位，值班人已在之前从池中移除
func (r *run) assignEarlySecond(d time.Time, dayIdx int, pool []string) string {
	seed := r.params.Seeds.Early
	order := r.tracker.FairnessWeightedOrder(pool, RoleEarly, seed, dayIdx)
	selected := order[0]

	r.log.add(d, DecisionEnhancedEarly, []string{selected},
		fmt.Sprintf("Selected %s for second early shift via rotation with fairness weighting", selected),
		alternativesAfter(order, selected, 3))
	r.trackWithContext(d, selected, RoleEarly)
	return selected
}

// assignWeekendEarly 周末早班按纯轮换填充两个早班位，不做公平性加权
func (r *run) assignWeekendEarly(d time.Time, dayIdx int, working []string) (string, string) {
	if len(working) == 0 {
		return "", ""
	}

	order := rotationOrder(r.roster, working, r.params.Seeds.Early, dayIdx)
	early1 := order[0]
	early2 := ""
	if len(order) > 1 {
		early2 = order[1]
	}

	affected := []string{early1}
	if early2 != "" {
		affected = append(affected, early2)
	}
	r.log.add(d, DecisionWeekendEarly, affected,
		"Assigned weekend early shifts by plain rotation",
		alternativesAfter(order, early1, 3))
	for _, name := range affected {
		r.tracker.Track(name, RoleEarly, RoleWeights[RoleEarly])
	}
	return early1, early2
}

// handleUnavailability 从期望集合中剔除不可用的工程师并记录处理过程
func (r *run) handleUnavailability(d time.Time, role Role, expected, unavailable []string) []string {
	available := lo.Without(expected, unavailable...)
	if len(unavailable) == 0 {
		return available
	}

	r.log.add(d, roleUnavailabilityType(role), append([]string(nil), unavailable...),
		fmt.Sprintf("Removed %d unavailable engineer(s) before %s assignment", len(unavailable), role),
		[]string{fmt.Sprintf("Remaining available: %s", strings.Join(available, ", "))})
	return available
}

// ensureCoverage 人手不足时从当天本不上班的人里补位，补位后仍不足则记录覆盖警告
func (r *run) ensureCoverage(d time.Time, dayIdx int, expected, working []string, leaveToday map[string]bool) []string {
	minCoverage := r.params.MinWeekendCoverage
	if isWeekday(d) {
		minCoverage = r.params.MinWeekdayCoverage
	}
	if len(working) >= minCoverage {
		return working
	}

	needed := minCoverage - len(working)
	selected := r.selectBackfill(d, dayIdx, expected, leaveToday, needed)
	working = append(working, selected...)

	if len(working) < minCoverage {
		r.log.add(d, DecisionLeaveCoverageWarning, append([]string(nil), working...),
			fmt.Sprintf("Insufficient coverage: %d working, %d required", len(working), minCoverage),
			[]string{"Manual intervention recommended"})
	}
	return working
}

// selectBackfill 候选 = 名册 − 请假 − 应到集合，按五个角色公平性权重之和升序取前 needed 个
func (r *run) selectBackfill(d time.Time, dayIdx int, expected []string, leaveToday map[string]bool, needed int) []string {
	candidates := lo.Filter(r.roster, func(name string, _ int) bool {
		return !leaveToday[name] && !lo.Contains(expected, name)
	})
	if len(candidates) == 0 {
		r.log.add(d, DecisionBackfillFailure, nil,
			"No backfill candidates available",
			[]string{"Manual assignment required"})
		return nil
	}

	totalWeights := make(map[string]float64, len(candidates))
	for _, role := range Roles {
		for name, w := range r.tracker.FairnessWeights(role) {
			totalWeights[name] += w
		}
	}
	ranked := append([]string(nil), candidates...)
	stableSortBy(ranked, func(name string) int {
		return rotationPosition(r.roster, name, 0, dayIdx)
	})
	// 先按轮换定序，再按总权重稳定排序，保证权重相同的顺序可复现
	sortByFloat(ranked, func(name string) float64 { return totalWeights[name] })

	if needed > len(ranked) {
		needed = len(ranked)
	}
	selected := append([]string(nil), ranked[:needed]...)

	remaining := ranked[needed:]
	if len(remaining) > 3 {
		remaining = remaining[:3]
	}
	r.log.add(d, DecisionEnhancedBackfill, selected,
		fmt.Sprintf("Selected %d backfill engineer(s) by workload-based fairness weighting", len(selected)),
		append([]string(nil), remaining...))
	return selected
}

// buildRow 组装单日行：状态优先级为 请假 > 在岗 > 休息
func (r *run) buildRow(d time.Time, dayIdx, week int, working []string, leaveToday map[string]bool, roles dayRoles) Row {
	assigned := map[string]bool{
		roles.Early1:       true,
		roles.Early2:       true,
		roles.Chat:         true,
		roles.OnCall:       true,
		roles.Appointments: true,
	}

	workingSet := make(map[string]bool, len(working))
	for _, name := range working {
		workingSet[name] = true
	}

	cells := make([]EngineerCell, 0, len(r.roster))
	for _, name := range r.roster {
		status := ""
		switch {
		case leaveToday[name]:
			status = StatusLeave
		case workingSet[name]:
			status = StatusWork
		default:
			status = StatusOff
		}

		shift := ""
		if status == StatusWork {
			switch {
			case name == roles.Early1 || name == roles.Early2:
				shift = ShiftEarly
			case isWeekday(d):
				shift = ShiftStandard
			default:
				shift = ShiftWeekend
			}
		}
		cells = append(cells, EngineerCell{Name: name, Status: status, Shift: shift})
	}

	tickets := lo.Filter(working, func(name string, _ int) bool { return !assigned[name] })

	row := Row{
		Date:         d,
		Day:          d.Format("Mon"),
		WeekIndex:    week,
		Early1:       roles.Early1,
		Early2:       roles.Early2,
		Chat:         roles.Chat,
		OnCall:       roles.OnCall,
		Appointments: roles.Appointments,
		Engineers:    cells,
		Tickets:      tickets,
	}
	r.checkDayConflicts(&row, workingSet)
	return row
}

// checkDayConflicts 当日冲突自检：重复占用、指派了不在岗的人、周末出现值班位。
// 正常流程不会触发，命中时作为违规并入最终汇总
func (r *run) checkDayConflicts(row *Row, workingSet map[string]bool) {
	dateStr := row.Date.Format(time.DateOnly)

	holders := map[string][]string{}
	for role, name := range map[string]string{
		"Early1": row.Early1, "Early2": row.Early2,
		"Chat": row.Chat, "OnCall": row.OnCall, "Appointments": row.Appointments,
	} {
		if name != "" {
			holders[name] = append(holders[name], role)
		}
	}

	for name, assignedRoles := range holders {
		// 值班人兼早班一是设计行为，不算冲突
		if len(assignedRoles) == 2 && lo.Contains(assignedRoles, "Early1") && lo.Contains(assignedRoles, "OnCall") {
			continue
		}
		if len(assignedRoles) > 1 {
			r.conflicts = append(r.conflicts, Violation{
				Kind:      ViolationDoubleBooking,
				Severity:  SeverityError,
				Message:   fmt.Sprintf("%s holds multiple roles on %s", name, dateStr),
				Dates:     []string{dateStr},
				Engineers: []string{name},
			})
		}
		if !workingSet[name] {
			r.conflicts = append(r.conflicts, Violation{
				Kind:      ViolationEngineerFieldIntegrity,
				Severity:  SeverityError,
				Message:   fmt.Sprintf("%s assigned on %s but not in the working set", name, dateStr),
				Dates:     []string{dateStr},
				Engineers: []string{name},
			})
		}
	}

	if !isWeekday(row.Date) && row.OnCall != "" {
		r.conflicts = append(r.conflicts, Violation{
			Kind:      ViolationNoOnCallWeekends,
			Severity:  SeverityError,
			Message:   fmt.Sprintf("OnCall assigned on weekend date %s", dateStr),
			Dates:     []string{dateStr},
			Engineers: []string{row.OnCall},
		})
	}
}

// trackWithContext 记录指派并把生效的角色权重补写进刚写入的决策条目
func (r *run) trackWithContext(d time.Time, engineer string, role Role) {
	if engineer == "" {
		return
	}
	weight := RoleWeights[role]
	r.tracker.Track(engineer, role, weight)
	r.log.appendFairnessContext(d, engineer, weight)
}
