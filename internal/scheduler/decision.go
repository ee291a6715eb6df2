package scheduler

import (
	"fmt"
	"time"
)

// 角色相关的决策类型由角色名拼出，如 chat_assignment / chat_assignment_failure
func roleAssignmentType(role Role) string {
	return string(role) + "_assignment"
}

func roleFailureType(role Role) string {
	return string(role) + "_assignment_failure"
}

func roleUnavailabilityType(role Role) string {
	return string(role) + "_unavailability_handling"
}

// decisionLog 按时间顺序记录一次生成中的全部决策，只追加；
// 唯一的例外是指派被跟踪后向对应条目补写公平性权重上下文
type decisionLog struct {
	entries []DecisionEntry
}

func newDecisionLog() *decisionLog {
	return &decisionLog{entries: make([]DecisionEntry, 0, 64)}
}

func (l *decisionLog) add(date time.Time, decisionType string, affected []string, reason string, alternatives []string) {
	if affected == nil {
		affected = []string{}
	}
	if alternatives == nil {
		alternatives = []string{}
	}
	l.entries = append(l.entries, DecisionEntry{
		Date:         date.Format(time.DateOnly),
		Type:         decisionType,
		Affected:     affected,
		Reason:       reason,
		Alternatives: alternatives,
		Timestamp:    time.Now().UTC(),
	})
}

// appendFairnessContext 找到同一天里影响该工程师的最近一条决策，把实际生效的
// 公平性权重补写进原因，便于事后审查选择依据
func (l *decisionLog) appendFairnessContext(date time.Time, engineer string, weight float64) {
	dateStr := date.Format(time.DateOnly)
	for i := len(l.entries) - 1; i >= 0; i-- {
		entry := &l.entries[i]
		if entry.Date != dateStr {
			continue
		}
		for _, name := range entry.Affected {
			if name == engineer {
				entry.Reason += fmt.Sprintf(" (fairness weight %.1f applied)", weight)
				return
			}
		}
	}
}

// alternativesAfter 返回顺序表中被选者之后的至多 limit 位候选人，回绕但不含被选者
func alternativesAfter(order []string, selected string, limit int) []string {
	alternatives := make([]string, 0, limit)
	n := len(order)

	idx := -1
	for i, name := range order {
		if name == selected {
			idx = i
			break
		}
	}
	if idx < 0 || n <= 1 {
		return alternatives
	}

	for i := 1; i < n && len(alternatives) < limit; i++ {
		alternatives = append(alternatives, order[(idx+i)%n])
	}
	return alternatives
}
