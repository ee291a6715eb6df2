package scheduler

import (
	"fmt"
	"math"
	"sort"
)

// GiniCoefficient 计算基尼系数：先升序排序，再按
// G = (2·Σ i·vᵢ)/(n·Σvᵢ) − (n+1)/n 计算，n≤1 或全部相等时为 0，结果截断到 [0,1]
func GiniCoefficient(values []float64) float64 {
	n := len(values)
	if n <= 1 {
		return 0.0
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	if sorted[0] == sorted[n-1] {
		return 0.0
	}

	sum := 0.0
	weighted := 0.0
	for i, v := range sorted {
		sum += v
		weighted += float64(i+1) * v
	}
	if sum == 0 {
		return 0.0
	}

	g := (2*weighted)/(float64(n)*sum) - float64(n+1)/float64(n)
	return math.Min(1.0, math.Max(0.0, g))
}

// FairnessTracker 在一次生成过程中累计每位工程师各角色的加权指派量。
// 一次生成对应一个实例，不允许跨请求共享。
type FairnessTracker struct {
	roster           []string
	history          map[string]map[Role]float64
	weekendCounts    map[string]int
	outlierThreshold float64
}

func NewFairnessTracker(roster []string, outlierThreshold float64) *FairnessTracker {
	if outlierThreshold <= 0 {
		outlierThreshold = DefaultOutlierThreshold
	}

	t := &FairnessTracker{
		roster:           append([]string(nil), roster...),
		history:          make(map[string]map[Role]float64, len(roster)),
		weekendCounts:    make(map[string]int, len(roster)),
		outlierThreshold: outlierThreshold,
	}
	for _, name := range roster {
		t.history[name] = make(map[Role]float64, len(Roles))
	}
	return t
}

// Track 累计一次角色指派，周末角色额外维护专用计数
func (t *FairnessTracker) Track(engineer string, role Role, weight float64) {
	if _, ok := t.history[engineer]; !ok {
		t.history[engineer] = make(map[Role]float64, len(Roles))
	}
	t.history[engineer][role] += weight
	if role == RoleWeekend {
		t.weekendCounts[engineer]++
	}
}

// Count 返回某位工程师在某个角色上的累计值
func (t *FairnessTracker) Count(engineer string, role Role) float64 {
	return t.history[engineer][role]
}

// WeekendCount 返回某位工程师被选中值周末的次数
func (t *FairnessTracker) WeekendCount(engineer string) int {
	return t.weekendCounts[engineer]
}

// total 返回某位工程师所有角色的累计值之和
func (t *FairnessTracker) total(engineer string) float64 {
	sum := 0.0
	for _, v := range t.history[engineer] {
		sum += v
	}
	return sum
}

// FairnessWeights 返回每位工程师相对当前最小值的相对负载，值越小越优先被选中
func (t *FairnessTracker) FairnessWeights(role Role) map[string]float64 {
	weights := make(map[string]float64, len(t.roster))
	if len(t.roster) == 0 {
		return weights
	}

	min := math.MaxFloat64
	for _, name := range t.roster {
		if c := t.history[name][role]; c < min {
			min = c
		}
	}
	for _, name := range t.roster {
		weights[name] = t.history[name][role] - min
	}
	return weights
}

// FairnessWeightedOrder 把候选人按 (公平性权重, 当日轮换位置) 稳定升序排序。
// 轮换位置是决定性的平局裁决，保证相同输入得到相同顺序。
func (t *FairnessTracker) FairnessWeightedOrder(candidates []string, role Role, seed, dayIdx int) []string {
	weights := t.FairnessWeights(role)
	ordered := append([]string(nil), candidates...)
	sort.SliceStable(ordered, func(i, j int) bool {
		wi, wj := weights[ordered[i]], weights[ordered[j]]
		if wi != wj {
			return wi < wj
		}
		pi := rotationPosition(t.roster, ordered[i], seed, dayIdx)
		pj := rotationPosition(t.roster, ordered[j], seed, dayIdx)
		return pi < pj
	})
	return ordered
}

// OverallFairnessScore 计算所有工程师总负载的基尼系数
func (t *FairnessTracker) OverallFairnessScore() float64 {
	totals := make([]float64, 0, len(t.roster))
	for _, name := range t.roster {
		totals = append(totals, t.total(name))
	}
	return GiniCoefficient(totals)
}

// RoleGiniCoefficients 返回每个角色各自的基尼系数
func (t *FairnessTracker) RoleGiniCoefficients() map[Role]float64 {
	result := make(map[Role]float64, len(Roles))
	for _, role := range Roles {
		counts := make([]float64, 0, len(t.roster))
		for _, name := range t.roster {
			counts = append(counts, t.history[name][role])
		}
		result[role] = GiniCoefficient(counts)
	}
	return result
}

// WeightedWorkload 按角色权重折算某位工程师的总负载
func (t *FairnessTracker) WeightedWorkload(engineer string) float64 {
	sum := 0.0
	for role, v := range t.history[engineer] {
		sum += v * RoleWeights[role]
	}
	return sum
}

// WorkloadAnalysis: 单个工程师的负载分析
type WorkloadAnalysis struct {
	TotalAssignments float64 `json:"totalAssignments"`
	WeightedWorkload float64 `json:"weightedWorkload"`
	FairnessRank     int     `json:"fairnessRank"` // 1 = 负载最轻
}

// EngineerWorkloadAnalysis 返回每位工程师的总负载、折算负载和公平性名次
func (t *FairnessTracker) EngineerWorkloadAnalysis() map[string]WorkloadAnalysis {
	byLoad := append([]string(nil), t.roster...)
	sort.SliceStable(byLoad, func(i, j int) bool {
		return t.total(byLoad[i]) < t.total(byLoad[j])
	})

	analysis := make(map[string]WorkloadAnalysis, len(t.roster))
	for rank, name := range byLoad {
		analysis[name] = WorkloadAnalysis{
			TotalAssignments: t.total(name),
			WeightedWorkload: t.WeightedWorkload(name),
			FairnessRank:     rank + 1,
		}
	}
	return analysis
}

// Outliers: 负载离群的工程师
type Outliers struct {
	Overloaded    []string `json:"overloaded"`
	Underutilized []string `json:"underutilized"`
}

// IdentifyOutliers 找出总负载偏离均值超过阈值的工程师，threshold<=0 时用配置默认值
func (t *FairnessTracker) IdentifyOutliers(threshold float64) Outliers {
	if threshold <= 0 {
		threshold = t.outlierThreshold
	}

	outliers := Outliers{Overloaded: []string{}, Underutilized: []string{}}
	if len(t.roster) == 0 {
		return outliers
	}

	mean := 0.0
	for _, name := range t.roster {
		mean += t.total(name)
	}
	mean /= float64(len(t.roster))

	for _, name := range t.roster {
		deviation := t.total(name) - mean
		switch {
		case deviation > threshold:
			outliers.Overloaded = append(outliers.Overloaded, name)
		case -deviation > threshold:
			outliers.Underutilized = append(outliers.Underutilized, name)
		}
	}
	return outliers
}

// RoleSummary: 单个角色的分布汇总
type RoleSummary struct {
	Total float64 `json:"totalAssignments"`
	Min   float64 `json:"minAssignments"`
	Max   float64 `json:"maxAssignments"`
	Range float64 `json:"range"`
}

// RoleDistributionSummary 汇总每个角色的总量、最小值、最大值和极差
func (t *FairnessTracker) RoleDistributionSummary() map[Role]RoleSummary {
	summary := make(map[Role]RoleSummary, len(Roles))
	for _, role := range Roles {
		s := RoleSummary{Min: math.MaxFloat64}
		for _, name := range t.roster {
			v := t.history[name][role]
			s.Total += v
			s.Min = math.Min(s.Min, v)
			s.Max = math.Max(s.Max, v)
		}
		if len(t.roster) == 0 {
			s.Min = 0
		}
		s.Range = s.Max - s.Min
		summary[role] = s
	}
	return summary
}

// RebalancingRecommendations 针对分布失衡的角色给出英文调整建议，
// 建议文本属于报告内容，随结果一起导出
func (t *FairnessTracker) RebalancingRecommendations() []string {
	recommendations := make([]string, 0)
	roleGini := t.RoleGiniCoefficients()
	summaries := t.RoleDistributionSummary()

	for _, role := range Roles {
		summary := summaries[role]
		if summary.Range <= 1 && roleGini[role] < 0.3 {
			continue
		}

		maxName, minName := "", ""
		maxV, minV := -math.MaxFloat64, math.MaxFloat64
		for _, name := range t.roster {
			v := t.history[name][role]
			if v > maxV {
				maxV, maxName = v, name
			}
			if v < minV {
				minV, minName = v, name
			}
		}
		recommendations = append(recommendations, fmt.Sprintf(
			"Role %s is imbalanced (gini %.2f): consider rebalancing assignments from %s (%.1f) toward %s (%.1f)",
			role, roleGini[role], maxName, maxV, minName, minV,
		))
	}
	return recommendations
}
