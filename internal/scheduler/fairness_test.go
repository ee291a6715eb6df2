package scheduler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var fairnessRoster = []string{"Alice", "Bob", "Charlie", "Diana", "Eve", "Frank"}

func TestGiniCoefficient(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single value", []float64{3}, 0},
		{"all equal", []float64{2, 2, 2, 2}, 0},
		{"one engineer carries everything", []float64{0, 0, 0, 0, 0, 5}, 0.8333},
		{"moderate spread", []float64{1, 2, 3, 4, 5}, 0.2667},
		{"all zero", []float64{0, 0, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.want, GiniCoefficient(tt.values), 0.001)
		})
	}

	t.Run("stays within unit interval", func(t *testing.T) {
		g := GiniCoefficient([]float64{0, 0, 0, 1000})
		require.GreaterOrEqual(t, g, 0.0)
		require.LessOrEqual(t, g, 1.0)
	})
}

func TestFairnessWeights(t *testing.T) {
	tracker := NewFairnessTracker(fairnessRoster, 0)
	tracker.Track("Alice", RoleOnCall, 1.0)
	tracker.Track("Alice", RoleOnCall, 1.0)
	tracker.Track("Bob", RoleOnCall, 1.0)

	weights := tracker.FairnessWeights(RoleOnCall)

	require.Greater(t, weights["Alice"], weights["Bob"])
	require.Equal(t, 1.0, weights["Bob"])
	require.Equal(t, 0.0, weights["Charlie"])
}

func TestFairnessWeightedOrder(t *testing.T) {
	t.Run("fresh tracker follows rotation order", func(t *testing.T) {
		tracker := NewFairnessTracker(fairnessRoster, 0)
		order := tracker.FairnessWeightedOrder(fairnessRoster, RoleChat, 0, 0)
		require.Equal(t, fairnessRoster, order)
	})

	t.Run("loaded engineer drops to the back", func(t *testing.T) {
		tracker := NewFairnessTracker(fairnessRoster, 0)
		tracker.Track("Alice", RoleChat, 1.0)

		order := tracker.FairnessWeightedOrder(fairnessRoster, RoleChat, 0, 0)
		require.Equal(t, "Alice", order[len(order)-1])
		require.Equal(t, "Bob", order[0])
	})

	t.Run("ties broken by rotation position", func(t *testing.T) {
		tracker := NewFairnessTracker(fairnessRoster, 0)
		for _, name := range fairnessRoster {
			tracker.Track(name, RoleChat, 1.0)
		}
		// 位置 = (基准下标 + 2) mod 6，Eve 和 Frank 回绕到最前
		order := tracker.FairnessWeightedOrder(fairnessRoster, RoleChat, 0, 2)
		require.Equal(t, []string{"Eve", "Frank", "Alice", "Bob", "Charlie", "Diana"}, order)
	})
}

func TestOverallFairnessScore(t *testing.T) {
	tracker := NewFairnessTracker(fairnessRoster, 0)
	for _, name := range fairnessRoster {
		tracker.Track(name, RoleOnCall, 1.0)
		tracker.Track(name, RoleChat, 1.0)
	}
	require.Equal(t, 0.0, tracker.OverallFairnessScore())

	tracker.Track("Alice", RoleOnCall, 1.0)
	tracker.Track("Alice", RoleOnCall, 1.0)
	require.Greater(t, tracker.OverallFairnessScore(), 0.0)
}

func TestRoleGiniCoefficients(t *testing.T) {
	tracker := NewFairnessTracker(fairnessRoster, 0)
	tracker.Track("Alice", RoleOnCall, 1.0)
	tracker.Track("Alice", RoleOnCall, 1.0)
	tracker.Track("Bob", RoleOnCall, 1.0)
	for _, name := range fairnessRoster {
		tracker.Track(name, RoleChat, 1.0)
	}

	roleGini := tracker.RoleGiniCoefficients()

	require.Len(t, roleGini, len(Roles))
	require.Greater(t, roleGini[RoleOnCall], 0.0)
	require.Equal(t, 0.0, roleGini[RoleChat])
}

func TestEngineerWorkloadAnalysis(t *testing.T) {
	tracker := NewFairnessTracker(fairnessRoster, 0)
	tracker.Track("Alice", RoleOnCall, 1.0)
	tracker.Track("Alice", RoleWeekend, 1.0)
	tracker.Track("Bob", RoleChat, 1.0)

	analysis := tracker.EngineerWorkloadAnalysis()

	require.Contains(t, analysis, "Alice")
	require.Contains(t, analysis, "Bob")
	require.Equal(t, 2.0, analysis["Alice"].TotalAssignments)
	require.Equal(t, 1.0, analysis["Bob"].TotalAssignments)
	require.Equal(t, 0.0, analysis["Charlie"].TotalAssignments)

	// 负载最重的排名最后，零负载的按名册顺序从 1 开始
	require.Equal(t, 6, analysis["Alice"].FairnessRank)
	require.Equal(t, 1, analysis["Charlie"].FairnessRank)
}

func TestIdentifyOutliers(t *testing.T) {
	tracker := NewFairnessTracker(fairnessRoster, 0)
	for i := 0; i < 5; i++ {
		tracker.Track("Alice", RoleOnCall, 1.0)
	}

	outliers := tracker.IdentifyOutliers(0.5)

	require.Contains(t, outliers.Overloaded, "Alice")
	require.Contains(t, outliers.Underutilized, "Charlie")
}

func TestWeightedWorkload(t *testing.T) {
	tracker := NewFairnessTracker(fairnessRoster, 0)
	tracker.Track("Alice", RoleWeekend, 1.0)
	tracker.Track("Alice", RoleOnCall, 1.0)
	tracker.Track("Bob", RoleChat, 1.0)
	tracker.Track("Bob", RoleChat, 1.0)

	require.InDelta(t, 3.5, tracker.WeightedWorkload("Alice"), 0.0001)
	require.InDelta(t, 2.0, tracker.WeightedWorkload("Bob"), 0.0001)
}

func TestRoleDistributionSummary(t *testing.T) {
	tracker := NewFairnessTracker(fairnessRoster, 0)
	tracker.Track("Alice", RoleOnCall, 1.0)
	tracker.Track("Alice", RoleOnCall, 1.0)
	tracker.Track("Bob", RoleOnCall, 1.0)

	summary := tracker.RoleDistributionSummary()

	oncall := summary[RoleOnCall]
	require.Equal(t, 3.0, oncall.Total)
	require.Equal(t, 0.0, oncall.Min)
	require.Equal(t, 2.0, oncall.Max)
	require.Equal(t, 2.0, oncall.Range)

	chat := summary[RoleChat]
	require.Equal(t, 0.0, chat.Total)
	require.Equal(t, 0.0, chat.Range)
}

func TestRebalancingRecommendations(t *testing.T) {
	tracker := NewFairnessTracker(fairnessRoster, 0)
	for i := 0; i < 5; i++ {
		tracker.Track("Alice", RoleOnCall, 1.0)
	}

	recommendations := tracker.RebalancingRecommendations()
	require.NotEmpty(t, recommendations)

	text := strings.ToLower(strings.Join(recommendations, " "))
	require.Contains(t, text, "oncall")
	require.Contains(t, text, "alice")
	require.True(t, strings.Contains(text, "gini") || strings.Contains(text, "rebalancing"))
}

func TestWeekendCountTracking(t *testing.T) {
	tracker := NewFairnessTracker(fairnessRoster, 0)
	tracker.Track("Alice", RoleWeekend, 2.0)
	tracker.Track("Alice", RoleWeekend, 2.0)
	tracker.Track("Bob", RoleChat, 1.0)

	require.Equal(t, 2, tracker.WeekendCount("Alice"))
	require.Equal(t, 0, tracker.WeekendCount("Bob"))
	require.Equal(t, 4.0, tracker.Count("Alice", RoleWeekend))
}
