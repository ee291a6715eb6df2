package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestNearestPreviousSunday(t *testing.T) {
	sunday := date(2024, time.January, 7)

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"sunday maps to itself", sunday, sunday},
		{"monday maps back one day", date(2024, time.January, 8), sunday},
		{"wednesday maps back three days", date(2024, time.January, 10), sunday},
		{"saturday maps back six days", date(2024, time.January, 13), sunday},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NearestPreviousSunday(tt.in))
		})
	}
}

func TestBuildRotation(t *testing.T) {
	roster := []string{"Alice", "Bob", "Charlie", "Diana", "Eve"}

	t.Run("seed zero keeps order", func(t *testing.T) {
		rotation, err := BuildRotation(roster, 0)
		require.NoError(t, err)
		require.Equal(t, roster, rotation)
	})

	t.Run("positive seed rotates left", func(t *testing.T) {
		rotation, err := BuildRotation(roster, 2)
		require.NoError(t, err)
		require.Equal(t, []string{"Charlie", "Diana", "Eve", "Alice", "Bob"}, rotation)
	})

	t.Run("seed wraps modulo roster size", func(t *testing.T) {
		a, err := BuildRotation(roster, 7)
		require.NoError(t, err)
		b, err := BuildRotation(roster, 2)
		require.NoError(t, err)
		require.Equal(t, b, a)
	})

	t.Run("empty roster fails", func(t *testing.T) {
		_, err := BuildRotation(nil, 0)
		require.Error(t, err)
	})

	t.Run("rotating a rotation by zero is identity", func(t *testing.T) {
		for seed := 0; seed < 7; seed++ {
			rotated, err := BuildRotation(roster, seed)
			require.NoError(t, err)
			again, err := BuildRotation(rotated, 0)
			require.NoError(t, err)
			require.Equal(t, rotated, again)
		}
	})

	t.Run("does not alias the input", func(t *testing.T) {
		rotation, err := BuildRotation(roster, 0)
		require.NoError(t, err)
		rotation[0] = "Mallory"
		require.Equal(t, "Alice", roster[0])
	})
}

func TestWeekIndexOf(t *testing.T) {
	start := date(2024, time.January, 7)

	require.Equal(t, 0, weekIndexOf(start, start))
	require.Equal(t, 0, weekIndexOf(start, date(2024, time.January, 13)))
	require.Equal(t, 1, weekIndexOf(start, date(2024, time.January, 14)))
	require.Equal(t, 1, weekIndexOf(start, date(2024, time.January, 20)))
	// 起始周日之前按向下取整落到负的周序号
	require.Equal(t, -1, weekIndexOf(start, date(2024, time.January, 6)))
}

func TestPythonModAndFloorDiv(t *testing.T) {
	require.Equal(t, 4, pythonMod(-1, 5))
	require.Equal(t, 2, pythonMod(7, 5))
	require.Equal(t, 0, pythonMod(0, 5))

	require.Equal(t, -1, floorDiv(-1, 7))
	require.Equal(t, -1, floorDiv(-7, 7))
	require.Equal(t, 1, floorDiv(13, 7))
}

func TestRotationOrder(t *testing.T) {
	roster := []string{"Alice", "Bob", "Charlie", "Diana", "Eve"}

	t.Run("day zero follows base positions", func(t *testing.T) {
		order := rotationOrder(roster, []string{"Bob", "Diana", "Eve"}, 0, 0)
		require.Equal(t, []string{"Bob", "Diana", "Eve"}, order)
	})

	t.Run("day offset wraps positions", func(t *testing.T) {
		// 位置 = (基准下标 + 种子 + 日序) mod 5：Bob=4, Diana=1, Eve=2
		order := rotationOrder(roster, []string{"Bob", "Diana", "Eve"}, 0, 3)
		require.Equal(t, []string{"Diana", "Eve", "Bob"}, order)
	})

	t.Run("seed shifts positions", func(t *testing.T) {
		// 位置 = (基准下标 + 1) mod 5：Eve=0, Bob=2
		order := rotationOrder(roster, []string{"Bob", "Eve"}, 1, 0)
		require.Equal(t, []string{"Eve", "Bob"}, order)
	})
}
