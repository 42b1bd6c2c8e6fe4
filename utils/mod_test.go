package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindIndex(t *testing.T) {
	t.Run("finding present and absent items", func(t *testing.T) {
		names := []string{"counting", "grid", "ladder"}

		require.Equal(t, 1, FindIndex(names, "grid"), "Should return the position of the item")
		require.Equal(t, -1, FindIndex(names, "maze"), "Should return -1 for a missing item")
	})
}

func TestSameValue(t *testing.T) {
	t.Run("numbers of different kinds", func(t *testing.T) {
		require.True(t, SameValue(3, 3.0), "Decoded floats should match ints")
		require.True(t, SameValue(int64(2), uint8(2)), "Integer kinds should compare by value")
		require.False(t, SameValue(3, 2.5), "Different numbers should not match")
	})

	t.Run("non numeric values", func(t *testing.T) {
		require.True(t, SameValue("up", "up"))
		require.True(t, SameValue([]int{1, 2}, []int{1, 2}), "Slices should compare deeply")
		require.False(t, SameValue("3", 3), "Strings should never match numbers")
		require.False(t, SameValue(nil, 0), "Nil should not match zero")
	})

	t.Run("finding an action by value", func(t *testing.T) {
		legal := []any{1, 2, 3}

		i := FindIndexFunc(legal, func(a any) bool { return SameValue(a, 3.0) })

		require.Equal(t, 2, i)
	})
}
