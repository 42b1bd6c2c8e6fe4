package searcher

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUCB1(t *testing.T) {
	t.Run("unvisited nodes score infinity", func(t *testing.T) {
		require.True(t, math.IsInf(ucb1(0, 0, 1.41, math.Log(10)), 1))
	})

	t.Run("mean plus exploration bonus", func(t *testing.T) {
		got := ucb1(3, 4, 2, math.Log(16))
		want := 0.75 + 2*math.Sqrt(math.Log(16)/4)
		require.InDelta(t, want, got, 1e-12)
	})

	t.Run("zero exploration is pure exploitation", func(t *testing.T) {
		require.Equal(t, 0.5, ucb1(2, 4, 0, math.Log(8)))
	})
}

func TestBestChild(t *testing.T) {
	t.Run("first unvisited child wins", func(t *testing.T) {
		tr := newTree(nil, nil)
		a := tr.add(0, 1, nil, nil)
		b := tr.add(0, 2, nil, nil)
		tr.backup(a, 1)
		tr.add(0, 3, nil, nil)

		require.Equal(t, b, tr.bestChild(0, 1.41))
	})

	t.Run("ties go to the earliest child", func(t *testing.T) {
		tr := newTree(nil, nil)
		a := tr.add(0, 1, nil, nil)
		b := tr.add(0, 2, nil, nil)
		tr.backup(a, 0.5)
		tr.backup(b, 0.5)

		require.Equal(t, a, tr.bestChild(0, 1.41))
	})

	t.Run("higher mean wins without exploration", func(t *testing.T) {
		tr := newTree(nil, nil)
		a := tr.add(0, 1, nil, nil)
		b := tr.add(0, 2, nil, nil)
		tr.backup(a, 0.2)
		tr.backup(b, 0.9)

		require.Equal(t, b, tr.bestChild(0, 0))
	})
}
