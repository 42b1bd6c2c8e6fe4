package searcher

import (
	"cmp"
	"slices"

	"treesearch/environment"
)

const noParent = -1

// node is addressed by its index in tree.nodes. Parent links are indices, so
// the tree owns every node and is dropped as a whole when a search returns.
type node struct {
	state    environment.State
	action   environment.Action // action that led here from the parent
	parent   int
	children []int // in expansion order
	untried  []environment.Action
	visits   int
	value    float64 // cumulative reward
}

func (n *node) mean() float64 {
	if n.visits == 0 {
		return 0
	}
	return n.value / float64(n.visits)
}

type tree struct {
	nodes []node
}

// newTree takes ownership of untried.
func newTree(state environment.State, untried []environment.Action) *tree {
	return &tree{nodes: []node{{state: state, parent: noParent, untried: untried}}}
}

func (t *tree) add(parent int, action environment.Action, state environment.State, untried []environment.Action) int {
	idx := len(t.nodes)
	t.nodes = append(t.nodes, node{
		state:   state,
		action:  action,
		parent:  parent,
		untried: untried,
	})
	t.nodes[parent].children = append(t.nodes[parent].children, idx)
	return idx
}

// backup adds one visit and reward to every node from idx up to the root.
func (t *tree) backup(idx int, reward float64) {
	for idx != noParent {
		n := &t.nodes[idx]
		n.visits++
		n.value += reward
		idx = n.parent
	}
}

func (t *tree) size() int {
	return len(t.nodes)
}

// result summarizes the root's children. The most visited child wins, ties go
// to the earliest expanded.
func (t *tree) result() Result {
	root := &t.nodes[0]
	if len(root.children) == 0 {
		return Result{}
	}

	best := root.children[0]
	stats := make([]ActionStat, 0, len(root.children))
	for _, idx := range root.children {
		child := &t.nodes[idx]
		if child.visits > t.nodes[best].visits {
			best = idx
		}
		stats = append(stats, ActionStat{Action: child.action, Visits: child.visits, Value: child.mean()})
	}
	slices.SortStableFunc(stats, func(a, b ActionStat) int {
		return cmp.Compare(b.Visits, a.Visits)
	})

	return Result{
		BestAction:  t.nodes[best].action,
		Visits:      root.visits,
		Value:       t.nodes[best].mean(),
		ActionStats: stats,
	}
}
