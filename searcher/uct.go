package searcher

import "math"

func ucb1(value float64, visits int, exploration, lnParent float64) float64 {
	// Prioritize unexplored nodes
	if visits == 0 {
		return math.Inf(1)
	}

	n := float64(visits)
	return value/n + exploration*math.Sqrt(lnParent/n)
}

// bestChild returns the child of idx with the highest UCB1 score. The first
// maximum in expansion order wins.
func (t *tree) bestChild(idx int, exploration float64) int {
	parent := &t.nodes[idx]
	lnParent := math.Log(float64(parent.visits))

	best, bestScore := -1, math.Inf(-1)
	for _, child := range parent.children {
		score := ucb1(t.nodes[child].value, t.nodes[child].visits, exploration, lnParent)
		if best < 0 || score > bestScore {
			best, bestScore = child, score
		}
	}
	return best
}
