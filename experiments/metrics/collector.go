package metrics

import (
	"sync/atomic"
	"time"
)

type SearchMetric struct {
	Duration     time.Duration `json:"duration"`
	Iterations   int           `json:"iterations"`
	Exploration  float64       `json:"exploration"`
	FullPlayouts int           `json:"full_playouts"` // rollouts that reached a terminal state
	DeadEnds     int           `json:"dead_ends"`     // rollouts that ran out of actions before terminating
	Nodes        int           `json:"nodes"`
}

type StepRecord struct {
	Episode int     `json:"episode"`
	Step    int     `json:"step"`
	Action  string  `json:"action"`
	Visits  int     `json:"visits"`
	Value   float64 `json:"value"`
	SearchMetric
}

type EpisodeRecord struct {
	ID        int           `json:"id"`
	Config    int           `json:"config"` // RunConfig.ID
	Seed      int64         `json:"seed"`
	Steps     int           `json:"steps"`
	Reward    float64       `json:"reward"`
	Success   bool          `json:"success"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
}

type RunConfig struct {
	ID          int     `json:"id"`
	Env         string  `json:"env"`
	Iterations  int     `json:"iterations"`
	Exploration float64 `json:"exploration"`
	Games       int     `json:"games"`
}

// Collector accumulates the counters of a single search call.
type Collector interface {
	Start(iterations int, exploration float64)
	AddIteration()
	AddFullPlayout()
	AddDeadEnd()
	SetNodes(n int)
	Complete() SearchMetric
}

type collector struct {
	iterations   int
	exploration  float64
	startTime    time.Time
	done         atomic.Int32
	fullPlayouts atomic.Int32
	deadEnds     atomic.Int32
	nodes        atomic.Int32
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) Start(iterations int, exploration float64) {
	m.startTime = time.Now()
	m.iterations = iterations
	m.exploration = exploration
}

func (m *collector) AddIteration() {
	m.done.Add(1)
}

func (m *collector) AddFullPlayout() {
	m.fullPlayouts.Add(1)
}

func (m *collector) AddDeadEnd() {
	m.deadEnds.Add(1)
}

func (m *collector) SetNodes(n int) {
	m.nodes.Store(int32(n))
}

func (m *collector) Complete() SearchMetric {
	return SearchMetric{
		Duration:     time.Since(m.startTime),
		Iterations:   int(m.done.Load()),
		Exploration:  m.exploration,
		FullPlayouts: int(m.fullPlayouts.Load()),
		DeadEnds:     int(m.deadEnds.Load()),
		Nodes:        int(m.nodes.Load()),
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start(iterations int, exploration float64) {}
func (m *dummyCollector) AddIteration()                             {}
func (m *dummyCollector) AddFullPlayout()                           {}
func (m *dummyCollector) AddDeadEnd()                               {}
func (m *dummyCollector) SetNodes(n int)                            {}
func (m *dummyCollector) Complete() SearchMetric                    { return SearchMetric{} }
