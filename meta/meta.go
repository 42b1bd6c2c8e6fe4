// meta/meta.go
package meta

// SearchIterations defines the default number of MCTS iterations for a search step.
const SearchIterations = 1000

// EvaluateIterations defines the default number of MCTS iterations for an evaluate step.
const EvaluateIterations = 500

// Exploration defines the default UCB1 exploration constant.
const Exploration = 1.41

// AsyncWorkers defines the size of the process-wide search pool.
const AsyncWorkers = 2

// TopActions defines how many ranked actions a session keeps in its diagnostics.
const TopActions = 5

// MaxSteps defines the cap on search/apply rounds in one episode.
const MaxSteps = 300

// AnswerTolerance defines how close a float answer must be to an integer to be reported as one.
const AnswerTolerance = 0.01

// AsyncQueue defines how many search jobs the pool buffers before Submit hands off to a goroutine.
const AsyncQueue = 64
