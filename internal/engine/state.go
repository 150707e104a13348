package engine

// Stage represents the current position in the workflow state machine.
type Stage string

const (
	StageStart            Stage = "start"
	StageGenerateQuery    Stage = "generate_query"
	StageExecute          Stage = "execute"
	StageGenerateAnalysis Stage = "generate_analysis"
	StageDone             Stage = "done"
	StageError            Stage = "error"
)

// AgentState is the single mutable record threaded through one workflow
// invocation. Exactly one instance exists per turn; it is never shared
// across concurrent turns.
type AgentState struct {
	UserInput string // immutable for the turn
	FileName  string
	SheetName string

	PreviewJSON string // structural preview, lazily populated
	Query       string // generated query text
	Tool        string // function the oracle selected
	ResultJSON  string // tabular payload from the executor

	FinalAnalysis string
	Err           *AnalysisError

	History    []ChatMessage // append-only within a session
	Stage      Stage
	Iterations int
	Totals     Usage // accumulated oracle token usage
}

// Append adds a message to the conversation history. The core never reorders
// or deletes turns; pruning is a session-manager concern.
func (s *AgentState) Append(msg ChatMessage) {
	s.History = append(s.History, msg)
}

// Fail records the error and moves the workflow to the terminal error stage.
func (s *AgentState) Fail(err *AnalysisError) {
	s.Err = err
	s.Stage = StageError
}

// Succeeded reports whether the workflow produced a result without error.
// A query result is either present-and-successful or the error is set,
// never both.
func (s *AgentState) Succeeded() bool {
	return s.Err == nil && s.Stage == StageDone
}
