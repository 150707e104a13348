package engine

import (
	"context"
	"strings"
	"testing"
	"time"
)

// scriptedLLM replays canned responses in order and records the requests.
type scriptedLLM struct {
	responses []LLMResponse
	requests  [][]ChatMessage
	err       error
}

func (s *scriptedLLM) Chat(ctx context.Context, model string, messages []ChatMessage, schemas []ToolSchema, opts ChatOptions) (LLMResponse, error) {
	s.requests = append(s.requests, messages)
	if s.err != nil {
		return LLMResponse{}, s.err
	}
	if len(s.requests) > len(s.responses) {
		return LLMResponse{}, Errorf(KindInternal, "scripted client exhausted after %d calls", len(s.responses))
	}
	return s.responses[len(s.requests)-1], nil
}

// recordingTools wraps the test registry so dispatches can be asserted and
// failures injected per function.
func recordingTools(results map[string]string, failures map[string]error, calls *[]string) ToolRegistry {
	reg := testRegistry()
	for name, tool := range reg {
		name, tool := name, tool
		tool.Fn = func(ctx context.Context, args map[string]any) (string, error) {
			*calls = append(*calls, name)
			if err, ok := failures[name]; ok {
				return "", err
			}
			return results[name], nil
		}
		reg[name] = tool
	}
	return reg
}

func previewCall() FunctionCall {
	return FunctionCall{Name: FnLoadPreview, Args: map[string]any{"file_name": "sales.xlsx"}}
}

func tabularCall(q string) FunctionCall {
	return FunctionCall{Name: FnTabularQuery, Args: map[string]any{"file_name": "sales.xlsx", "query": q}}
}

func sqlCall(q string) FunctionCall {
	return FunctionCall{Name: FnSQLQuery, Args: map[string]any{"file_name": "sales.xlsx", "query": q}}
}

func newTestWorkflow(llm LLMClient, tools ToolRegistry) *Workflow {
	return &Workflow{
		LLM:   llm,
		Model: "test-model",
		Tools: tools,
		Now:   func() time.Time { return time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC) },
	}
}

func TestWorkflowPreviewThenTabular(t *testing.T) {
	llm := &scriptedLLM{responses: []LLMResponse{
		{Calls: []FunctionCall{previewCall()}, Usage: Usage{Prompt: 10, Completion: 5, Total: 15}},
		{Calls: []FunctionCall{tabularCall(`filter Region == "West" | sum Sales`)}, Usage: Usage{Prompt: 20, Completion: 5, Total: 25}},
		{Text: "West region sold 4965 units in total.", Usage: Usage{Prompt: 30, Completion: 10, Total: 40}},
	}}
	var calls []string
	tools := recordingTools(map[string]string{
		FnLoadPreview:  `{"file_name":"sales.xlsx","sheets":[]}`,
		FnTabularQuery: `{"columns":["sum(Sales)"],"rows":[["4965"]],"row_count":1}`,
	}, nil, &calls)

	st := &AgentState{UserInput: "total West sales?", FileName: "sales.xlsx", Stage: StageStart}
	newTestWorkflow(llm, tools).Run(context.Background(), st)

	if !st.Succeeded() {
		t.Fatalf("workflow failed: stage=%s err=%v", st.Stage, st.Err)
	}
	if st.FinalAnalysis != "West region sold 4965 units in total." {
		t.Errorf("analysis = %q", st.FinalAnalysis)
	}
	if len(llm.requests) != 3 {
		t.Errorf("oracle round-trips = %d, want 3", len(llm.requests))
	}
	if len(calls) != 2 || calls[0] != FnLoadPreview || calls[1] != FnTabularQuery {
		t.Errorf("dispatches = %v", calls)
	}
	if st.Totals.Total != 80 {
		t.Errorf("token total = %d, want 80", st.Totals.Total)
	}

	// Second generation round must carry the preview payload.
	second := llm.requests[1]
	if !strings.Contains(second[len(second)-1].Content, "Preview Data") {
		t.Error("preview payload missing from second generation round")
	}
}

func TestWorkflowSQLHappyPath(t *testing.T) {
	llm := &scriptedLLM{responses: []LLMResponse{
		{Calls: []FunctionCall{sqlCall(`SELECT SUM("Sales") FROM sales_data`)}},
		{Text: "Total sales were 6165."},
	}}
	var calls []string
	tools := recordingTools(map[string]string{
		FnSQLQuery: `{"columns":["SUM(Sales)"],"rows":[["6165"]],"row_count":1}`,
	}, nil, &calls)

	st := &AgentState{UserInput: "total sales?", FileName: "sales.xlsx", Stage: StageStart}
	newTestWorkflow(llm, tools).Run(context.Background(), st)

	if !st.Succeeded() {
		t.Fatalf("workflow failed: stage=%s err=%v", st.Stage, st.Err)
	}
	if st.Query != `SELECT SUM("Sales") FROM sales_data` || st.Tool != FnSQLQuery {
		t.Errorf("query=%q tool=%q", st.Query, st.Tool)
	}
	if st.ResultJSON == "" {
		t.Error("result payload not recorded")
	}
}

func TestWorkflowExecutionFailureIsTerminal(t *testing.T) {
	llm := &scriptedLLM{responses: []LLMResponse{
		{Calls: []FunctionCall{sqlCall(`SELECT * FROM missing`)}},
	}}
	var calls []string
	tools := recordingTools(nil, map[string]error{
		FnSQLQuery: Errorf(KindSQLError, "no such table: missing"),
	}, &calls)

	st := &AgentState{UserInput: "broken?", FileName: "sales.xlsx", Stage: StageStart}
	newTestWorkflow(llm, tools).Run(context.Background(), st)

	if st.Stage != StageError {
		t.Fatalf("stage = %s, want error", st.Stage)
	}
	if st.Err == nil || st.Err.Kind != KindSQLError {
		t.Fatalf("err = %v, want sql error", st.Err)
	}
	// Diagnostic passes through verbatim, no rewriting.
	if !strings.Contains(st.Err.Error(), "no such table: missing") {
		t.Errorf("diagnostic rewritten: %q", st.Err.Error())
	}
	if st.FinalAnalysis != "" {
		t.Errorf("analysis = %q, want empty on failure", st.FinalAnalysis)
	}
	// Fail fast: exactly one oracle round-trip, no analysis call.
	if len(llm.requests) != 1 {
		t.Errorf("oracle round-trips = %d, want 1", len(llm.requests))
	}
}

func TestWorkflowTerminalTextShortCircuit(t *testing.T) {
	llm := &scriptedLLM{responses: []LLMResponse{
		{Text: "That file holds no data relevant to the question."},
	}}
	var calls []string
	tools := recordingTools(nil, nil, &calls)

	st := &AgentState{UserInput: "anything?", FileName: "sales.xlsx", Stage: StageStart}
	newTestWorkflow(llm, tools).Run(context.Background(), st)

	if !st.Succeeded() {
		t.Fatalf("workflow failed: stage=%s err=%v", st.Stage, st.Err)
	}
	if st.FinalAnalysis != "That file holds no data relevant to the question." {
		t.Errorf("analysis = %q", st.FinalAnalysis)
	}
	if len(calls) != 0 {
		t.Errorf("dispatches = %v, want none", calls)
	}
	if len(llm.requests) != 1 {
		t.Errorf("oracle round-trips = %d, want 1", len(llm.requests))
	}
}

func TestWorkflowPreviewLoopBounded(t *testing.T) {
	var responses []LLMResponse
	for i := 0; i < maxPreviewRounds+1; i++ {
		responses = append(responses, LLMResponse{Calls: []FunctionCall{previewCall()}})
	}
	llm := &scriptedLLM{responses: responses}
	var calls []string
	tools := recordingTools(map[string]string{FnLoadPreview: `{}`}, nil, &calls)

	st := &AgentState{UserInput: "loop?", FileName: "sales.xlsx", Stage: StageStart}
	newTestWorkflow(llm, tools).Run(context.Background(), st)

	if st.Stage != StageError {
		t.Fatalf("stage = %s, want error", st.Stage)
	}
	if st.Err.Kind != KindInvalidFunctionCall {
		t.Errorf("kind = %s, want %s", st.Err.Kind, KindInvalidFunctionCall)
	}
	if len(llm.requests) != maxPreviewRounds {
		t.Errorf("oracle round-trips = %d, want %d", len(llm.requests), maxPreviewRounds)
	}
}

func TestWorkflowOracleUnavailable(t *testing.T) {
	llm := &scriptedLLM{err: Errorf(KindOracleUnavailable, "connection refused")}
	var calls []string
	tools := recordingTools(nil, nil, &calls)

	st := &AgentState{UserInput: "hello?", FileName: "sales.xlsx", Stage: StageStart}
	newTestWorkflow(llm, tools).Run(context.Background(), st)

	if st.Stage != StageError || st.Err.Kind != KindOracleUnavailable {
		t.Errorf("stage=%s err=%v, want oracle-unavailable error", st.Stage, st.Err)
	}
}

func TestWorkflowRejectsMissingInputs(t *testing.T) {
	llm := &scriptedLLM{}
	var calls []string
	tools := recordingTools(nil, nil, &calls)

	st := &AgentState{UserInput: "", FileName: "sales.xlsx", Stage: StageStart}
	newTestWorkflow(llm, tools).Run(context.Background(), st)
	if st.Stage != StageError {
		t.Error("expected error for missing question")
	}

	st = &AgentState{UserInput: "q", FileName: "", Stage: StageStart}
	newTestWorkflow(llm, tools).Run(context.Background(), st)
	if st.Stage != StageError {
		t.Error("expected error for missing file")
	}
	if len(llm.requests) != 0 {
		t.Errorf("oracle consulted %d times before validation", len(llm.requests))
	}
}

func TestWorkflowRejectsForeignFile(t *testing.T) {
	llm := &scriptedLLM{responses: []LLMResponse{
		{Calls: []FunctionCall{{
			Name: FnTabularQuery,
			Args: map[string]any{"file_name": "other.xlsx", "query": "count"},
		}}},
	}}
	var calls []string
	tools := recordingTools(map[string]string{FnTabularQuery: `{}`}, nil, &calls)

	st := &AgentState{UserInput: "count rows", FileName: "sales.xlsx", Stage: StageStart}
	newTestWorkflow(llm, tools).Run(context.Background(), st)

	if st.Stage != StageError || st.Err == nil {
		t.Fatalf("stage=%s err=%v, want error", st.Stage, st.Err)
	}
	if st.Err.Kind != KindInvalidFunctionCall {
		t.Errorf("kind = %s, want %s", st.Err.Kind, KindInvalidFunctionCall)
	}
	if len(calls) != 0 {
		t.Errorf("dispatches = %v, want none for a foreign file", calls)
	}
}

func TestWorkflowRecordsSheetName(t *testing.T) {
	llm := &scriptedLLM{responses: []LLMResponse{
		{Calls: []FunctionCall{{
			Name: FnTabularQuery,
			Args: map[string]any{"file_name": "sales.xlsx", "sheet_name": "Q1", "query": "count"},
		}}},
		{Text: "There are 3 rows."},
	}}
	var calls []string
	tools := recordingTools(map[string]string{FnTabularQuery: `{"rows":[["3"]],"row_count":1}`}, nil, &calls)

	st := &AgentState{UserInput: "count rows", FileName: "sales.xlsx", Stage: StageStart}
	newTestWorkflow(llm, tools).Run(context.Background(), st)

	if !st.Succeeded() {
		t.Fatalf("workflow failed: stage=%s err=%v", st.Stage, st.Err)
	}
	if st.SheetName != "Q1" {
		t.Errorf("sheet name = %q, want Q1", st.SheetName)
	}
}

func TestWorkflowHistoryWindow(t *testing.T) {
	llm := &scriptedLLM{responses: []LLMResponse{
		{Text: "done"},
	}}
	var calls []string
	tools := recordingTools(nil, nil, &calls)

	st := &AgentState{UserInput: "follow-up", FileName: "sales.xlsx", Stage: StageStart}
	for i := 0; i < 10; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		st.Append(ChatMessage{Role: role, Content: "turn"})
	}
	st.Append(ChatMessage{Role: RoleUser, Content: "needle-turn"})

	newTestWorkflow(llm, tools).Run(context.Background(), st)

	prompt := llm.requests[0][len(llm.requests[0])-1].Content
	if !strings.Contains(prompt, "CONVERSATION HISTORY") {
		t.Fatal("history header missing from prompt")
	}
	if !strings.Contains(prompt, "needle-turn") {
		t.Error("recent turn missing from history window")
	}
	if got := strings.Count(prompt, "turn"); got > historyWindow {
		t.Errorf("history window leaked %d turns, cap is %d", got, historyWindow)
	}
}
