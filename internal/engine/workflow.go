package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ChamsBouzaiene/tally/internal/prompts"
)

// historyWindow is how many trailing messages are injected into prompts.
const historyWindow = 6

// maxPreviewRounds bounds the generate_query loop. The only legal loop edge
// is "oracle asked for a preview first"; anything longer means the oracle is
// stuck and the workflow fails instead of burning round-trips.
const maxPreviewRounds = 5

// Workflow is the two-round-trip state machine: one oracle call to pick a
// query function, one execution, and (on success) one oracle call to turn
// the result into a narrative analysis. Every failure is terminal; nothing
// is retried or rewritten.
type Workflow struct {
	LLM   LLMClient
	Model string
	Tools ToolRegistry
	Opts  ChatOptions

	// Now is injectable for tests; zero value means time.Now.
	Now func() time.Time
}

func (w *Workflow) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// Run drives one user turn through the state machine. The returned state is
// the same instance, mutated in place: terminal at StageDone or StageError,
// with the conversation history appended with this turn.
func (w *Workflow) Run(ctx context.Context, st *AgentState) *AgentState {
	if st.UserInput == "" || st.FileName == "" {
		st.Fail(Errorf(KindInternal, "missing required fields: file name or user question"))
		return st
	}

	// Snapshot prior turns for prompt context before this turn is appended.
	priorContext := historyContext(st.History)
	st.Append(ChatMessage{Role: RoleUser, Content: st.UserInput})

	dc := prompts.DateContextAt(w.now())

	st.Stage = StageGenerateQuery
	for st.Iterations < maxPreviewRounds {
		st.Iterations++
		log.Printf("🧠 generation round %d for %s", st.Iterations, st.FileName)

		resp, err := w.LLM.Chat(ctx, w.Model, []ChatMessage{
			{Role: RoleSystem, Content: prompts.QueryGeneration(dc)},
			{Role: RoleUser, Content: generationMessage(st, priorContext)},
		}, w.Tools.Schemas(), w.Opts)
		if err != nil {
			st.Fail(asAnalysisError(err, KindOracleUnavailable))
			return st
		}
		st.Totals.Prompt += resp.Usage.Prompt
		st.Totals.Completion += resp.Usage.Completion
		st.Totals.Total += resp.Usage.Total

		dec, aerr := ParseDecision(resp, w.Tools)
		if aerr != nil {
			st.Fail(aerr)
			return st
		}

		// The turn is bound to one file; a call naming another is rejected
		// before it reaches the executor.
		if dec.Kind != DecisionTerminal {
			if dec.FileName != st.FileName {
				st.Fail(Errorf(KindInvalidFunctionCall,
					"oracle referenced file %q, this turn is bound to %q", dec.FileName, st.FileName))
				return st
			}
			if dec.SheetName != "" {
				st.SheetName = dec.SheetName
			}
		}

		switch dec.Kind {
		case DecisionTerminal:
			// Terminal answer with no call: stage skip straight to done.
			st.FinalAnalysis = dec.Text
			st.Stage = StageDone
			st.Append(ChatMessage{Role: RoleAssistant, Content: st.FinalAnalysis})
			return st

		case DecisionPreview:
			st.Tool = dec.Call.Name
			out, err := w.dispatch(ctx, dec)
			if err != nil {
				st.Fail(asAnalysisError(err, KindInternal))
				return st
			}
			st.PreviewJSON = out
			// Loop back: the oracle now has structure to generate a query.
			continue

		case DecisionTabular, DecisionSQL:
			st.Stage = StageExecute
			st.Tool = dec.Call.Name
			st.Query = dec.Query
			out, err := w.dispatch(ctx, dec)
			if err != nil {
				// Fail fast: execution errors surface verbatim, no re-prompt.
				st.Fail(asAnalysisError(err, KindInternal))
				return st
			}
			st.ResultJSON = out
			return w.generateAnalysis(ctx, st, dc, priorContext)
		}
	}

	st.Fail(Errorf(KindInvalidFunctionCall,
		"oracle requested a preview %d times without generating a query", maxPreviewRounds))
	return st
}

// dispatch runs the validated function call through the registry.
func (w *Workflow) dispatch(ctx context.Context, dec Decision) (string, error) {
	tool, ok := w.Tools[dec.Call.Name]
	if !ok {
		return "", Errorf(KindInvalidFunctionCall, "unknown function %q", dec.Call.Name)
	}
	return tool.Fn(ctx, dec.Call.Args)
}

// generateAnalysis is the second oracle round-trip, reached only on
// successful query execution.
func (w *Workflow) generateAnalysis(ctx context.Context, st *AgentState, dc prompts.DateContext, priorContext string) *AgentState {
	st.Stage = StageGenerateAnalysis
	log.Printf("📊 generating analysis for %s", st.FileName)

	resp, err := w.LLM.Chat(ctx, w.Model, []ChatMessage{
		{Role: RoleSystem, Content: prompts.Analysis(dc)},
		{Role: RoleUser, Content: analysisMessage(st, priorContext)},
	}, nil, w.Opts)
	if err != nil {
		st.Fail(asAnalysisError(err, KindOracleUnavailable))
		return st
	}
	st.Totals.Prompt += resp.Usage.Prompt
	st.Totals.Completion += resp.Usage.Completion
	st.Totals.Total += resp.Usage.Total

	st.FinalAnalysis = resp.Text
	if st.FinalAnalysis == "" {
		st.FinalAnalysis = "Query executed successfully but no analysis was generated."
	}
	st.Stage = StageDone
	st.Append(ChatMessage{Role: RoleAssistant, Content: st.FinalAnalysis})
	return st
}

// generationMessage assembles the user message for the query-generation
// round: prior conversation, file reference, question, and the structural
// preview once loaded.
func generationMessage(st *AgentState, priorContext string) string {
	var b strings.Builder
	if priorContext != "" {
		b.WriteString(priorContext)
	}
	fmt.Fprintf(&b, "File: %s\n", st.FileName)
	fmt.Fprintf(&b, "User Question: %s\n\n", st.UserInput)
	if st.PreviewJSON != "" {
		fmt.Fprintf(&b, "Preview Data:\n%s\n\n", st.PreviewJSON)
	} else {
		b.WriteString("No preview data available - you must call load_preview_data first.\n\n")
	}
	b.WriteString("You MUST call a function to handle this request.\n")
	return b.String()
}

// analysisMessage assembles the user message for the analysis round.
func analysisMessage(st *AgentState, priorContext string) string {
	var b strings.Builder
	if priorContext != "" {
		b.WriteString(priorContext)
	}
	fmt.Fprintf(&b, "User Question: %s\n\n", st.UserInput)
	fmt.Fprintf(&b, "Executed Query: %s\n\n", st.Query)
	fmt.Fprintf(&b, "Query Results:\n%s\n\n", st.ResultJSON)
	b.WriteString("Please provide a comprehensive business analysis of these results.\n")
	return b.String()
}

// historyContext renders the trailing window of prior turns for prompts.
func historyContext(history []ChatMessage) string {
	if len(history) == 0 {
		return ""
	}
	start := 0
	if len(history) > historyWindow {
		start = len(history) - historyWindow
	}
	var b strings.Builder
	b.WriteString("CONVERSATION HISTORY:\n")
	for _, msg := range history[start:] {
		fmt.Fprintf(&b, "%s: %s\n\n", strings.ToUpper(string(msg.Role)), msg.Content)
	}
	b.WriteString("---END OF CONVERSATION HISTORY---\n\n")
	return b.String()
}

// asAnalysisError coerces an arbitrary error into an AnalysisError, using
// fallback as the kind for unclassified errors.
func asAnalysisError(err error, fallback ErrorKind) *AnalysisError {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae
	}
	return NewError(fallback, err)
}
