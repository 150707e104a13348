// Package factory assembles the analyst from its parts: oracle client,
// function registry, query executor, and session persistence.
package factory

import (
	"context"
	"fmt"
	"log"

	"github.com/ChamsBouzaiene/tally/internal/engine"
	"github.com/ChamsBouzaiene/tally/internal/oracle"
	"github.com/ChamsBouzaiene/tally/internal/query"
	"github.com/ChamsBouzaiene/tally/internal/session"
	"github.com/ChamsBouzaiene/tally/internal/tools"
	"github.com/ChamsBouzaiene/tally/internal/workbook"
)

// Analyst answers natural-language questions about spreadsheet files.
type Analyst struct {
	exec     *query.Executor
	workflow *engine.Workflow
	sessions *session.Store
}

// Outcome is the result of one analysis turn.
type Outcome struct {
	Analysis   string
	Query      string
	Tool       string
	ResultJSON string
	Usage      engine.Usage
	Err        *engine.AnalysisError
}

// NewAnalyst builds an analyst using the provider selected by the
// environment. sessions may be nil when persistence is not wanted.
func NewAnalyst(sessions *session.Store) (*Analyst, error) {
	client, model, err := oracle.NewClientFromEnv()
	if err != nil {
		return nil, fmt.Errorf("building oracle client: %w", err)
	}
	log.Printf("🤖 oracle ready (model %s)", model)

	exec := query.NewExecutor()
	return &Analyst{
		exec: exec,
		workflow: &engine.Workflow{
			LLM:   client,
			Model: model,
			Tools: tools.NewRegistry(exec),
			Opts:  engine.ChatOptions{Temperature: 0.1},
		},
		sessions: sessions,
	}, nil
}

// NewAnalystWithClient wires an explicit oracle client, used by tests.
func NewAnalystWithClient(client engine.LLMClient, model string, sessions *session.Store) *Analyst {
	exec := query.NewExecutor()
	return &Analyst{
		exec: exec,
		workflow: &engine.Workflow{
			LLM:   client,
			Model: model,
			Tools: tools.NewRegistry(exec),
			Opts:  engine.ChatOptions{Temperature: 0.1},
		},
		sessions: sessions,
	}
}

// RunAnalysis answers one question about a file. A non-empty history seeds
// the prompt context with prior turns supplied by the caller; otherwise, when
// sessionID is set and a store is configured, prior turns are restored from
// the store. The turn is persisted whenever a store and sessionID are given.
func (a *Analyst) RunAnalysis(ctx context.Context, file, question, sessionID string, history []engine.ChatMessage) (*Outcome, error) {
	st := &engine.AgentState{
		UserInput: question,
		FileName:  file,
		Stage:     engine.StageStart,
	}

	switch {
	case len(history) > 0:
		for i, msg := range history {
			if err := msg.Validate(); err != nil {
				return nil, fmt.Errorf("supplied history message %d: %w", i, err)
			}
		}
		st.History = history
	case a.sessions != nil && sessionID != "":
		restored, err := a.sessions.History(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		st.History = restored
	}

	a.workflow.Run(ctx, st)

	out := &Outcome{
		Analysis:   st.FinalAnalysis,
		Query:      st.Query,
		Tool:       st.Tool,
		ResultJSON: st.ResultJSON,
		Usage:      st.Totals,
		Err:        st.Err,
	}

	if a.sessions != nil && sessionID != "" {
		if _, err := a.sessions.Append(ctx, sessionID, engine.RoleUser, question); err != nil {
			return nil, err
		}
		if st.Succeeded() {
			if _, err := a.sessions.Append(ctx, sessionID, engine.RoleAssistant, st.FinalAnalysis); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// Inspect returns the structural preview of a file without consulting the
// oracle.
func (a *Analyst) Inspect(file, sheet string) (*workbook.PreviewInfo, error) {
	return a.exec.Preview(file, sheet)
}

// ClearCache evicts cached workbook state for one file, or everything when
// file is empty.
func (a *Analyst) ClearCache(file string) {
	a.exec.Clear(file)
}
