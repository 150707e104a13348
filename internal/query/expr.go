package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ChamsBouzaiene/tally/internal/engine"
)

// The tabular query language is a pipeline of restricted, side-effect-free
// stages: filter, select, sort, aggregate, limit. It is parsed into a small
// AST and interpreted; there is no host-language evaluation anywhere.
//
//	filter Region == "West" | select Item, Sales | sort Sales desc | limit 10

type stage interface {
	stageName() string
}

type filterStage struct {
	Column string
	Op     string
	Value  string
}

type selectStage struct {
	Columns []string
}

type sortStage struct {
	Column string
	Desc   bool
}

type aggStage struct {
	Fn     string // sum | avg | min | max | count
	Column string // empty for count
}

type limitStage struct {
	N int
}

func (filterStage) stageName() string { return "filter" }
func (selectStage) stageName() string { return "select" }
func (sortStage) stageName() string   { return "sort" }
func (aggStage) stageName() string    { return "aggregate" }
func (limitStage) stageName() string  { return "limit" }

var filterOps = map[string]struct{}{
	"==": {}, "!=": {}, ">": {}, ">=": {}, "<": {}, "<=": {}, "contains": {},
}

// parsePipeline parses a pipeline expression into its stages. All failures
// are invalid-expression errors carrying the exact diagnostic; the caller
// surfaces them verbatim.
func parsePipeline(expr string) ([]stage, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, engine.Errorf(engine.KindInvalidExpression, "empty query")
	}

	parts, err := splitStages(expr)
	if err != nil {
		return nil, err
	}

	stages := make([]stage, 0, len(parts))
	for _, part := range parts {
		tokens, err := tokenize(part)
		if err != nil {
			return nil, err
		}
		if len(tokens) == 0 {
			return nil, engine.Errorf(engine.KindInvalidExpression, "empty pipeline stage")
		}

		s, err := parseStage(tokens)
		if err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	return stages, nil
}

func parseStage(tokens []string) (stage, error) {
	keyword := strings.ToLower(tokens[0])
	rest := tokens[1:]

	switch keyword {
	case "filter":
		if len(rest) != 3 {
			return nil, engine.Errorf(engine.KindInvalidExpression,
				"filter expects <column> <op> <value>, got %d tokens", len(rest))
		}
		op := rest[1]
		if _, ok := filterOps[op]; !ok {
			return nil, engine.Errorf(engine.KindInvalidExpression, "unknown filter operator %q", op)
		}
		return filterStage{Column: rest[0], Op: op, Value: rest[2]}, nil

	case "select":
		if len(rest) == 0 {
			return nil, engine.Errorf(engine.KindInvalidExpression, "select expects at least one column")
		}
		cols := make([]string, 0, len(rest))
		for _, tok := range rest {
			for _, c := range strings.Split(tok, ",") {
				c = strings.TrimSpace(c)
				if c != "" {
					cols = append(cols, c)
				}
			}
		}
		if len(cols) == 0 {
			return nil, engine.Errorf(engine.KindInvalidExpression, "select expects at least one column")
		}
		return selectStage{Columns: cols}, nil

	case "sort":
		switch len(rest) {
		case 1:
			return sortStage{Column: rest[0]}, nil
		case 2:
			dir := strings.ToLower(rest[1])
			if dir != "asc" && dir != "desc" {
				return nil, engine.Errorf(engine.KindInvalidExpression, "sort direction must be asc or desc, got %q", rest[1])
			}
			return sortStage{Column: rest[0], Desc: dir == "desc"}, nil
		default:
			return nil, engine.Errorf(engine.KindInvalidExpression, "sort expects <column> [asc|desc]")
		}

	case "sum", "avg", "min", "max":
		if len(rest) != 1 {
			return nil, engine.Errorf(engine.KindInvalidExpression, "%s expects exactly one column", keyword)
		}
		return aggStage{Fn: keyword, Column: rest[0]}, nil

	case "count":
		if len(rest) != 0 {
			return nil, engine.Errorf(engine.KindInvalidExpression, "count takes no arguments")
		}
		return aggStage{Fn: "count"}, nil

	case "limit", "head":
		if len(rest) != 1 {
			return nil, engine.Errorf(engine.KindInvalidExpression, "%s expects exactly one number", keyword)
		}
		n, err := strconv.Atoi(rest[0])
		if err != nil || n < 0 {
			return nil, engine.Errorf(engine.KindInvalidExpression, "%s expects a non-negative integer, got %q", keyword, rest[0])
		}
		return limitStage{N: n}, nil

	default:
		return nil, engine.Errorf(engine.KindInvalidExpression, "unknown pipeline stage %q", tokens[0])
	}
}

// splitStages splits on "|" outside of double quotes.
func splitStages(expr string) ([]string, error) {
	var parts []string
	var cur strings.Builder
	inQuote := false
	for _, r := range expr {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == '|' && !inQuote:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if inQuote {
		return nil, engine.Errorf(engine.KindInvalidExpression, "unterminated quoted string")
	}
	parts = append(parts, cur.String())
	return parts, nil
}

// tokenize splits one stage into whitespace-separated tokens, keeping
// double-quoted spans (which may contain spaces) as single tokens with the
// quotes stripped.
func tokenize(s string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	inQuote := false
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			if inQuote {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inQuote = false
			} else {
				flush()
				inQuote = true
			}
		case (r == ' ' || r == '\t' || r == '\n') && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	if inQuote {
		return nil, engine.Errorf(engine.KindInvalidExpression, "unterminated quoted string")
	}
	flush()
	return tokens, nil
}

// describeStages is used in evaluator diagnostics.
func describeStages(stages []stage) string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.stageName()
	}
	return fmt.Sprintf("[%s]", strings.Join(names, " | "))
}
