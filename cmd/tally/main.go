package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ChamsBouzaiene/tally/internal/config"
	"github.com/ChamsBouzaiene/tally/internal/factory"
	"github.com/ChamsBouzaiene/tally/internal/query"
	"github.com/ChamsBouzaiene/tally/internal/session"
)

// errAnalysisFailed marks a turn whose diagnostic was already printed; main
// exits nonzero without logging it twice.
var errAnalysisFailed = errors.New("analysis failed")

func main() {
	// Load .env if present; real environment takes precedence over nothing.
	_ = godotenv.Load()

	if err := run(context.Background(), os.Args[1:]); err != nil {
		if errors.Is(err, errAnalysisFailed) {
			os.Exit(1)
		}
		log.Fatalf("command failed: %v", err)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tally", flag.ExitOnError)
	fileFlag := fs.String("file", "", "Path to the spreadsheet file to analyze")
	sessionFlag := fs.String("session", "", "Session id to continue (empty starts a fresh one-off turn)")
	inspectFlag := fs.Bool("inspect", false, "Print the file's structure instead of running an analysis")
	sheetFlag := fs.String("sheet", "", "Restrict inspection to one sheet")
	listFlag := fs.Bool("sessions", false, "List stored sessions and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: tally -file <spreadsheet> [flags] \"question\"\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Saved preferences feed the provider factory through the environment.
	if mgr, err := config.NewManager(); err == nil {
		if cfg, err := mgr.Load(); err == nil {
			config.ApplyEnv(cfg)
		}
	}

	store, err := openSessionStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if *listFlag {
		return listSessions(ctx, store)
	}

	if *fileFlag == "" {
		fs.Usage()
		return fmt.Errorf("missing -file")
	}

	if *inspectFlag {
		return inspect(*fileFlag, *sheetFlag)
	}

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fs.Usage()
		return fmt.Errorf("missing question")
	}

	analyst, err := factory.NewAnalyst(store)
	if err != nil {
		return err
	}

	sessionID := *sessionFlag
	if sessionID == "" {
		sess, err := store.Create(ctx, question)
		if err != nil {
			return err
		}
		sessionID = sess.ID
		log.Printf("💬 new session %s", sessionID)
	}

	out, err := analyst.RunAnalysis(ctx, *fileFlag, question, sessionID, nil)
	if err != nil {
		return err
	}
	if out.Err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed [%s]: %v\n", out.Err.Kind, out.Err)
		return errAnalysisFailed
	}

	if out.Query != "" {
		log.Printf("🔍 query (%s): %s", out.Tool, out.Query)
	}
	fmt.Println(out.Analysis)
	return nil
}

// inspect prints the structural preview without consulting the oracle.
func inspect(file, sheet string) error {
	info, err := query.NewExecutor().Preview(file, sheet)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func listSessions(ctx context.Context, store *session.Store) error {
	sessions, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("no stored sessions")
		return nil
	}
	for _, s := range sessions {
		fmt.Printf("%s  %s  %s\n", s.ID, s.UpdatedAt.Local().Format("2006-01-02 15:04"), s.Title)
	}
	return nil
}

func openSessionStore(ctx context.Context) (*session.Store, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user config dir: %w", err)
	}
	dir := filepath.Join(configDir, "tally")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return session.NewStore(ctx, filepath.Join(dir, "sessions.db"))
}
