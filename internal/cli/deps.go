package cli

import (
	"os"

	"github.com/loteknowledG/samus-manus/internal/agent"
	"github.com/loteknowledG/samus-manus/internal/audit"
	"github.com/loteknowledG/samus-manus/internal/automation"
	"github.com/loteknowledG/samus-manus/internal/config"
	"github.com/loteknowledG/samus-manus/internal/memory"
	"github.com/loteknowledG/samus-manus/internal/memory/postgres"
	"github.com/loteknowledG/samus-manus/internal/plan"
)

// openStore opens the memory store for home: SQLite by default, PostgreSQL
// when the config (or DATABASE_URL) says so.
func openStore(home string, cfg config.Config) (memory.Store, error) {
	var embedder memory.Embedder
	if e := memory.NewOpenAIEmbedder(cfg.EmbedBaseURL, os.Getenv("OPENAI_API_KEY"), cfg.EmbedModel); e != nil {
		embedder = e
	}
	if cfg.DBDriver == "postgres" {
		return postgres.Open(cfg.DBURL, embedder)
	}
	return memory.OpenSQLite(home, embedder)
}

// newPlanner returns the LLM planner when an API key is present, otherwise
// the deterministic keyword planner.
func newPlanner(cfg config.Config) plan.Planner {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return plan.NewLLM(plan.LLMOpts{
			BaseURL: cfg.LLMBaseURL,
			APIKey:  key,
			Model:   cfg.LLMModel,
		})
	}
	return plan.Fallback{}
}

// newLoop wires a full agent loop against home. autoAnswer, when non-empty,
// answers approval prompts without a terminal (the heartbeat path).
func newLoop(home string, cfg config.Config, store memory.Store, autoAnswer string) *agent.Loop {
	gate := &agent.Gate{
		Store:      store,
		Audit:      audit.DefaultLog(home),
		Prompter:   &agent.StdioPrompter{In: os.Stdin, Out: os.Stdout},
		AutoAnswer: autoAnswer,
	}
	return &agent.Loop{
		Planner:  newPlanner(cfg),
		Executor: &agent.Executor{Backend: automation.Detect()},
		Gate:     gate,
		Store:    store,
		Out:      os.Stdout,
	}
}
