// Package plan turns a natural-language task into an ordered list of actions.
// An OpenAI-compatible endpoint is used when a key is configured; otherwise a
// small deterministic keyword planner answers. Planning never fails: empty or
// unparseable model output degrades to the fallback plan.
package plan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/loteknowledG/samus-manus/internal/action"
)

// Planner produces a plan for a task.
type Planner interface {
	Plan(ctx context.Context, task string) []action.Action
}

// Fallback is the deterministic keyword planner used when no LLM is available.
type Fallback struct{}

// Plan implements the keyword heuristics: "screenshot" yields a short wait
// plus a screenshot; "open" + "notepad" yields the fixed three-key sequence;
// anything else echoes the task as typed text. A done action always closes.
func (Fallback) Plan(_ context.Context, task string) []action.Action {
	var acts []action.Action
	lower := strings.ToLower(task)
	if strings.Contains(lower, "screenshot") {
		acts = append(acts, action.Wait(0.5), action.Screenshot("samus_screenshot.png"))
	}
	if strings.Contains(lower, "open") && strings.Contains(lower, "notepad") {
		acts = append(acts, action.Press("win"), action.Type("notepad"), action.Press("enter"))
	}
	if len(acts) == 0 {
		acts = append(acts, action.Type(task))
	}
	return append(acts, action.Done())
}

// LLMOpts configures the LLM-backed planner (OpenAI-compatible API).
type LLMOpts struct {
	BaseURL string // e.g. https://api.openai.com
	APIKey  string
	Model   string // e.g. gpt-4o-mini
}

// LLM asks a chat-completions endpoint to decompose the task into a JSON
// array of whitelisted actions, falling back to the keyword planner whenever
// the call or the parse comes up empty.
type LLM struct {
	Opts     LLMOpts
	Client   *http.Client
	Fallback Planner
}

// NewLLM builds an LLM planner with sane defaults.
func NewLLM(opts LLMOpts) *LLM {
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini"
	}
	return &LLM{Opts: opts, Client: http.DefaultClient, Fallback: Fallback{}}
}

const plannerPrompt = "You are a safe local agent planner. Break the user's task into a short JSON array " +
	"of low-level actions. Allowed actions: click, double_click, find_click, type, press, hotkey, " +
	"screenshot (out), wait (seconds), done. Return ONLY a JSON array.\nTask: "

func (p *LLM) Plan(ctx context.Context, task string) []action.Action {
	if p.Opts.APIKey == "" || p.Opts.BaseURL == "" {
		return p.fallback(ctx, task)
	}
	text, err := p.complete(ctx, plannerPrompt+task)
	if err != nil {
		slog.Info("LLM plan failed, falling back", "err", err)
		return p.fallback(ctx, task)
	}
	if acts := action.Parse(text); len(acts) > 0 {
		return acts
	}
	return p.fallback(ctx, task)
}

func (p *LLM) fallback(ctx context.Context, task string) []action.Action {
	fb := p.Fallback
	if fb == nil {
		fb = Fallback{}
	}
	return fb.Plan(ctx, task)
}

func (p *LLM) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":       p.Opts.Model,
		"messages":    []map[string]any{{"role": "user", "content": prompt}},
		"max_tokens":  400,
		"temperature": 0.0,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}
	url := strings.TrimSuffix(p.Opts.BaseURL, "/") + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.Opts.APIKey)
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("planner API returned status %d", resp.StatusCode)
	}
	var apiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", err
	}
	if len(apiResp.Choices) == 0 {
		return "", errors.New("planner API returned no choices")
	}
	return apiResp.Choices[0].Message.Content, nil
}
