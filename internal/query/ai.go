package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"cim/internal/config"
)

// Candidate is one locally pre-filtered artifact sent to the ranker.
type Candidate struct {
	Path       string   `json:"path"`
	Summary    string   `json:"summary"`
	Tags       []string `json:"tags,omitempty"`
	LocalScore float64  `json:"localScore"`
}

// FlowSummary is the flow context included in the ranking prompt.
type FlowSummary struct {
	Name    string `json:"name"`
	Summary string `json:"summary,omitempty"`
}

// RankedPath is one entry of an external ranking.
type RankedPath struct {
	Path      string  `json:"path"`
	Relevance float64 `json:"relevance"`
	Reason    string  `json:"reason,omitempty"`
}

// Ranking is the parsed response of an external ranker.
type Ranking struct {
	Results []RankedPath `json:"results"`
	Flows   []string     `json:"flows,omitempty"`
}

// Ranker ranks pre-filtered candidates for a task using an external
// reasoning service.
type Ranker interface {
	Rank(ctx context.Context, task string, candidates []Candidate, flows []FlowSummary) (*Ranking, error)
}

// NewRanker builds a Ranker from configuration. Returns nil when the
// backend is empty or "none", leaving AI mode permanently degraded.
func NewRanker(cfg config.AIConfig, logger *slog.Logger) (Ranker, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "subprocess":
		if cfg.Command == "" {
			return nil, fmt.Errorf("ai.backend is subprocess but ai.command is empty")
		}
		return &SubprocessRanker{
			Command: cfg.Command,
			Args:    cfg.Args,
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
			Logger:  logger,
		}, nil
	case "openai":
		key := os.Getenv("CIM_OPENAI_API_KEY")
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("ai.backend is openai but no API key is set")
		}
		cc := openai.DefaultConfig(key)
		if cfg.BaseURL != "" {
			cc.BaseURL = cfg.BaseURL
		}
		model := cfg.Model
		if model == "" {
			model = openai.GPT4oMini
		}
		return &OpenAIRanker{
			client:  openai.NewClientWithConfig(cc),
			model:   model,
			timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		}, nil
	default:
		return nil, fmt.Errorf("unknown ai backend %q", cfg.Backend)
	}
}

// SubprocessRanker pipes the ranking prompt to an external command's
// stdin and parses a JSON ranking from its stdout.
type SubprocessRanker struct {
	Command string
	Args    []string
	Timeout time.Duration
	Logger  *slog.Logger
}

func (r *SubprocessRanker) Rank(ctx context.Context, task string, candidates []Candidate, flows []FlowSummary) (*Ranking, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	prompt, err := buildPrompt(task, candidates, flows)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, r.Command, r.Args...)
	cmd.Stdin = strings.NewReader(prompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if r.Logger != nil && stderr.Len() > 0 {
			r.Logger.Debug("ranker subprocess stderr", "output", stderr.String())
		}
		return nil, fmt.Errorf("ranker subprocess %s: %w", r.Command, err)
	}
	return parseRanking(stdout.String())
}

// OpenAIRanker performs ranking through a chat-completion API.
type OpenAIRanker struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

const rankerSystemPrompt = "You rank source-code artifacts by relevance to a developer task. " +
	"Respond with JSON only, no commentary."

func (r *OpenAIRanker) Rank(ctx context.Context, task string, candidates []Candidate, flows []FlowSummary) (*Ranking, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	prompt, err := buildPrompt(task, candidates, flows)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: rankerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}
	return parseRanking(resp.Choices[0].Message.Content)
}

// buildPrompt lays out the task, candidates, and flow context followed
// by the expected response shape.
func buildPrompt(task string, candidates []Candidate, flows []FlowSummary) (string, error) {
	payload := struct {
		Candidates []Candidate   `json:"candidates"`
		Flows      []FlowSummary `json:"flows,omitempty"`
	}{Candidates: candidates, Flows: flows}

	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode ranking payload: %w", err)
	}

	var b strings.Builder
	b.WriteString("Task: ")
	b.WriteString(task)
	b.WriteString("\n\nRank the following code artifacts by relevance to the task. ")
	b.WriteString("Candidates were pre-filtered by a lexical scorer; re-rank them on meaning.\n\n")
	b.Write(body)
	b.WriteString("\n\nRespond with a JSON object of this exact shape:\n")
	b.WriteString(`{"results":[{"path":"...","relevance":0.0,"reason":"..."}],"flows":["..."]}`)
	b.WriteString("\nList only paths from the candidates, most relevant first. ")
	b.WriteString("Include a flow name only if the flow is relevant to the task.\n")
	return b.String(), nil
}

// parseRanking extracts the JSON object from a ranker response,
// tolerating markdown code fences and surrounding prose.
func parseRanking(raw string) (*Ranking, error) {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			s = s[i : j+1]
		}
	}
	var ranking Ranking
	if err := json.Unmarshal([]byte(s), &ranking); err != nil {
		return nil, fmt.Errorf("parse ranking response: %w", err)
	}
	if len(ranking.Results) == 0 {
		return nil, fmt.Errorf("ranking response contained no results")
	}
	return &ranking, nil
}
