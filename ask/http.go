package ask

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ncobase/askflow/config"
	"github.com/ncobase/askflow/semantics"
	"github.com/sony/gobreaker"
)

const systemPrompt = `You translate questions into SQL over the models described by the user.
Only use the listed models and columns. Quote identifiers with double quotes.
Answer with a JSON object {"results": [{"sql": "...", "summary": "..."}]}.`

// HTTPGenerator asks an OpenAI compatible chat completions endpoint for SQL.
// Calls go through a circuit breaker so an unhealthy endpoint fails asks
// fast instead of tying up workers.
type HTTPGenerator struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
}

// NewHTTPGenerator creates a generator for cfg.Endpoint.
func NewHTTPGenerator(cfg *config.Generator) (*HTTPGenerator, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, errors.New("generator: endpoint is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPGenerator{
		endpoint: strings.TrimRight(cfg.Endpoint, "/") + "/chat/completions",
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		client:   &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "sql-generator",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
		}),
	}, nil
}

// State reports the breaker state.
func (g *HTTPGenerator) State() gobreaker.State { return g.breaker.State() }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate implements Generator.
func (g *HTTPGenerator) Generate(ctx context.Context, req Request) ([]Candidate, error) {
	out, err := g.breaker.Execute(func() (any, error) {
		return g.call(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	cands := out.([]Candidate)
	if req.Limit > 0 && len(cands) > req.Limit {
		cands = cands[:req.Limit]
	}
	return cands, nil
}

func (g *HTTPGenerator) call(ctx context.Context, req Request) ([]Candidate, error) {
	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: Prompt(req)},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint returned %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var chat chatResponse
	if err := json.Unmarshal(data, &chat); err != nil {
		return nil, fmt.Errorf("decode completion: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, errors.New("completion has no choices")
	}
	return parseCandidates(chat.Choices[0].Message.Content)
}

func parseCandidates(content string) ([]Candidate, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.Trim(content, "`\n ")

	var payload struct {
		Results []Candidate `json:"results"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("decode candidates: %w", err)
	}
	out := payload.Results[:0]
	for _, c := range payload.Results {
		if strings.TrimSpace(c.SQL) != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("completion contained no sql")
	}
	return out, nil
}

// Prompt renders the question and its context as the user message.
func Prompt(req Request) string {
	var b strings.Builder
	for _, m := range req.Matches {
		d := m.Document
		fmt.Fprintf(&b, "%s %s(%s)", d.Kind, semantics.QuoteIdent(d.Name), strings.Join(d.Columns, ", "))
		if d.Description != "" {
			fmt.Fprintf(&b, " -- %s", d.Description)
		}
		b.WriteByte('\n')
	}
	for _, r := range req.Relations {
		fmt.Fprintf(&b, "relationship %s: %s\n", r.Name, r.Source)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 3
	}
	fmt.Fprintf(&b, "\nReturn at most %d queries.\nQuestion: %s\n", limit, req.Query)
	return b.String()
}
