package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"attest/internal/config"
	"attest/internal/logx"
	"attest/ports"
)

// Client talks to an OpenAI-compatible chat-completions endpoint. One
// request is made per control, carrying every design-element prompt and all
// evidence attachments; the model is instructed to answer with a JSON array
// holding one object per prompt.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	httpClient  *http.Client
	logger      *logx.Logger
}

// NewClient creates an LLM client from configuration
func NewClient(cfg config.LLMConfig, logger *logx.Logger) *Client {
	if logger == nil {
		logger = logx.NewDefault()
	}
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	logger.Info("[LLMClient] initialized: model=%s, maxTokens=%d, timeout=%v",
		cfg.Model, cfg.MaxTokens, timeout)
	return &Client{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     timeout,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type message struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type requestBody struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Seed        int       `json:"seed,omitempty"`
}

type responseBody struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// EvaluateControl implements ports.LLMClient. Answers come back positionally
// correlated with the prompts; when the model's top-level array cannot be
// recovered, every prompt receives the full raw content so downstream
// recovery still produces a row per element.
func (c *Client) EvaluateControl(ctx context.Context, req ports.ControlRequest) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	content := buildUserContent(req)
	body := requestBody{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: []contentPart{{Type: "text", Text: req.SystemPrompt}}},
			{Role: "user", Content: content},
		},
		Temperature: c.temperature,
		TopP:        1,
		MaxTokens:   c.maxTokens,
		Seed:        42,
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Info("[LLMClient] control %s: %d prompts, %d attachments, %d request bytes",
		req.ControlID, len(req.Prompts), len(req.Attachments), len(raw))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("X-Request-Id", uuid.NewString())
	httpReq.Header.Set("X-Correlation-Id", uuid.NewString())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("request timeout after %v: %w", c.timeout, err)
		}
		return nil, fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llm API error (status %d): %s", resp.StatusCode, string(respBytes))
	}

	var parsed responseBody
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return nil, fmt.Errorf("parse response envelope: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("no choices in llm response")
	}

	text := parsed.Choices[0].Message.Content
	c.logger.Debug("[LLMClient] control %s: %d content bytes", req.ControlID, len(text))
	return splitAnswers(text, len(req.Prompts)), nil
}

// buildUserContent assembles the multi-part user message: each numbered
// design-element prompt as a text part, evidence names for traceability,
// then the payloads themselves. Binary evidence rides as data-URL image
// parts; extracted document text rides as plain text parts.
func buildUserContent(req ports.ControlRequest) []contentPart {
	parts := make([]contentPart, 0, 2*len(req.Prompts)+2*len(req.Attachments)+1)

	parts = append(parts, contentPart{
		Type: "text",
		Text: fmt.Sprintf("Answer the following %d questions. Respond with a JSON array containing exactly one object per question, in order.", len(req.Prompts)),
	})
	for i, prompt := range req.Prompts {
		parts = append(parts, contentPart{
			Type: "text",
			Text: fmt.Sprintf("Question %d: %s", i+1, prompt),
		})
	}
	for _, att := range req.Attachments {
		parts = append(parts, contentPart{
			Type: "text",
			Text: fmt.Sprintf("Evidence Name: %s", att.Name),
		})
	}
	for _, att := range req.Attachments {
		if att.Text != "" {
			parts = append(parts, contentPart{
				Type: "text",
				Text: fmt.Sprintf("Evidence %s content:\n%s", att.Name, att.Text),
			})
			continue
		}
		parts = append(parts, contentPart{
			Type:     "image_url",
			ImageURL: &imageURL{URL: att.DataURL},
		})
	}
	return parts
}

// splitAnswers slices the model's top-level JSON array into one raw answer
// string per prompt. When the content is not a recoverable array, every
// prompt gets the whole content; the report assembler's layered recovery
// handles it from there.
func splitAnswers(content string, promptCount int) []string {
	answers := make([]string, promptCount)

	stripped := strings.TrimSpace(content)
	if strings.HasPrefix(stripped, "```") {
		stripped = strings.TrimPrefix(stripped, "```json")
		stripped = strings.TrimPrefix(stripped, "```")
		stripped = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(stripped), "```"))
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(stripped), &items); err == nil {
		for i := range answers {
			if i < len(items) {
				answers[i] = string(items[i])
			}
		}
		return answers
	}

	for i := range answers {
		answers[i] = content
	}
	return answers
}
