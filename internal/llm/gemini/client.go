package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genai"

	"statement-backend/internal/llm"
)

const defaultModel = "gemini-2.0-flash"

// Client implements llm.Client using the Google GenAI SDK against the
// Gemini API.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewClient constructs a Gemini client. The API key is required; the model
// falls back to the default when empty.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}

	timeout := 120 * time.Second
	if raw := strings.TrimSpace(os.Getenv("LLM_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{client: client, model: model, timeout: timeout}, nil
}

// Generate sends one generateContent request and returns the narrative.
// Every transport fault maps to *llm.ServiceError; a deadline hit is marked
// as a timeout so callers can surface it distinctly.
func (c *Client) Generate(ctx context.Context, input llm.GenerateInput) (llm.Insight, error) {
	prompt := llm.BuildPrompt(input)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.2)),
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return llm.Insight{}, &llm.ServiceError{
			Op:      "gemini.generate",
			Timeout: errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded),
			Err:     err,
		}
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return llm.Insight{}, &llm.ServiceError{Op: "gemini.generate", Err: errors.New("empty model response")}
	}

	return llm.Insight{
		Analysis:    text,
		Prompt:      prompt,
		Model:       c.model,
		GeneratedAt: time.Now().UTC(),
	}, nil
}
