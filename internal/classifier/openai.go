package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/olegrjumin/checkurl/internal/httpclient"
	"github.com/olegrjumin/checkurl/internal/logging"
)

// DefaultOpenAIBaseURL is the public OpenAI API root.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAI completes prompts through an OpenAI-compatible chat completions API.
type OpenAI struct {
	client  *httpclient.Client
	logger  *logging.Logger
	apiKey  string
	model   string
	baseURL string
}

// NewOpenAI creates an OpenAI completer. Empty model or baseURL use the
// defaults; an empty apiKey is reported on every call.
func NewOpenAI(client *httpclient.Client, logger *logging.Logger, apiKey, model, baseURL string) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	return &OpenAI{
		client:  client,
		logger:  logger,
		apiKey:  strings.TrimPrefix(strings.TrimSpace(apiKey), "Bearer "),
		model:   model,
		baseURL: baseURL,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete implements Completer.
func (o *OpenAI) Complete(ctx context.Context, system, prompt string) (string, error) {
	if o.apiKey == "" {
		return "", ErrMissingCredential
	}

	endpoint, err := o.endpoint()
	if err != nil {
		return "", fmt.Errorf("%w: invalid base url: %w", ErrTransport, err)
	}

	body, err := json.Marshal(chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: map[string]any{"type": "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.PostJSON(ctx, endpoint, header, body)
	if err != nil {
		return "", wrapTransport(ctx, err)
	}

	o.logger.Debug("Classifier call completed",
		"provider", "openai",
		"status", resp.StatusCode,
		"ttfb_ms", resp.Timings.TTFB().Milliseconds(),
		"total_ms", resp.Timings.Total().Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode, Body: truncate(string(resp.Body), 200)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: no completion returned", ErrMalformed)
	}
	return parsed.Choices[0].Message.Content, nil
}

func (o *OpenAI) endpoint() (string, error) {
	u, err := url.Parse(o.baseURL)
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(u.Path, "/chat/completions") {
		u.Path = path.Join("/", u.Path, "chat", "completions")
	}
	return u.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
