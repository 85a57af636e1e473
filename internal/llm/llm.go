// Package llm wraps the OpenAI chat completion API behind a small interface
// so the pipeline and tests can swap in fakes.
package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"ytscout/internal/errs"
)

// ChatCompleter is the completion surface the rest of the code depends on.
type ChatCompleter interface {
	Complete(ctx context.Context, model, prompt string, opts ...Option) (string, error)
}

// Option adjusts a single completion call.
type Option func(*callSettings)

type callSettings struct {
	temperature *float64
	maxTokens   *int64
	system      string
}

// WithTemperature sets the sampling temperature for one call.
func WithTemperature(t float64) Option {
	return func(s *callSettings) { s.temperature = &t }
}

// WithMaxTokens caps the completion length for one call.
func WithMaxTokens(n int64) Option {
	return func(s *callSettings) { s.maxTokens = &n }
}

// WithSystem prepends a system message.
func WithSystem(instruction string) Option {
	return func(s *callSettings) { s.system = instruction }
}

// OpenAIClient implements ChatCompleter against the official SDK.
type OpenAIClient struct {
	client openai.Client
}

// NewOpenAIClient creates a client authenticated with apiKey.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{client: openai.NewClient(option.WithAPIKey(apiKey))}
}

// Complete sends a single chat completion request.
func (c *OpenAIClient) Complete(ctx context.Context, model, prompt string, opts ...Option) (string, error) {
	var settings callSettings
	for _, opt := range opts {
		opt(&settings)
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if settings.system != "" {
		messages = append(messages, openai.SystemMessage(settings.system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if settings.temperature != nil {
		params.Temperature = openai.Float(*settings.temperature)
	}
	if settings.maxTokens != nil {
		params.MaxTokens = openai.Int(*settings.maxTokens)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return resp.Choices[0].Message.Content, nil
}

const rewriteInstruction = `Rewrite the following topic into a concise YouTube search query.
Return only the query text, on a single line, with no quotes and no explanation.

Topic: %s`

// AI runs completions with the configured model and timeout. The underlying
// client is created lazily so commands that never reach the LLM do not need
// an API key.
type AI struct {
	client     ChatCompleter
	model      string
	timeout    time.Duration
	apiKey     string
	clientOnce sync.Once
	clientErr  error
}

// New creates an AI with lazy client initialization from apiKey.
func New(apiKey, model string, timeout time.Duration) *AI {
	return &AI{apiKey: apiKey, model: model, timeout: timeout}
}

// NewWithClient creates an AI using an existing client, for tests.
func NewWithClient(client ChatCompleter, model string, timeout time.Duration) *AI {
	return &AI{client: client, model: model, timeout: timeout}
}

// ensureClient initializes the client exactly once. All reads of ai.client
// go through the Once so concurrent Complete calls are safe.
func (ai *AI) ensureClient() error {
	ai.clientOnce.Do(func() {
		if ai.client != nil {
			return
		}
		if ai.apiKey == "" {
			ai.clientErr = errs.Wrap(errs.ErrConfiguration, "llm", "client",
				"OpenAI API key not set; set openai_api_key in config or OPENAI_API_KEY", nil)
			return
		}
		ai.client = NewOpenAIClient(ai.apiKey)
	})
	return ai.clientErr
}

// Complete sends prompt to the configured model under the configured timeout.
func (ai *AI) Complete(ctx context.Context, prompt string, opts ...Option) (string, error) {
	if err := ai.ensureClient(); err != nil {
		return "", err
	}
	if ai.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ai.timeout)
		defer cancel()
	}
	content, err := ai.client.Complete(ctx, ai.model, prompt, opts...)
	if err != nil {
		return "", errs.Wrap(errs.ErrLLM, "llm", "completion", "", err)
	}
	return StripFences(content), nil
}

// Rewrite converts a conversational topic into a search-optimized query.
// Any failure or implausible output falls back to the unmodified input, so
// a broken LLM never blocks a run.
func (ai *AI) Rewrite(ctx context.Context, query string) string {
	raw, err := ai.Complete(ctx, fmt.Sprintf(rewriteInstruction, query),
		WithTemperature(0.3), WithMaxTokens(100))
	if err != nil {
		return query
	}
	rewritten := strings.TrimSpace(raw)
	rewritten = strings.Trim(rewritten, `"`)
	if rewritten == "" || len(rewritten) > 200 || strings.Contains(rewritten, "\n") {
		return query
	}
	return rewritten
}

// StripFences removes markdown code fences around LLM output.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```markdown")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
