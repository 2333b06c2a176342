package translator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fekuna/spaceflow-wms-service/internal/intent"
	"github.com/fekuna/spaceflow-wms-service/internal/logger"
	"github.com/fekuna/spaceflow-wms-service/internal/model"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const DefaultTimeout = 15 * time.Second

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float32
}

// OpenAITranslator asks an OpenAI-compatible chat completion endpoint for a
// response that follows intent.Schema.
type OpenAITranslator struct {
	client *openai.Client
	cfg    Config
	logger logger.ZapLogger
}

func NewOpenAITranslator(cfg Config, log logger.ZapLogger) *OpenAITranslator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	return &OpenAITranslator{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: log,
	}
}

func (t *OpenAITranslator) Translate(ctx context.Context, prompt string) (*model.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       t.cfg.Model,
		Temperature: t.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: intent.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   intent.SchemaName,
				Schema: intent.Schema,
				Strict: true,
			},
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, intent.Errorf(intent.ReasonInternal, "translator timed out after %s", t.cfg.Timeout)
		}
		return nil, intent.Errorf(intent.ReasonInternal, "translator request: %v", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, intent.Errorf(intent.ReasonNoContent, "translator returned no content")
	}

	t.logger.Debug("Translator answered",
		zap.String("model", resp.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return intent.Decode([]byte(resp.Choices[0].Message.Content))
}
