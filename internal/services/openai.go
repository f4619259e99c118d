package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/jwebster45206/turnkeeper/pkg/chat"
)

// OpenAIService implements LLMService for OpenAI and any server speaking the
// same chat completions API (Ollama, Venice, vLLM) through baseURL.
type OpenAIService struct {
	client           oai.Client
	modelName        string
	backendModelName string
	logger           *slog.Logger
}

func NewOpenAIService(apiKey, baseURL, modelName, backendModelName string, logger *slog.Logger) *OpenAIService {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIService{
		client:           oai.NewClient(opts...),
		modelName:        modelName,
		backendModelName: backendModelName,
		logger:           logger,
	}
}

func (o *OpenAIService) Chat(ctx context.Context, req *chat.ChatRequest) (*chat.ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	model := pickModel(req, o.modelName, o.backendModelName)

	params := oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: toOpenAIMessages(req.Messages),
	}
	if req.Temperature != nil {
		params.Temperature = param.NewOpt(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxTokens))
	}
	if req.JSON {
		params.ResponseFormat = oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: empty choices in response")
	}

	o.logger.Debug("openai response",
		"model", model,
		"finish_reason", resp.Choices[0].FinishReason,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return &chat.ChatResponse{Message: resp.Choices[0].Message.Content, Model: model}, nil
}

func (o *OpenAIService) Close() error {
	return nil
}

func toOpenAIMessages(messages []chat.ChatMessage) []oai.ChatCompletionMessageParamUnion {
	out := make([]oai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case chat.ChatRoleSystem:
			out = append(out, oai.SystemMessage(m.Content))
		case chat.ChatRoleAgent:
			out = append(out, oai.AssistantMessage(m.Content))
		default:
			out = append(out, oai.UserMessage(m.Content))
		}
	}
	return out
}
