package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/jwebster45206/turnkeeper/pkg/chat"
)

// GeminiService implements LLMService for Google Gemini.
type GeminiService struct {
	client           *genai.Client
	modelName        string
	backendModelName string
	logger           *slog.Logger
}

func NewGeminiService(ctx context.Context, apiKey, modelName, backendModelName string, logger *slog.Logger) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return &GeminiService{
		client:           client,
		modelName:        modelName,
		backendModelName: backendModelName,
		logger:           logger,
	}, nil
}

func (g *GeminiService) Chat(ctx context.Context, req *chat.ChatRequest) (*chat.ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	name := pickModel(req, g.modelName, g.backendModelName)
	model := g.client.GenerativeModel(name)

	parts := configureGemini(model, req)

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}
	text, err := geminiText(resp)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("gemini response", "model", name, "finish_reason", resp.Candidates[0].FinishReason.String())

	return &chat.ChatResponse{Message: text, Model: name}, nil
}

// configureGemini applies req's options to model and returns the prompt parts.
func configureGemini(model *genai.GenerativeModel, req *chat.ChatRequest) []genai.Part {
	systemPrompt, conversation := chat.SplitSystem(req.Messages)
	if systemPrompt != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))
	}
	if req.Temperature != nil {
		model.SetTemperature(float32(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}

	parts := make([]genai.Part, 0, len(conversation))
	for _, m := range conversation {
		parts = append(parts, genai.Text(m.Content))
	}
	if len(parts) == 0 {
		parts = append(parts, genai.Text("Begin."))
	}
	return parts
}

// geminiText joins the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: no content returned")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

func (g *GeminiService) Close() error {
	return g.client.Close()
}
