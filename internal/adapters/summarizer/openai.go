package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"trendsiam/internal/domain"
	openai "trendsiam/internal/infra/openai"
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI реализует Summarizer через OpenAI Chat Completions: краткое резюме
// на тайском и расширенное на английском.
type OpenAI struct {
	client  chatClient
	model   string
	timeout time.Duration
}

var _ domain.Summarizer = (*OpenAI)(nil)

// NewOpenAI создаёт провайдер суммаризации.
func NewOpenAI(client chatClient, model string, timeout time.Duration) *OpenAI {
	if model == "" {
		model = "gpt-4.1-mini"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OpenAI{client: client, model: model, timeout: timeout}
}

type summaryPayload struct {
	Short    string `json:"short"`
	Extended string `json:"extended"`
}

// Summarize строит пару резюме по заголовку и описанию.
func (s *OpenAI) Summarize(ctx context.Context, title, description string) (domain.SummaryPair, error) {
	text := strings.TrimSpace(title + "\n" + description)
	if strings.TrimSpace(title) == "" && strings.TrimSpace(description) == "" {
		return domain.SummaryPair{}, fmt.Errorf("нет текста для суммаризации")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	userPrompt := fmt.Sprintf(`Summarize this trending video based only on the text below.
Return JSON {"short": "...", "extended": "..."} without explanations.
"short": one Thai sentence. "extended": two to three English sentences.
Text:
%s`, clipRunes(text, 2000))

	req := openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0.2,
		MaxTokens:   400,
		Messages: []openai.ChatMessage{
			{
				Role:    openai.RoleSystem,
				Content: "You are a news editor. Keep only facts from the text, never invent details.",
			},
			{
				Role:    openai.RoleUser,
				Content: userPrompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ResponseFormatTypeJSONObject},
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.SummaryPair{}, fmt.Errorf("openai completion: %w", err)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	var parsed summaryPayload
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return domain.SummaryPair{}, fmt.Errorf("распаковка ответа LLM: %w", err)
	}
	pair := domain.SummaryPair{
		Short:    strings.TrimSpace(parsed.Short),
		Extended: strings.TrimSpace(parsed.Extended),
	}
	if pair.Short == "" && pair.Extended == "" {
		return domain.SummaryPair{}, fmt.Errorf("модель вернула пустое резюме")
	}
	return pair, nil
}

func clipRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
