package images

import (
	"context"
	"time"

	"trendsiam/internal/domain"
	"trendsiam/internal/infra/openai"
)

type imageClient interface {
	CreateImage(ctx context.Context, req openai.ImageRequest) (string, error)
}

// OpenAIGenerator реализует domain.ImageGenerator через Images API.
type OpenAIGenerator struct {
	client  imageClient
	model   string
	timeout time.Duration
}

var _ domain.ImageGenerator = (*OpenAIGenerator)(nil)

// NewOpenAIGenerator создаёт провайдер генерации иллюстраций.
func NewOpenAIGenerator(client imageClient, model string, timeout time.Duration) *OpenAIGenerator {
	if model == "" {
		model = "dall-e-3"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIGenerator{client: client, model: model, timeout: timeout}
}

// Generate запрашивает одну иллюстрацию по промпту и возвращает её URL.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.client.CreateImage(ctx, openai.ImageRequest{
		Model:  g.model,
		Prompt: prompt,
		N:      1,
		Size:   "1024x1024",
	})
}
