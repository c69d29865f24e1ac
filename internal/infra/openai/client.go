package openai

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

	"golang.org/x/time/rate"

	"trendsiam/internal/infra/metrics"
)

const defaultBaseURL = "https://api.openai.com/v1"

// ErrorKind классифицирует отказ внешнего API для политики повторов.
type ErrorKind string

const (
	// KindRateLimited — провайдер попросил сбавить темп, можно повторить.
	KindRateLimited ErrorKind = "rate_limited"
	// KindAuth — неверный ключ или нет доступа, повтор бессмыслен.
	KindAuth ErrorKind = "auth"
	// KindContentPolicy — запрос отклонён политикой контента, повтор бессмыслен.
	KindContentPolicy ErrorKind = "content_policy"
	// KindTransient — сетевые сбои и 5xx, можно повторить.
	KindTransient ErrorKind = "transient"
	// KindInvalid — некорректный запрос, повтор бессмыслен.
	KindInvalid ErrorKind = "invalid_request"
)

// APIError — типизированная ошибка внешнего API.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openai: %s (%s)", e.Message, e.Kind)
}

// IsRetryable сообщает, имеет ли смысл повторять запрос.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind == KindRateLimited || apiErr.Kind == KindTransient
	}
	// Сетевые ошибки без типизации считаем временными.
	return true
}

// Client выполняет запросы к Chat Completions и Images API.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	baseURL string
	apiKey  string
}

// NewClient создаёт клиента OpenAI. rps ограничивает темп обращений
// ко всем эндпоинтам провайдера.
func NewClient(apiKey, baseURL string, timeout time.Duration, rps float64) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if rps <= 0 {
		rps = 1
	}
	httpClient := &http.Client{Timeout: timeout + 5*time.Second}
	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// ChatCompletionRequest описывает тело запроса.
type ChatCompletionRequest struct {
	Model          string                        `json:"model"`
	Messages       []ChatMessage                 `json:"messages"`
	Temperature    float64                       `json:"temperature,omitempty"`
	MaxTokens      int                           `json:"max_tokens,omitempty"`
	ResponseFormat *ChatCompletionResponseFormat `json:"response_format,omitempty"`
}

// ChatMessage представляет сообщение в диалоге.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	// RoleSystem системная инструкция.
	RoleSystem = "system"
	// RoleUser сообщение пользователя.
	RoleUser = "user"
)

// ChatCompletionResponseFormat задаёт формат ответа.
type ChatCompletionResponseFormat struct {
	Type string `json:"type"`
}

const (
	// ResponseFormatTypeJSONObject просит вернуть объект JSON.
	ResponseFormatTypeJSONObject = "json_object"
)

// ChatCompletionResponse описывает ответ модели.
type ChatCompletionResponse struct {
	Choices []ChatCompletionChoice `json:"choices"`
}

// ChatCompletionChoice содержит сообщение модели.
type ChatCompletionChoice struct {
	Message ChatMessage `json:"message"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
		Type    string `json:"type"`
	} `json:"error"`
}

// CreateChatCompletion вызывает /chat/completions.
func (c *Client) CreateChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error) {
	var completion ChatCompletionResponse
	if err := c.post(ctx, "/chat/completions", "chat_completions", req.Model, req, &completion); err != nil {
		return ChatCompletionResponse{}, err
	}
	if len(completion.Choices) == 0 {
		return ChatCompletionResponse{}, &APIError{Kind: KindTransient, Message: "пустой ответ модели"}
	}
	return completion, nil
}

// ImageRequest описывает запрос генерации иллюстрации.
type ImageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n,omitempty"`
	Size   string `json:"size,omitempty"`
}

// ImageResponse описывает ответ Images API.
type ImageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// CreateImage вызывает /images/generations и возвращает URL иллюстрации.
func (c *Client) CreateImage(ctx context.Context, req ImageRequest) (string, error) {
	if req.N == 0 {
		req.N = 1
	}
	var resp ImageResponse
	if err := c.post(ctx, "/images/generations", "images_generations", req.Model, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", &APIError{Kind: KindTransient, Message: "пустой ответ генерации изображения"}
	}
	return resp.Data[0].URL, nil
}

func (c *Client) post(ctx context.Context, path, operation, target string, payload, out any) error {
	if c.apiKey == "" {
		return &APIError{Kind: KindAuth, Message: "api key is empty"}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("openai: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.ObserveNetworkRequest("openai", operation, target, start, err)
		return &APIError{Kind: KindTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("openai", operation, target, start, err)
		return &APIError{Kind: KindTransient, Message: err.Error()}
	}
	if resp.StatusCode >= 400 {
		apiErr := classifyStatus(resp.StatusCode, respBody)
		metrics.ObserveNetworkRequest("openai", operation, target, start, apiErr)
		return apiErr
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		metrics.ObserveNetworkRequest("openai", operation, target, start, err)
		return &APIError{Kind: KindTransient, Message: "не удалось распаковать ответ: " + err.Error()}
	}
	metrics.ObserveNetworkRequest("openai", operation, target, start, nil)
	return nil
}

func classifyStatus(status int, body []byte) *APIError {
	message := fmt.Sprintf("unexpected status %d", status)
	var parsed apiErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		message = parsed.Error.Message
		if parsed.Error.Code == "content_policy_violation" || parsed.Error.Type == "invalid_request_error" && strings.Contains(parsed.Error.Message, "content policy") {
			return &APIError{Kind: KindContentPolicy, StatusCode: status, Message: message}
		}
	}
	switch {
	case status == http.StatusTooManyRequests:
		return &APIError{Kind: KindRateLimited, StatusCode: status, Message: message}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &APIError{Kind: KindAuth, StatusCode: status, Message: message}
	case status >= 500:
		return &APIError{Kind: KindTransient, StatusCode: status, Message: message}
	default:
		return &APIError{Kind: KindInvalid, StatusCode: status, Message: message}
	}
}
