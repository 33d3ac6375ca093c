package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"projecthub/recommender/internal/models"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type ChatUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

type ChatResponse struct {
	ID      string    `json:"id"`
	Model   string    `json:"model"`
	Content string    `json:"content"`
	Usage   ChatUsage `json:"usage"`
	Cost    float64   `json:"cost"`
}

// ChatProvider is one AI backend. The model router picks a provider by the
// catalog entry's Provider field and never talks to backends directly.
type ChatProvider interface {
	Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// openAIProvider speaks the gateway's chat-completions wire format:
// POST {baseURL}/chat/completions with a bearer key.
type openAIProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewOpenAIProvider(baseURL, apiKey string, timeout time.Duration) ChatProvider {
	return &openAIProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatCompletionsResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishIndex int `json:"finishIndex"`
	} `json:"choices"`
	Usage ChatUsage `json:"usage"`
	Cost  float64   `json:"cost"`
}

// Complete implements ChatProvider. A missing API key is a permanent
// configuration error and is reported before any request is made.
func (p *openAIProvider) Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if p.apiKey == "" {
		return nil, models.ErrMissingAPIKey
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat completion returned status %d: %s", resp.StatusCode, string(data))
	}

	var parsed chatCompletionsResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse chat response: %w", err)
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, models.ErrEmptyResponse
	}

	return &ChatResponse{
		ID:      parsed.ID,
		Model:   parsed.Model,
		Content: parsed.Choices[0].Message.Content,
		Usage:   parsed.Usage,
		Cost:    parsed.Cost,
	}, nil
}

// geminiProvider backs catalog entries whose provider is "gemini".
type geminiProvider struct {
	client *genai.Client
}

func NewGeminiProvider(apiKey string) (ChatProvider, error) {
	if apiKey == "" {
		return &geminiProvider{client: nil}, nil
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiProvider{client: client}, nil
}

// Complete implements ChatProvider.
func (g *geminiProvider) Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if g.client == nil {
		return nil, models.ErrMissingAPIKey
	}

	// Gemini takes a single prompt, so the conversation is flattened.
	var prompt strings.Builder
	for _, msg := range req.Messages {
		if prompt.Len() > 0 {
			prompt.WriteString("\n\n")
		}
		prompt.WriteString(msg.Content)
	}

	cfg := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		temp := req.Temperature
		cfg.Temperature = &temp
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := g.client.Models.GenerateContent(ctx, req.Model, genai.Text(prompt.String()), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generation failed: %w", err)
	}
	if resp == nil || resp.Text() == "" {
		return nil, models.ErrEmptyResponse
	}

	usage := ChatUsage{}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &ChatResponse{
		Model:   req.Model,
		Content: resp.Text(),
		Usage:   usage,
	}, nil
}
