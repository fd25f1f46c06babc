package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"VideoQA-eval/internal/config"
	"VideoQA-eval/internal/models"
)

// HTTPDoer 抽象 HTTP 用戶端，測試時可替換
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client 呼叫 OpenAI 相容的 chat completions 端點
type Client struct {
	apiKey  string
	baseURL string
	model   string
	http    HTTPDoer
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// chatMessage 的 Content 可以是字串或 contentPart 陣列
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewHTTPClient 建立單一連線的 HTTP 用戶端；模型端點一次只允許一個請求
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxConnsPerHost:       1,
			MaxIdleConnsPerHost:   1,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 60 * time.Second,
		},
	}
}

// NewClient 建立 chat completions 用戶端
func NewClient(cfg config.OpenAIClientConfig, model string, httpClient HTTPDoer) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("模型名稱不得為空")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("OpenAI 相容端點的 baseURL 不得為空")
	}
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	log.Printf("資訊：[OpenAI Client] 模型 '%s' 初始化成功，端點: %s\n", model, baseURL)
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		http:    httpClient,
	}, nil
}

func buildMessages(req models.ChatRequest) []chatMessage {
	parts := make([]contentPart, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: img}})
	}
	parts = append(parts, contentPart{Type: "text", Text: req.Text})
	return []chatMessage{
		{Role: "system", Content: req.SystemPrompt},
		{Role: "user", Content: parts},
	}
}

// Complete 送出一次請求並回傳模型的文字回應 (已去除前後空白)；不重試
func (c *Client) Complete(ctx context.Context, req models.ChatRequest) (string, error) {
	payload, err := json.Marshal(chatRequest{Model: c.model, Messages: buildMessages(req)})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", models.ErrModelCall, err)
	}

	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", models.ErrModelCall, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrModelCall, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %d: %s", models.ErrModelCall, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", models.ErrModelCall, err)
	}
	if len(decoded.Choices) == 0 || decoded.Choices[0].Message.Content == nil {
		return "", models.ErrEmptyResponse
	}
	return strings.TrimSpace(*decoded.Choices[0].Message.Content), nil
}
