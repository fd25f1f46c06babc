package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"VideoQA-eval/internal/config"
	"VideoQA-eval/internal/models"
)

// contentGenerator 為 *genai.GenerativeModel 的最小介面，方便測試替換
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Client 以 Gemini 作為影片問答的視覺模型
type Client struct {
	sdk       *genai.Client
	model     contentGenerator
	modelName string
}

// NewClient 建立一個 Gemini 客戶端實例
func NewClient(ctx context.Context, cfg config.GeminiClientConfig, inference config.InferenceConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API Key 不得為空")
	}
	modelName := inference.Model
	if modelName == "" {
		modelName = "gemini-1.5-flash-latest"
		log.Printf("警告：[Gemini Client] 未提供模型名稱，使用預設值: %s\n", modelName)
	}

	sdk, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("無法建立 Gemini GenAI SDK 客戶端: %w", err)
	}
	model := sdk.GenerativeModel(modelName)
	if inference.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(inference.SystemPrompt)}}
	}
	log.Printf("資訊：[Gemini Client] 模型 '%s' 初始化成功。\n", modelName)
	return &Client{sdk: sdk, model: model, modelName: modelName}, nil
}

// Close 關閉底層 SDK 連線
func (c *Client) Close() error {
	if c.sdk == nil {
		return nil
	}
	return c.sdk.Close()
}

// parseDataURL 將 "data:image/jpeg;base64,..." 還原成 MIME 類型與位元組
func parseDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, fmt.Errorf("不是 data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data URL 缺少資料段")
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("僅支援 base64 編碼的 data URL")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("base64 解碼失敗: %w", err)
	}
	return mimeType, data, nil
}

// responseText 取出第一個候選回應的文字內容
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: nil response or no candidates", models.ErrEmptyResponse)
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		if candidate.FinishReason != genai.FinishReasonStop && candidate.FinishReason != genai.FinishReasonUnspecified {
			for _, rating := range candidate.SafetyRatings {
				log.Printf("警告：[Gemini Client] 安全評級 - Category: %s, Probability: %s\n", rating.Category, rating.Probability)
			}
			return "", fmt.Errorf("%w: 內容被阻止，原因: %s", models.ErrEmptyResponse, candidate.FinishReason.String())
		}
		return "", fmt.Errorf("%w: no content parts", models.ErrEmptyResponse)
	}
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		} else {
			log.Printf("警告：[Gemini Client] 收到非預期的 Part 類型: %T\n", part)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// Complete 將影格與題目送往 Gemini 並回傳文字回應；系統提示已在建立模型時設定
func (c *Client) Complete(ctx context.Context, req models.ChatRequest) (string, error) {
	parts := make([]genai.Part, 0, len(req.Images)+1)
	for i, img := range req.Images {
		mimeType, data, err := parseDataURL(img)
		if err != nil {
			log.Printf("警告：[Gemini Client] 第 %d 張影格無法轉換，略過: %v\n", i, err)
			continue
		}
		parts = append(parts, genai.Blob{MIMEType: mimeType, Data: data})
	}
	parts = append(parts, genai.Text(req.Text))

	resp, err := c.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("%w: Gemini GenerateContent 失敗: %v", models.ErrModelCall, err)
	}
	return responseText(resp)
}
