package models

// ChatRequest 一次多模態對話請求：系統提示、依序排列的影格 (data URL) 與題目文字
type ChatRequest struct {
	SystemPrompt string
	Images       []string
	Text         string
}
