package services

import (
	"context"

	"VideoQA-eval/internal/models"
)

// VisionModel 可接收影像與文字的聊天模型 (OpenAI 相容端點或 Gemini)
type VisionModel interface {
	Complete(ctx context.Context, req models.ChatRequest) (string, error)
}

// FrameSampler 將影片取樣成有序的影格檔案路徑
type FrameSampler interface {
	Sample(ctx context.Context, videoPath, outputDir string, targetFPS float64, maxFrames int) ([]string, error)
}

// FrameEncoder 將影格檔轉成可內嵌的字串，失敗時回傳空字串
type FrameEncoder interface {
	Encode(path string) string
}

// AnswerInferencer 針對一組影格與一道選擇題產生單一字母答案
type AnswerInferencer interface {
	Infer(ctx context.Context, framePaths []string, question string, options map[string]string) models.Verdict
}

// DatasetStorage 資料集讀取與報告輸出
type DatasetStorage interface {
	ReadDataset(path string) ([]models.DatasetEntry, error)
	VideoExists(path string) bool
	WriteReport(path string, report *models.AggregateReport) error
}

// ResultArchive 評測結果歸檔 (可為 nil，表示不歸檔)
type ResultArchive interface {
	SaveRun(ctx context.Context, summary models.RunSummary, report *models.AggregateReport) error
}
