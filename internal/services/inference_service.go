package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"VideoQA-eval/internal/config"
	"VideoQA-eval/internal/metrics"
	"VideoQA-eval/internal/models"
)

const (
	promptPreamble = "These images are frames extracted from a video, representing the content of the video. " +
		"Based on the content of the video, please answer the following question:"
	promptInstruction = "Please provide the letter(s) of the correct option(s)."
)

// BuildQuestionPrompt 組出送給模型的題目文字，缺少的選項以 "Not Provided" 代替
func BuildQuestionPrompt(question string, options map[string]string) string {
	q := models.QuestionSpec{Question: question, Options: options}
	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString("\n")
	b.WriteString(question)
	b.WriteString("\n")
	for _, letter := range models.OptionLetters {
		fmt.Fprintf(&b, "%s: %s\n", letter, q.OptionOrDefault(string(letter)))
	}
	b.WriteString("\n")
	b.WriteString(promptInstruction)
	return b.String()
}

// InferenceService 將影格與題目送給視覺模型並解析出單一字母答案
type InferenceService struct {
	model        VisionModel
	encoder      FrameEncoder
	extractor    VerdictExtractor
	maxImages    int
	timeout      time.Duration
	systemPrompt string
}

// NewInferenceService 建立 InferenceService
func NewInferenceService(cfg config.InferenceConfig, model VisionModel, encoder FrameEncoder, extractor VerdictExtractor) (*InferenceService, error) {
	if model == nil {
		return nil, fmt.Errorf("InferenceService：VisionModel 不得為空")
	}
	if encoder == nil {
		return nil, fmt.Errorf("InferenceService：FrameEncoder 不得為空")
	}
	if extractor == nil {
		return nil, fmt.Errorf("InferenceService：VerdictExtractor 不得為空")
	}
	if cfg.MaxImages <= 0 || cfg.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("InferenceService：推論設定無效 (maxImages=%d, timeout=%d)", cfg.MaxImages, cfg.TimeoutSeconds)
	}
	log.Printf("資訊：[InferenceService] 初始化完成 (每題最多 %d 張影格，逾時 %s)。\n", cfg.MaxImages, cfg.Timeout())
	return &InferenceService{
		model:        model,
		encoder:      encoder,
		extractor:    extractor,
		maxImages:    cfg.MaxImages,
		timeout:      cfg.Timeout(),
		systemPrompt: cfg.SystemPrompt,
	}, nil
}

// encodeFrames 只取前 maxImages 張影格，編碼失敗的影格直接略過
func (s *InferenceService) encodeFrames(framePaths []string) []string {
	if len(framePaths) > s.maxImages {
		framePaths = framePaths[:s.maxImages]
	}
	images := make([]string, 0, len(framePaths))
	for _, path := range framePaths {
		if encoded := s.encoder.Encode(path); encoded != "" {
			images = append(images, encoded)
		}
	}
	return images
}

// InferDetailed 與 Infer 相同，但同時回傳導致 Unknown 的原因。
// 回傳的錯誤可用 errors.Is 對應 ErrNoEncodableFrames、ErrModelCall、ErrEmptyResponse 或 context 逾時。
func (s *InferenceService) InferDetailed(ctx context.Context, framePaths []string, question string, options map[string]string) (models.Verdict, error) {
	images := s.encodeFrames(framePaths)
	if len(images) == 0 {
		return models.VerdictUnknown, fmt.Errorf("%w (共 %d 張影格)", models.ErrNoEncodableFrames, len(framePaths))
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	text, err := s.model.Complete(callCtx, models.ChatRequest{
		SystemPrompt: s.systemPrompt,
		Images:       images,
		Text:         BuildQuestionPrompt(question, options),
	})
	metrics.InferenceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return models.VerdictUnknown, err
	}
	return s.extractor.Extract(text), nil
}

// Infer 回傳 A/B/C/D 之一；任何失敗都退回 Unknown，不會中斷評測
func (s *InferenceService) Infer(ctx context.Context, framePaths []string, question string, options map[string]string) models.Verdict {
	verdict, err := s.InferDetailed(ctx, framePaths, question, options)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNoEncodableFrames):
			log.Printf("警告：[InferenceService] 沒有可用的影格，不呼叫模型: %v\n", err)
		case errors.Is(err, context.DeadlineExceeded):
			log.Printf("警告：[InferenceService] 模型呼叫逾時 (%s): %v\n", s.timeout, err)
		default:
			log.Printf("錯誤：[InferenceService] 模型呼叫失敗: %v\n", err)
		}
	}
	metrics.VerdictsTotal.WithLabelValues(string(verdict)).Inc()
	return verdict
}
