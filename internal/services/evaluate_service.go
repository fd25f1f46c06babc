package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"VideoQA-eval/internal/config"
	"VideoQA-eval/internal/metrics"
	"VideoQA-eval/internal/models"

	"github.com/google/uuid"
)

// EvaluateService 串起資料集讀取、影格取樣、推論、批改與報告輸出
type EvaluateService struct {
	cfg        *config.Config
	storage    DatasetStorage
	sampler    FrameSampler
	inferencer AnswerInferencer
	archive    ResultArchive

	running sync.Mutex // 同一時間只允許一次評測

	mu            sync.RWMutex
	latestReport  *models.AggregateReport
	latestSummary *models.RunSummary

	now      func() time.Time
	newRunID func() string
}

// NewEvaluateService 建立 EvaluateService；archive 可為 nil
func NewEvaluateService(
	cfg *config.Config,
	storage DatasetStorage,
	sampler FrameSampler,
	inferencer AnswerInferencer,
	archive ResultArchive,
) (*EvaluateService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("EvaluateService：設定不得為空")
	}
	if storage == nil {
		return nil, fmt.Errorf("EvaluateService：DatasetStorage 不得為空")
	}
	if sampler == nil {
		return nil, fmt.Errorf("EvaluateService：FrameSampler 不得為空")
	}
	if inferencer == nil {
		return nil, fmt.Errorf("EvaluateService：AnswerInferencer 不得為空")
	}
	if archive == nil {
		log.Println("資訊：[EvaluateService] 未設定結果歸檔，評測結果只會寫入報告檔。")
	}
	log.Println("資訊：EvaluateService 初始化完成。")
	return &EvaluateService{
		cfg:        cfg,
		storage:    storage,
		sampler:    sampler,
		inferencer: inferencer,
		archive:    archive,
		now:        time.Now,
		newRunID:   uuid.NewString,
	}, nil
}

// ParamsFromConfig 以設定檔 (含命令列旗標覆寫) 組出評測參數
func (s *EvaluateService) ParamsFromConfig() models.EvaluationParams {
	e := s.cfg.Evaluation
	return models.EvaluationParams{
		DatasetPath:    e.DatasetPath,
		FrameOutputDir: e.FrameOutputDir,
		ReportPath:     e.ReportPath,
		TargetFPS:      e.TargetFPS,
		MaxFrames:      e.MaxFrames,
	}
}

// Run 以設定檔參數執行一次評測，供排程與手動觸發使用
func (s *EvaluateService) Run() error {
	_, err := s.Evaluate(context.Background(), s.ParamsFromConfig())
	return err
}

// Latest 回傳最近一次完成的報告與執行摘要，尚未執行過時皆為 nil
func (s *EvaluateService) Latest() (*models.AggregateReport, *models.RunSummary) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestReport, s.latestSummary
}

func (s *EvaluateService) frameDir(outputDir string, videoIndex int) string {
	if s.cfg.Evaluation.ScopeFramesPerVideo {
		return filepath.Join(outputDir, fmt.Sprintf("video_%d", videoIndex))
	}
	return outputDir
}

// Evaluate 依序處理資料集中的每部影片並產生整體報告。
// 資料集無法讀取時回傳空報告與 ErrDatasetUnreadable，且不寫出報告檔；
// 報告寫入失敗只記錄錯誤，仍回傳計算好的報告。
func (s *EvaluateService) Evaluate(ctx context.Context, params models.EvaluationParams) (*models.AggregateReport, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("評測參數無效: %w", err)
	}
	if !s.running.TryLock() {
		return nil, models.ErrEvaluationInProgress
	}
	defer s.running.Unlock()

	summary := models.RunSummary{
		RunID:     s.newRunID(),
		Params:    params,
		Provider:  s.cfg.Inference.Provider,
		Model:     s.cfg.Inference.Model,
		StartedAt: s.now(),
	}
	log.Printf("資訊：[EvaluateService] 開始評測 (run: %s, 資料集: %s, fps: %v, 每部影片最多 %d 張影格)\n",
		summary.RunID, params.DatasetPath, params.TargetFPS, params.MaxFrames)

	entries, err := s.storage.ReadDataset(params.DatasetPath)
	if err != nil {
		log.Printf("錯誤：[EvaluateService] 讀取資料集失敗: %v\n", err)
		report := models.NewAggregateReport(nil, 0, 0)
		if !errors.Is(err, models.ErrDatasetUnreadable) {
			err = fmt.Errorf("%w: %v", models.ErrDatasetUnreadable, err)
		}
		summary.ErrorMessage = models.NullStringFromError(err)
		s.finish(ctx, summary, report)
		return report, err
	}

	var videos []models.VideoResult
	var total, correct int
	for i, entry := range entries {
		if ctx.Err() != nil {
			log.Printf("警告：[EvaluateService] 評測被中止，已處理 %d/%d 部影片: %v\n", i, len(entries), ctx.Err())
			summary.ErrorMessage = models.NullStringFromError(ctx.Err())
			break
		}
		result, graded, right := s.evaluateVideo(ctx, i, entry, params)
		if graded == 0 {
			continue
		}
		videos = append(videos, result)
		total += graded
		correct += right
	}

	report := models.NewAggregateReport(videos, total, correct)
	if err := s.storage.WriteReport(params.ReportPath, report); err != nil {
		log.Printf("錯誤：[EvaluateService] 報告寫入失敗，結果僅保留在記憶體中: %v\n", err)
	} else {
		log.Printf("資訊：[EvaluateService] 報告已寫入 %s\n", params.ReportPath)
	}

	log.Printf("資訊：[EvaluateService] 評測完成。總題數: %d, 答對: %d, 準確率: %.2f%%\n", report.TotalQuestions, report.CorrectCount, report.Accuracy)
	s.finish(ctx, summary, report)
	return report, nil
}

// evaluateVideo 處理單一影片，回傳結果與批改題數、答對題數；graded 為 0 代表此影片不列入報告
func (s *EvaluateService) evaluateVideo(ctx context.Context, index int, entry models.DatasetEntry, params models.EvaluationParams) (models.VideoResult, int, int) {
	result := models.VideoResult{VideoPath: entry.VideoPath}

	if entry.VideoPath == "" {
		log.Printf("警告：[EvaluateService] 第 %d 筆資料缺少 video_path，跳過。\n", index)
		metrics.VideosSkippedTotal.WithLabelValues("missing_path").Inc()
		return result, 0, 0
	}
	if !s.storage.VideoExists(entry.VideoPath) {
		log.Printf("警告：[EvaluateService] 找不到影片檔 %s，跳過。\n", entry.VideoPath)
		metrics.VideosSkippedTotal.WithLabelValues("not_found").Inc()
		return result, 0, 0
	}

	frames, err := s.sampler.Sample(ctx, entry.VideoPath, s.frameDir(params.FrameOutputDir, index), params.TargetFPS, params.MaxFrames)
	if err != nil {
		log.Printf("警告：[EvaluateService] 影片 %s 取樣失敗: %v\n", entry.VideoPath, err)
		frames = nil
	}
	if len(frames) == 0 {
		log.Printf("警告：[EvaluateService] 影片 %s 沒有取得任何影格，跳過。\n", entry.VideoPath)
		metrics.VideosSkippedTotal.WithLabelValues("no_frames").Inc()
		return result, 0, 0
	}
	metrics.FramesSampledTotal.Add(float64(len(frames)))
	log.Printf("資訊：[EvaluateService] 影片 %s 取得 %d 張影格。\n", entry.VideoPath, len(frames))

	var correct int
	result.Questions = []models.QuestionResult{}
	for qi, q := range entry.Questions {
		if !q.Complete() {
			log.Printf("警告：[EvaluateService] 影片 %s 第 %d 題缺少題目、選項或正確答案，跳過。\n", entry.VideoPath, qi)
			metrics.QuestionsSkippedTotal.Inc()
			continue
		}
		if len(q.CorrectAnswer.Letters) > 1 {
			log.Printf("警告：[EvaluateService] 影片 %s 第 %d 題有多個正確答案 (%s)，依既有規則一律判為錯誤。\n", entry.VideoPath, qi, q.CorrectAnswer.Raw)
		}

		verdict := s.inferencer.Infer(ctx, frames, q.Question, q.Options)
		grade := models.Grade(verdict, q.CorrectAnswer)
		if grade == models.ResultCorrect {
			correct++
		}
		metrics.QuestionsGradedTotal.WithLabelValues(string(grade)).Inc()

		result.Questions = append(result.Questions, models.QuestionResult{
			Question:      q.Question,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			ModelOutput:   verdict,
			Result:        grade,
		})
	}
	if len(result.Questions) == 0 {
		log.Printf("警告：[EvaluateService] 影片 %s 沒有可批改的題目，不列入報告。\n", entry.VideoPath)
		metrics.VideosSkippedTotal.WithLabelValues("no_questions").Inc()
	}
	return result, len(result.Questions), correct
}

// finish 更新最近一次結果、指標與歸檔；歸檔失敗不影響評測結果
func (s *EvaluateService) finish(ctx context.Context, summary models.RunSummary, report *models.AggregateReport) {
	summary.TotalQuestions = report.TotalQuestions
	summary.CorrectCount = report.CorrectCount
	summary.Accuracy = report.Accuracy
	summary.FinishedAt = s.now()

	s.mu.Lock()
	s.latestReport = report
	s.latestSummary = &summary
	s.mu.Unlock()

	metrics.LastRunAccuracy.Set(report.Accuracy)

	if s.archive == nil {
		return
	}
	// 評測本身可能已被取消，歸檔改用獨立的 context
	archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := s.archive.SaveRun(archiveCtx, summary, report); err != nil {
		log.Printf("錯誤：[EvaluateService] 評測結果歸檔失敗 (run: %s): %v\n", summary.RunID, err)
		return
	}
	log.Printf("資訊：[EvaluateService] 評測結果已歸檔 (run: %s)\n", summary.RunID)
}
