package scheduler

import (
	"errors"
	"log"

	"VideoQA-eval/internal/models"
)

// EvaluationRunner 以設定檔參數執行一次完整評測
type EvaluationRunner interface {
	Run() error
}

// EvaluateJob 是一個排程任務，用於定期重跑評測
type EvaluateJob struct {
	runner EvaluationRunner
}

// NewEvaluateJob 建立一個 EvaluateJob
func NewEvaluateJob(runner EvaluationRunner) *EvaluateJob {
	return &EvaluateJob{runner: runner}
}

// Run 實現 cron.Job 介面 (github.com/robfig/cron/v3)
func (j *EvaluateJob) Run() {
	log.Println("資訊：執行排程任務 - 影片問答評測...")
	err := j.runner.Run()
	switch {
	case err == nil:
		log.Println("資訊：評測排程任務執行完成。")
	case errors.Is(err, models.ErrEvaluationInProgress):
		log.Println("警告：上一次評測尚未結束，略過本次排程。")
	default:
		log.Printf("錯誤：評測排程任務執行失敗: %v", err)
	}
}
