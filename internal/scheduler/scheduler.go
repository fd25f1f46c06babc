package scheduler

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler 以 cron 表達式 (含秒欄位) 重複執行評測
type Scheduler struct {
	cron        *cron.Cron
	evaluateJob *EvaluateJob
	stopTimeout time.Duration
}

// NewScheduler 註冊評測任務；cron 表達式無效時回傳錯誤
func NewScheduler(runner EvaluationRunner, evaluateCronSpec string) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("Scheduler：EvaluationRunner 不得為空")
	}
	if evaluateCronSpec == "" {
		return nil, fmt.Errorf("Scheduler：未提供評測任務的 Cron 表達式")
	}
	c := cron.New(cron.WithSeconds())
	evaluateJob := NewEvaluateJob(runner)
	if _, err := c.AddJob(evaluateCronSpec, evaluateJob); err != nil {
		return nil, fmt.Errorf("無法新增評測任務到排程器 (spec: %s): %w", evaluateCronSpec, err)
	}
	log.Printf("資訊：評測任務已註冊，排程：%s\n", evaluateCronSpec)
	return &Scheduler{
		cron:        c,
		evaluateJob: evaluateJob,
		stopTimeout: 10 * time.Second,
	}, nil
}

// Start 非阻塞啟動
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("資訊：排程器已啟動。")
}

// NextRun 下一次排定的執行時間
func (s *Scheduler) NextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop 等待執行中的評測結束，最多等 stopTimeout
func (s *Scheduler) Stop() {
	log.Println("資訊：正在停止排程器...")
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
		log.Println("資訊：排程器已優雅停止，所有運行中任務已完成。")
	case <-time.After(s.stopTimeout):
		log.Println("警告：排程器停止超時，可能仍有評測在執行。")
	}
}
