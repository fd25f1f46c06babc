package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VideoQA-eval/internal/models"
)

type countingRunner struct {
	calls atomic.Int32
	err   error
}

func (r *countingRunner) Run() error {
	r.calls.Add(1)
	return r.err
}

func TestNewSchedulerValidation(t *testing.T) {
	_, err := NewScheduler(nil, "* * * * * *")
	assert.Error(t, err)
	_, err = NewScheduler(&countingRunner{}, "")
	assert.Error(t, err)
	_, err = NewScheduler(&countingRunner{}, "not a cron spec")
	assert.Error(t, err)
}

func TestSchedulerRunsJob(t *testing.T) {
	runner := &countingRunner{}
	s, err := NewScheduler(runner, "* * * * * *")
	require.NoError(t, err)

	s.Start()
	defer s.Stop()
	// cron 在執行迴圈啟動後才計算下一次時間
	assert.Eventually(t, func() bool { return !s.NextRun().IsZero() }, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return runner.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestEvaluateJobToleratesErrors(t *testing.T) {
	for _, err := range []error{nil, models.ErrEvaluationInProgress, errors.New("boom")} {
		runner := &countingRunner{err: err}
		NewEvaluateJob(runner).Run()
		assert.Equal(t, int32(1), runner.calls.Load())
	}
}
