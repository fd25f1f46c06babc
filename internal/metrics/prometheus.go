package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videoqa_frames_sampled_total",
		Help: "Total number of frames written by the sampler",
	})

	VideosSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videoqa_videos_skipped_total",
		Help: "Videos that contributed nothing to the report, by reason",
	}, []string{"reason"})

	QuestionsGradedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videoqa_questions_graded_total",
		Help: "Graded questions, by result",
	}, []string{"result"})

	QuestionsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videoqa_questions_skipped_total",
		Help: "Questions skipped because a required field was missing",
	})

	VerdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videoqa_verdicts_total",
		Help: "Extracted verdicts, by letter",
	}, []string{"verdict"})

	InferenceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "videoqa_inference_duration_seconds",
		Help:    "Duration of a single model call",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	LastRunAccuracy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "videoqa_last_run_accuracy_percent",
		Help: "Accuracy of the most recent evaluation run",
	})
)
