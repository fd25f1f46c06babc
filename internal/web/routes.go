package web

import (
	"log"
	"net/http"

	"VideoQA-eval/internal/web/handlers"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EvaluationService 網頁層需要的評測服務操作
type EvaluationService interface {
	handlers.ReportSource
	handlers.EvaluationRunner
}

// SetupRouter 設定所有 HTTP 路由；runs 與 frames 可為 nil (對應的路由不會註冊)
func SetupRouter(evaluator EvaluationService, runs handlers.RunLister, frames handlers.FrameResolver) (http.Handler, error) {
	mux := http.NewServeMux()

	dashboardHandler, err := handlers.NewDashboardHandler(evaluator, runs)
	if err != nil {
		return nil, err
	}
	mux.Handle("/dashboard", dashboardHandler)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
		log.Printf("警告：未匹配的路由: %s", r.URL.Path)
		http.NotFound(w, r)
	})

	mux.Handle("/report", handlers.NewReportHandler(evaluator))
	mux.Handle("/export", handlers.NewExportHandler(evaluator))
	mux.Handle("/manual-evaluate", handlers.NewTriggerEvaluationHandler(evaluator))
	mux.Handle("/metrics", promhttp.Handler())

	if runs != nil {
		mux.Handle("/runs", handlers.NewRunsHandler(runs))
	}
	if frames != nil {
		mux.Handle("/frames/", http.StripPrefix("/frames/", handlers.NewFrameHandler(frames)))
	}

	log.Println("資訊：HTTP 路由設定完成。")
	return mux, nil
}
