package handlers

import (
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"VideoQA-eval/internal/models"
)

//go:embed templates/dashboard.html
var dashboardTemplate string

// ReportSource 提供最近一次評測的報告與摘要
type ReportSource interface {
	Latest() (*models.AggregateReport, *models.RunSummary)
}

// RunLister 列出歸檔的歷次評測；未啟用資料庫時為 nil
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error)
}

// DashboardPageData 用於傳遞給 HTML 範本的數據
type DashboardPageData struct {
	Summary        *models.RunSummary
	HasReport      bool
	TotalQuestions int
	CorrectCount   int
	Accuracy       float64
	Videos         []VideoDisplayData
	Runs           []models.RunSummary
	Static         bool // 靜態匯出時不顯示操作按鈕
}

// VideoDisplayData 單一影片的顯示資料
type VideoDisplayData struct {
	VideoPath string
	Correct   int
	Total     int
	Questions []QuestionDisplayData
}

// OptionDisplay 依 A-D 順序排列的選項
type OptionDisplay struct {
	Letter string
	Text   string
}

// QuestionDisplayData 單題的顯示資料
type QuestionDisplayData struct {
	Question      string
	Options       []OptionDisplay
	CorrectAnswer string
	ModelOutput   models.Verdict
	Result        models.GradeResult
	Correct       bool
}

// ParseDashboardTemplate 解析內嵌的儀表板範本
func ParseDashboardTemplate() (*template.Template, error) {
	tpl, err := template.New("dashboard").Parse(dashboardTemplate)
	if err != nil {
		return nil, fmt.Errorf("無法解析儀表板範本: %w", err)
	}
	return tpl, nil
}

// BuildDashboardPageData 將報告轉成範本使用的顯示資料；report 可為 nil
func BuildDashboardPageData(report *models.AggregateReport, summary *models.RunSummary, runs []models.RunSummary) DashboardPageData {
	data := DashboardPageData{Summary: summary, Runs: runs}
	if report == nil {
		return data
	}
	data.HasReport = true
	data.TotalQuestions = report.TotalQuestions
	data.CorrectCount = report.CorrectCount
	data.Accuracy = report.Accuracy

	for _, v := range report.Videos {
		display := VideoDisplayData{VideoPath: v.VideoPath, Total: len(v.Questions)}
		for _, q := range v.Questions {
			var options []OptionDisplay
			for _, letter := range models.OptionLetters {
				if text, ok := q.Options[string(letter)]; ok {
					options = append(options, OptionDisplay{Letter: string(letter), Text: text})
				}
			}
			correct := q.Result == models.ResultCorrect
			if correct {
				display.Correct++
			}
			display.Questions = append(display.Questions, QuestionDisplayData{
				Question:      q.Question,
				Options:       options,
				CorrectAnswer: q.CorrectAnswer.Raw,
				ModelOutput:   q.ModelOutput,
				Result:        q.Result,
				Correct:       correct,
			})
		}
		data.Videos = append(data.Videos, display)
	}
	return data
}

// DashboardHandler 負責處理儀表板頁面的請求
type DashboardHandler struct {
	source ReportSource
	runs   RunLister
	tpl    *template.Template
}

// NewDashboardHandler 建立一個 DashboardHandler 實例；runs 可為 nil
func NewDashboardHandler(source ReportSource, runs RunLister) (*DashboardHandler, error) {
	if source == nil {
		return nil, fmt.Errorf("ReportSource 不得為 nil")
	}
	tpl, err := ParseDashboardTemplate()
	if err != nil {
		return nil, err
	}
	return &DashboardHandler{source: source, runs: runs, tpl: tpl}, nil
}

// ServeHTTP 實現 http.Handler 介面
func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log.Printf("資訊：收到 %s %s 請求\n", r.Method, r.URL.Path)
	report, summary := h.source.Latest()

	var runs []models.RunSummary
	if h.runs != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		var err error
		runs, err = h.runs.ListRuns(ctx, 20)
		if err != nil {
			// 歷次記錄讀不到時仍顯示最近一次結果
			log.Printf("警告：從資料庫讀取歷次評測失敗: %v", err)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tpl.Execute(w, BuildDashboardPageData(report, summary, runs)); err != nil {
		log.Printf("錯誤：執行儀表板範本失敗: %v", err)
		http.Error(w, "無法顯示儀表板", http.StatusInternalServerError)
	}
}
