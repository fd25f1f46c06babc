package handlers

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"time"

	"VideoQA-eval/internal/models"
)

// ExportHandler 將最近一次的逐題結果匯出為 CSV
type ExportHandler struct {
	source ReportSource
}

// NewExportHandler 建立一個 ExportHandler 實例
func NewExportHandler(source ReportSource) *ExportHandler {
	if source == nil {
		log.Panicln("ExportHandler：ReportSource 不得為空")
	}
	return &ExportHandler{source: source}
}

var exportHeaders = []string{
	"影片路徑",
	"題目",
	"選項A",
	"選項B",
	"選項C",
	"選項D",
	"正確答案",
	"模型答案",
	"結果",
}

// ServeHTTP 實現 http.Handler 介面
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log.Printf("資訊：[ExportHandler] 收到請求: %s %s 來自 %s\n", r.Method, r.URL.Path, r.RemoteAddr)

	if r.Method != http.MethodGet {
		log.Printf("警告：[ExportHandler] 收到非 GET 請求 (%s)，已拒絕。\n", r.Method)
		http.Error(w, "僅支援 GET 方法", http.StatusMethodNotAllowed)
		return
	}

	report, _ := h.source.Latest()
	if report == nil {
		http.Error(w, "尚未有評測結果可匯出", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=評測結果_%s.csv", time.Now().Format("2006-01-02")))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(exportHeaders); err != nil {
		log.Printf("錯誤：[ExportHandler] 寫入 CSV 標題失敗: %v", err)
		return
	}

	var rows int
	for _, v := range report.Videos {
		for _, q := range v.Questions {
			row := []string{v.VideoPath, q.Question}
			for _, letter := range models.OptionLetters {
				row = append(row, q.Options[string(letter)])
			}
			row = append(row, q.CorrectAnswer.Raw, string(q.ModelOutput), string(q.Result))
			if err := writer.Write(row); err != nil {
				log.Printf("錯誤：[ExportHandler] 寫入 CSV 資料列失敗: %v", err)
				return
			}
			rows++
		}
	}
	log.Printf("資訊：[ExportHandler] 已匯出 %d 筆逐題結果。", rows)
}
