package handlers

import (
	"encoding/json"
	"log"
	"net/http"
)

// ReportHandler 以 JSON 回傳最近一次的評測報告
type ReportHandler struct {
	source ReportSource
}

func NewReportHandler(source ReportSource) *ReportHandler {
	if source == nil {
		log.Panicln("ReportHandler：ReportSource 不得為空")
	}
	return &ReportHandler{source: source}
}

func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "僅支援 GET 方法", http.StatusMethodNotAllowed)
		return
	}
	report, _ := h.source.Latest()
	if report == nil {
		http.Error(w, "尚未有評測結果", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(report); err != nil {
		log.Printf("錯誤：[ReportHandler] 輸出報告失敗: %v", err)
	}
}
