package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"VideoQA-eval/internal/models"
)

// RunsHandler 以 JSON 列出資料庫中的歷次評測
type RunsHandler struct {
	runs RunLister
}

func NewRunsHandler(runs RunLister) *RunsHandler {
	if runs == nil {
		log.Panicln("RunsHandler：RunLister 不得為空")
	}
	return &RunsHandler{runs: runs}
}

func (h *RunsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "僅支援 GET 方法", http.StatusMethodNotAllowed)
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			http.Error(w, "limit 必須是 1 到 500 之間的整數", http.StatusBadRequest)
			return
		}
		limit = n
	}
	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		log.Printf("錯誤：[RunsHandler] 查詢歷次評測失敗: %v", err)
		http.Error(w, "無法讀取歷次評測", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []models.RunSummary{}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(runs)
}
