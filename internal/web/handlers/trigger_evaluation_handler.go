package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"VideoQA-eval/internal/models"
)

// EvaluationRunner 以設定檔參數執行一次評測
type EvaluationRunner interface {
	Run() error
}

// TriggerEvaluationHandler 手動觸發評測，在背景執行
type TriggerEvaluationHandler struct {
	runner       EvaluationRunner
	mu           sync.Mutex
	isEvaluating bool
	done         func() // 測試用，背景評測結束後呼叫
}

func NewTriggerEvaluationHandler(runner EvaluationRunner) *TriggerEvaluationHandler {
	if runner == nil {
		log.Panicln("TriggerEvaluationHandler：EvaluationRunner 不得為空")
	}
	return &TriggerEvaluationHandler{runner: runner}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// ServeHTTP 實現 http.Handler 介面
func (h *TriggerEvaluationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log.Printf("資訊：[TriggerEvaluationHandler] 收到請求: %s %s 來自 %s\n", r.Method, r.URL.Path, r.RemoteAddr)

	if r.Method != http.MethodPost {
		log.Printf("警告：[TriggerEvaluationHandler] 收到非 POST 請求 (%s)，已拒絕。\n", r.Method)
		http.Error(w, "僅支援 POST 方法", http.StatusMethodNotAllowed)
		return
	}

	h.mu.Lock()
	if h.isEvaluating {
		h.mu.Unlock()
		log.Println("警告：[TriggerEvaluationHandler] 手動評測已在進行中，拒絕新的觸發。")
		writeJSON(w, http.StatusConflict, map[string]string{"error": "評測任務已在進行中，請稍候。"})
		return
	}
	h.isEvaluating = true
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			h.isEvaluating = false
			h.mu.Unlock()
			if h.done != nil {
				h.done()
			}
		}()

		log.Println("資訊：[TriggerEvaluationHandler] 開始執行手動觸發的評測...")
		err := h.runner.Run()
		switch {
		case err == nil:
			log.Println("資訊：[TriggerEvaluationHandler] 手動觸發的評測執行成功。")
		case errors.Is(err, models.ErrEvaluationInProgress):
			log.Println("警告：[TriggerEvaluationHandler] 排程中的評測尚未結束，本次手動觸發未執行。")
		default:
			log.Printf("錯誤：[TriggerEvaluationHandler] 手動觸發的評測執行失敗: %v", err)
		}
	}()

	writeJSON(w, http.StatusOK, map[string]string{"message": "評測已觸發，正在背景執行。請稍後查看結果。"})
}
