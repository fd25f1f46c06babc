package handlers

import (
	"log"
	"net/http"
	"strings"
)

// FrameResolver 將相對於影格根目錄的路徑轉成實際檔案路徑
type FrameResolver interface {
	GetFrameAbsolutePath(relativePath string) (string, error)
}

// FrameHandler 提供取樣後的影格圖片，URL 形式為 /frames/{相對路徑}
type FrameHandler struct {
	frames FrameResolver
}

func NewFrameHandler(frames FrameResolver) *FrameHandler {
	if frames == nil {
		log.Panicln("FrameHandler：FrameResolver 不得為空")
	}
	return &FrameHandler{frames: frames}
}

// ServeHTTP 預期已經過 http.StripPrefix("/frames/")
func (h *FrameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	relativePath := strings.TrimPrefix(r.URL.Path, "/")
	if relativePath == "" || strings.HasSuffix(relativePath, "/") {
		http.Error(w, "無效的影格路徑", http.StatusBadRequest)
		return
	}
	fullPath, err := h.frames.GetFrameAbsolutePath(relativePath)
	if err != nil {
		log.Printf("警告：[FrameHandler] 找不到影格 '%s': %v", relativePath, err)
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, fullPath)
}
