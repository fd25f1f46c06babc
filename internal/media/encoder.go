package media

import (
	"encoding/base64"
	"fmt"
	"log"
	"os"

	"VideoQA-eval/internal/models"
)

const jpegDataURLPrefix = "data:image/jpeg;base64,"

// EncodeDataURL 讀取影格檔並轉成 data URL，可直接嵌入請求內容
func EncodeDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", models.ErrFrameUnreadable, path, err)
	}
	return jpegDataURLPrefix + base64.StdEncoding.EncodeToString(data), nil
}

// Encoder 將影格檔轉成內嵌表示；任何失敗都回傳空字串
type Encoder struct{}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) Encode(path string) string {
	encoded, err := EncodeDataURL(path)
	if err != nil {
		log.Printf("警告：[FrameEncoder] 影格無法編碼，略過: %v\n", err)
		return ""
	}
	return encoded
}
