package nas

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"VideoQA-eval/internal/models"
)

// FileSystemStorage 負責資料集讀取、報告寫出以及影格目錄的存取
type FileSystemStorage struct {
	frameRoot string // 影格輸出根目錄 (絕對路徑)
}

// NewFileSystemStorage 建立 FileSystemStorage，影格根目錄不存在時會建立
func NewFileSystemStorage(frameRoot string) (*FileSystemStorage, error) {
	if frameRoot == "" {
		return nil, fmt.Errorf("影格輸出目錄不得為空")
	}
	absRoot, err := filepath.Abs(frameRoot)
	if err != nil {
		return nil, fmt.Errorf("無法取得影格輸出目錄的絕對路徑 '%s': %w", frameRoot, err)
	}
	if _, err := os.Stat(absRoot); os.IsNotExist(err) {
		log.Printf("資訊：影格輸出目錄 '%s' 不存在，正在嘗試建立...", absRoot)
		if err := os.MkdirAll(absRoot, 0o755); err != nil {
			return nil, fmt.Errorf("無法建立影格輸出目錄 '%s': %w", absRoot, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("檢查影格輸出目錄 '%s' 時發生錯誤: %w", absRoot, err)
	}
	log.Printf("資訊：FileSystemStorage 初始化成功，影格根目錄: %s", absRoot)
	return &FileSystemStorage{frameRoot: absRoot}, nil
}

// ReadDataset 讀取並解析資料集 JSON 陣列；失敗時回傳包裝 ErrDatasetUnreadable 的錯誤
func (fs *FileSystemStorage) ReadDataset(path string) ([]models.DatasetEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: 無法讀取 '%s': %v", models.ErrDatasetUnreadable, path, err)
	}
	var rawEntries []json.RawMessage
	if err := json.Unmarshal(data, &rawEntries); err != nil {
		return nil, fmt.Errorf("%w: 無法解析 '%s': %v", models.ErrDatasetUnreadable, path, err)
	}

	// 單筆影片或題目格式錯誤只跳過該筆，不影響其餘資料
	entries := make([]models.DatasetEntry, 0, len(rawEntries))
	for i, raw := range rawEntries {
		entry, ok := decodeEntry(path, i, raw)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	log.Printf("資訊：資料集 '%s' 讀取成功，共 %d 部影片。", path, len(entries))
	return entries, nil
}

// decodeEntry 解析單一影片項目，無法解析的題目會被略過
func decodeEntry(path string, index int, raw json.RawMessage) (models.DatasetEntry, bool) {
	var shell struct {
		VideoPath string            `json:"video_path"`
		Questions []json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal(raw, &shell); err != nil {
		log.Printf("警告：資料集 '%s' 第 %d 筆格式錯誤，跳過: %v", path, index, err)
		return models.DatasetEntry{}, false
	}

	entry := models.DatasetEntry{VideoPath: shell.VideoPath}
	for qi, rawQuestion := range shell.Questions {
		var q models.QuestionSpec
		if err := json.Unmarshal(rawQuestion, &q); err != nil {
			log.Printf("警告：資料集 '%s' 第 %d 筆第 %d 題格式錯誤，跳過: %v", path, index, qi, err)
			continue
		}
		entry.Questions = append(entry.Questions, q)
	}
	return entry, true
}

// VideoExists 檢查影片路徑是否為存在的一般檔案
func (fs *FileSystemStorage) VideoExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// encodeReport 以 4 個空白縮排輸出，非 ASCII 字元與 HTML 字元保持原樣
func encodeReport(report *models.AggregateReport) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(report); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteReport 將報告寫入 path，必要時建立上層目錄；已存在的檔案會被覆寫
func (fs *FileSystemStorage) WriteReport(path string, report *models.AggregateReport) error {
	if report == nil {
		return fmt.Errorf("%w: 報告不得為空", models.ErrReportWrite)
	}
	data, err := encodeReport(report)
	if err != nil {
		return fmt.Errorf("%w: 序列化失敗: %v", models.ErrReportWrite, err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: 無法建立目錄 '%s': %v", models.ErrReportWrite, dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: 無法寫入 '%s': %v", models.ErrReportWrite, path, err)
	}
	return nil
}

// ReadReport 讀回先前寫出的報告 (靜態頁面產生器使用)
func (fs *FileSystemStorage) ReadReport(path string) (*models.AggregateReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("無法讀取報告 '%s': %w", path, err)
	}
	var report models.AggregateReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("無法解析報告 '%s': %w", path, err)
	}
	if report.Videos == nil {
		report.Videos = []models.VideoResult{}
	}
	return &report, nil
}

// GetFrameAbsolutePath 將相對於影格根目錄的路徑轉成絕對路徑，拒絕跳出根目錄的路徑
func (fs *FileSystemStorage) GetFrameAbsolutePath(relativePath string) (string, error) {
	if relativePath == "" {
		return "", fmt.Errorf("影格路徑不得為空")
	}
	absPath := filepath.Join(fs.frameRoot, filepath.FromSlash(relativePath))
	rel, err := filepath.Rel(fs.frameRoot, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("影格路徑 '%s' 超出影格根目錄", relativePath)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("影格檔案 '%s' 不存在: %w", absPath, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("影格路徑 '%s' 是目錄", relativePath)
	}
	return absPath, nil
}

// FrameRoot 影格根目錄的絕對路徑
func (fs *FileSystemStorage) FrameRoot() string {
	return fs.frameRoot
}
