package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"VideoQA-eval/internal/config"
	"VideoQA-eval/internal/models"
)

// Sampler 將任意長度的影片轉成有上限的縮圖影格序列
type Sampler struct {
	decoder   FrameDecoder
	timeout   time.Duration
	maxWidth  int
	maxHeight int
	quality   int
	now       func() time.Time
}

// NewSampler 建立 Sampler
func NewSampler(decoder FrameDecoder, cfg config.SamplerConfig) (*Sampler, error) {
	if decoder == nil {
		return nil, fmt.Errorf("Sampler：FrameDecoder 不得為空")
	}
	if cfg.TimeoutSeconds <= 0 || cfg.MaxWidth <= 0 || cfg.MaxHeight <= 0 {
		return nil, fmt.Errorf("Sampler：取樣設定無效 (timeout=%d, box=%dx%d)", cfg.TimeoutSeconds, cfg.MaxWidth, cfg.MaxHeight)
	}
	return &Sampler{
		decoder:   decoder,
		timeout:   cfg.Timeout(),
		maxWidth:  cfg.MaxWidth,
		maxHeight: cfg.MaxHeight,
		quality:   cfg.JPEGQuality,
		now:       time.Now,
	}, nil
}

// SampleInterval 計算取樣間隔 floor(nativeFPS/targetFPS)，最小為 1
func SampleInterval(nativeFPS, targetFPS float64) int {
	if targetFPS <= 0 {
		return 1
	}
	ratio := nativeFPS / targetFPS
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio < 1 {
		return 1
	}
	return int(ratio)
}

// FramePath 影格檔案路徑，index 為原始影格計數 (非取樣序號)
func FramePath(outputDir string, index int) string {
	return filepath.Join(outputDir, fmt.Sprintf("frame_%d.jpg", index))
}

// Sample 依目標頻率取樣影格並寫入 outputDir，回傳依序排列的影格路徑。
// 影片無法開啟回傳 ErrVideoUnopenable，幀率為 0 回傳 ErrZeroFrameRate；
// 超過時間上限時回傳已取得的部分影格，不視為錯誤。
func (s *Sampler) Sample(ctx context.Context, videoPath, outputDir string, targetFPS float64, maxFrames int) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("無法建立影格輸出目錄 '%s': %w", outputDir, err)
	}
	start := s.now()

	// 解碼器透過 context 期限中止；迴圈內另外檢查經過時間
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reader, err := s.decoder.Open(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrVideoUnopenable, videoPath, err)
	}
	defer reader.Close()

	nativeFPS := reader.FrameRate()
	if nativeFPS == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrZeroFrameRate, videoPath)
	}
	interval := SampleInterval(nativeFPS, targetFPS)

	var frames []string
	for index := 0; len(frames) < maxFrames; index++ {
		if s.now().Sub(start) > s.timeout {
			log.Printf("警告：[FrameSampler] 影片 %s 取樣超過 %s，回傳已取得的 %d 張影格。\n", videoPath, s.timeout, len(frames))
			break
		}
		img, err := reader.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("警告：[FrameSampler] 影片 %s 在第 %d 格停止解碼: %v\n", videoPath, index, err)
			}
			break
		}
		if index%interval != 0 {
			continue
		}
		path := FramePath(outputDir, index)
		if err := WriteJPEG(path, ResizeToFit(img, s.maxWidth, s.maxHeight), s.quality); err != nil {
			log.Printf("警告：[FrameSampler] 略過第 %d 格: %v\n", index, err)
			continue
		}
		frames = append(frames, path)
	}
	return frames, nil
}
