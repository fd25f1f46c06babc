package media

import (
	"context"
	"image"
)

// FrameDecoder 開啟影片容器，逐格產生原始影格。
type FrameDecoder interface {
	Open(ctx context.Context, videoPath string) (FrameReader, error)
}

// FrameReader 依序讀取影格。Next 在串流結束時回傳 io.EOF。
type FrameReader interface {
	FrameRate() float64
	Next() (image.Image, error)
	Close() error
}
