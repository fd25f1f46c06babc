package media

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"

	"golang.org/x/image/draw"
)

// FitWithin 以 min(maxW/w, maxH/h) 等比例縮放，讓影格落在 maxW x maxH 框內；比例大於 1 時維持原尺寸。
// 受限的那一邊直接取框的邊長，另一邊以整數運算向下取整。
func FitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 {
		return width, height
	}
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}
	var newWidth, newHeight int
	if maxWidth*height <= maxHeight*width {
		newWidth, newHeight = maxWidth, height*maxWidth/width
	} else {
		newWidth, newHeight = width*maxHeight/height, maxHeight
	}
	return max(newWidth, 1), max(newHeight, 1)
}

// ResizeToFit 縮小影格以符合框的大小
func ResizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	b := src.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), maxWidth, maxHeight)
	if w == b.Dx() && h == b.Dy() {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// WriteJPEG 以指定品質寫出 JPEG 檔
func WriteJPEG(path string, img image.Image, quality int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("建立影格檔案 '%s' 失敗: %w", path, err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
		f.Close()
		return fmt.Errorf("編碼影格 '%s' 失敗: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("關閉影格檔案 '%s' 失敗: %w", path, err)
	}
	return nil
}
