package media

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFitWithin(t *testing.T) {
	cases := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"landscape 1080p", 1920, 1080, 533, 300},
		{"wide", 3840, 600, 640, 100},
		{"portrait", 720, 1280, 168, 300},
		{"already small", 320, 200, 320, 200},
		{"exact box", 640, 300, 640, 300},
		{"extreme aspect clamps to one pixel", 100000, 10, 640, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, h := FitWithin(tc.w, tc.h, 640, 300)
			assert.Equal(t, tc.wantW, w)
			assert.Equal(t, tc.wantH, h)
		})
	}
}

func TestResizeToFit_NoUpscale(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 50))
	out := ResizeToFit(src, 640, 300)
	assert.Same(t, src, out)
}

func TestResizeToFit_Downscale(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1280, 600))
	out := ResizeToFit(src, 640, 300)
	assert.Equal(t, image.Rect(0, 0, 640, 300), out.Bounds())
}
