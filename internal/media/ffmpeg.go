package media

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"VideoQA-eval/internal/config"
)

// FFmpegDecoder 透過 ffprobe 取得影片尺寸與幀率，再以 ffmpeg 輸出 RGBA 原始影格。
type FFmpegDecoder struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpegDecoder 建立 FFmpegDecoder
func NewFFmpegDecoder(cfg config.SamplerConfig) *FFmpegDecoder {
	ffmpegPath := cfg.FFmpegPath
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	ffprobePath := cfg.FFprobePath
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegDecoder{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

type probeOutput struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
}

type streamInfo struct {
	width  int
	height int
	fps    float64
}

// Open 探測影片資訊；ffmpeg 行程延遲到第一次 Next 才啟動，幀率為 0 的影片不會啟動解碼。
func (d *FFmpegDecoder) Open(ctx context.Context, videoPath string) (FrameReader, error) {
	cmd := exec.CommandContext(ctx, d.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,avg_frame_rate",
		"-of", "json",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}
	info, err := parseProbeOutput(output)
	if err != nil {
		return nil, err
	}
	return &ffmpegFrameReader{
		ctx:        ctx,
		ffmpegPath: d.ffmpegPath,
		videoPath:  videoPath,
		info:       info,
	}, nil
}

func parseProbeOutput(output []byte) (streamInfo, error) {
	var probe probeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return streamInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 {
		return streamInfo{}, errors.New("no video stream")
	}
	stream := probe.Streams[0]
	if stream.Width <= 0 || stream.Height <= 0 {
		return streamInfo{}, fmt.Errorf("invalid frame size %dx%d", stream.Width, stream.Height)
	}
	fps := parseFrameRate(stream.RFrameRate)
	if fps == 0 {
		fps = parseFrameRate(stream.AvgFrameRate)
	}
	return streamInfo{width: stream.Width, height: stream.Height, fps: fps}, nil
}

// parseFrameRate 解析 "30000/1001" 或 "25" 形式的幀率，無法解析時回傳 0
func parseFrameRate(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	num, den, found := strings.Cut(raw, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	dv, err := strconv.ParseFloat(den, 64)
	if err != nil || dv == 0 {
		return 0
	}
	return n / dv
}

type ffmpegFrameReader struct {
	ctx        context.Context
	ffmpegPath string
	videoPath  string
	info       streamInfo

	cmd    *exec.Cmd
	stdout *bufio.Reader
	buf    []byte
}

func (r *ffmpegFrameReader) FrameRate() float64 {
	return r.info.fps
}

func (r *ffmpegFrameReader) start() error {
	// -noautorotate 讓輸出尺寸與 ffprobe 回報一致；passthrough 保留原始影格計數
	cmd := exec.CommandContext(r.ctx, r.ffmpegPath,
		"-v", "error",
		"-noautorotate",
		"-i", r.videoPath,
		"-map", "0:v:0",
		"-vsync", "passthrough",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}
	frameSize := r.info.width * r.info.height * 4
	r.cmd = cmd
	r.stdout = bufio.NewReaderSize(stdout, frameSize)
	r.buf = make([]byte, frameSize)
	return nil
}

func (r *ffmpegFrameReader) Next() (image.Image, error) {
	if r.cmd == nil {
		if err := r.start(); err != nil {
			return nil, err
		}
	}
	if _, err := io.ReadFull(r.stdout, r.buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			if ctxErr := r.ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read raw frame: %w", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, r.info.width, r.info.height))
	copy(img.Pix, r.buf)
	return img, nil
}

func (r *ffmpegFrameReader) Close() error {
	if r.cmd == nil || r.cmd.Process == nil {
		return nil
	}
	_ = r.cmd.Process.Kill()
	// 主動中止後 Wait 的錯誤沒有意義
	_ = r.cmd.Wait()
	return nil
}
