package services

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VideoQA-eval/internal/clients/openai"
	"VideoQA-eval/internal/config"
	"VideoQA-eval/internal/media"
	"VideoQA-eval/internal/models"
	"VideoQA-eval/internal/storage/nas"
)

// syntheticReader 產生固定數量的單色影格
type syntheticReader struct {
	fps   float64
	total int
	read  int
}

func (r *syntheticReader) FrameRate() float64 { return r.fps }

func (r *syntheticReader) Next() (image.Image, error) {
	if r.read >= r.total {
		return nil, io.EOF
	}
	r.read++
	img := image.NewRGBA(image.Rect(0, 0, 64, 36))
	for y := 0; y < 36; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{G: 200, A: 255})
		}
	}
	return img, nil
}

func (r *syntheticReader) Close() error { return nil }

type syntheticDecoder struct {
	fps   float64
	total int
}

func (d syntheticDecoder) Open(ctx context.Context, videoPath string) (media.FrameReader, error) {
	return &syntheticReader{fps: d.fps, total: d.total}, nil
}

type capturedRequest struct {
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

type modelServer struct {
	mu     sync.Mutex
	reply  string
	prompt []string
	images []int
}

func (m *modelServer) handler(w http.ResponseWriter, r *http.Request) {
	var req capturedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if len(req.Messages) == 2 {
		_ = json.Unmarshal(req.Messages[1].Content, &parts)
	}
	var images int
	var text string
	for _, p := range parts {
		switch p.Type {
		case "image_url":
			images++
		case "text":
			text = p.Text
		}
	}
	m.mu.Lock()
	m.prompt = append(m.prompt, text)
	m.images = append(m.images, images)
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"content": m.reply}}},
	})
}

func writeDataset(t *testing.T, dir string, entries []models.DatasetEntry) string {
	t.Helper()
	path := filepath.Join(dir, "dataset.json")
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func newPipeline(t *testing.T, dir, reply string, decoder media.FrameDecoder) (*EvaluateService, *modelServer) {
	t.Helper()
	ms := &modelServer{reply: reply}
	server := httptest.NewServer(http.HandlerFunc(ms.handler))
	t.Cleanup(server.Close)

	cfg := testConfig(dir)
	cfg.Sampler = config.SamplerConfig{TimeoutSeconds: 30, MaxWidth: 640, MaxHeight: 300, JPEGQuality: 50}
	cfg.Inference = config.InferenceConfig{
		Provider: "openai", Model: "qwen2vl", MaxImages: 15, TimeoutSeconds: 60,
		SystemPrompt: "You are a helpful assistant.", VerdictStrategy: "substring",
	}

	client, err := openai.NewClient(config.OpenAIClientConfig{BaseURL: server.URL}, cfg.Inference.Model, server.Client())
	require.NoError(t, err)
	extractor, err := NewVerdictExtractor(cfg.Inference.VerdictStrategy)
	require.NoError(t, err)
	inferencer, err := NewInferenceService(cfg.Inference, client, media.NewEncoder(), extractor)
	require.NoError(t, err)
	sampler, err := media.NewSampler(decoder, cfg.Sampler)
	require.NoError(t, err)
	storage, err := nas.NewFileSystemStorage(cfg.Evaluation.FrameOutputDir)
	require.NoError(t, err)

	svc, err := NewEvaluateService(cfg, storage, sampler, inferencer, nil)
	require.NoError(t, err)
	return svc, ms
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("not really a video"), 0o644))
}

func TestPipelineThreeFramesCorrect(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "short.mp4")
	touch(t, video)
	svc, ms := newPipeline(t, dir, "A", syntheticDecoder{fps: 1, total: 3})
	params := svc.ParamsFromConfig()
	params.DatasetPath = writeDataset(t, dir, []models.DatasetEntry{{
		VideoPath: video,
		Questions: []models.QuestionSpec{question("What is on screen?", "A", abcd)},
	}})

	report, err := svc.Evaluate(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalQuestions)
	assert.Equal(t, 1, report.CorrectCount)
	assert.InDelta(t, 100.0, report.Accuracy, 1e-9)
	require.Len(t, ms.images, 1)
	assert.Equal(t, 3, ms.images[0])
}

func TestPipelineSingleCorrectAnswer(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	touch(t, video)
	svc, ms := newPipeline(t, dir, "B", syntheticDecoder{fps: 30, total: 900})
	params := svc.ParamsFromConfig()
	params.DatasetPath = writeDataset(t, dir, []models.DatasetEntry{{
		VideoPath: video,
		Questions: []models.QuestionSpec{question("What color is the screen?", "B", abcd)},
	}})

	report, err := svc.Evaluate(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, 1, report.TotalQuestions)
	assert.Equal(t, 1, report.CorrectCount)
	assert.InDelta(t, 100.0, report.Accuracy, 1e-9)
	require.Len(t, report.Videos, 1)
	assert.Equal(t, models.VerdictB, report.Videos[0].Questions[0].ModelOutput)
	assert.Equal(t, models.ResultCorrect, report.Videos[0].Questions[0].Result)

	// 30 fps、目標 1 fps、900 格 → 取樣 30 張上限 25，送出前 15 張
	require.Len(t, ms.images, 1)
	assert.Equal(t, 15, ms.images[0])
	assert.FileExists(t, filepath.Join(params.FrameOutputDir, "frame_0.jpg"))
	assert.FileExists(t, filepath.Join(params.FrameOutputDir, "frame_720.jpg"))
	assert.NoFileExists(t, filepath.Join(params.FrameOutputDir, "frame_750.jpg"))

	data, err := os.ReadFile(params.ReportPath)
	require.NoError(t, err)
	var written map[string]any
	require.NoError(t, json.Unmarshal(data, &written))
	assert.Equal(t, float64(1), written["total_questions"])
	assert.Equal(t, float64(100), written["accuracy"])
}

func TestPipelineMultiAnswerIsIncorrect(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	touch(t, video)
	svc, _ := newPipeline(t, dir, "A", syntheticDecoder{fps: 30, total: 900})
	params := svc.ParamsFromConfig()
	params.DatasetPath = writeDataset(t, dir, []models.DatasetEntry{{
		VideoPath: video,
		Questions: []models.QuestionSpec{question("Which apply?", "A,B", abcd)},
	}})

	report, err := svc.Evaluate(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, report.Videos, 1)
	q := report.Videos[0].Questions[0]
	assert.Equal(t, models.VerdictA, q.ModelOutput)
	assert.Equal(t, models.ResultIncorrect, q.Result)
	assert.Equal(t, 0, report.CorrectCount)

	data, err := os.ReadFile(params.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"correct_answer": "A,B"`)
}

func TestPipelineMissingOptionsArePlaceholders(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	touch(t, video)
	svc, ms := newPipeline(t, dir, "The answer: B", syntheticDecoder{fps: 30, total: 900})
	params := svc.ParamsFromConfig()
	params.DatasetPath = writeDataset(t, dir, []models.DatasetEntry{{
		VideoPath: video,
		Questions: []models.QuestionSpec{question("Pick one", "A", map[string]string{"A": "Cat", "B": "Dog"})},
	}})

	_, err := svc.Evaluate(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, ms.prompt, 1)
	assert.True(t, strings.Contains(ms.prompt[0], "A: Cat\nB: Dog\nC: Not Provided\nD: Not Provided\n"))
}

func TestPipelineMissingVideoIsOmitted(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	touch(t, video)
	svc, ms := newPipeline(t, dir, "C", syntheticDecoder{fps: 30, total: 900})
	params := svc.ParamsFromConfig()
	params.DatasetPath = writeDataset(t, dir, []models.DatasetEntry{
		{VideoPath: filepath.Join(dir, "gone.mp4"), Questions: []models.QuestionSpec{question("q1", "C", abcd)}},
		{VideoPath: video, Questions: []models.QuestionSpec{question("q2", "C", abcd)}},
	})

	report, err := svc.Evaluate(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, report.Videos, 1)
	assert.Equal(t, video, report.Videos[0].VideoPath)
	assert.Len(t, ms.prompt, 1)
}

func TestPipelineNumericOptionsAreGraded(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	touch(t, video)
	svc, ms := newPipeline(t, dir, "B", syntheticDecoder{fps: 30, total: 90})
	params := svc.ParamsFromConfig()
	params.DatasetPath = filepath.Join(dir, "dataset.json")
	content := `[{"video_path": "` + filepath.ToSlash(video) + `", "questions": [
		{"question": "How many cats?", "options": {"A": 2, "B": 3, "C": 4, "D": 5}, "correct_answer": "B"}
	]}]`
	require.NoError(t, os.WriteFile(params.DatasetPath, []byte(content), 0o644))

	report, err := svc.Evaluate(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalQuestions)
	assert.Equal(t, 1, report.CorrectCount)
	require.Len(t, ms.prompt, 1)
	assert.Contains(t, ms.prompt[0], "A: 2\nB: 3\nC: 4\nD: 5\n")
}
