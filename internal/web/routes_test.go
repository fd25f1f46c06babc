package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VideoQA-eval/internal/models"
)

type idleEvaluator struct{}

func (idleEvaluator) Latest() (*models.AggregateReport, *models.RunSummary) { return nil, nil }
func (idleEvaluator) Run() error                                           { return nil }

func TestSetupRouter(t *testing.T) {
	router, err := SetupRouter(idleEvaluator{}, nil, nil)
	require.NoError(t, err)

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/", http.StatusFound},
		{http.MethodGet, "/dashboard", http.StatusOK},
		{http.MethodGet, "/report", http.StatusNotFound},
		{http.MethodGet, "/export", http.StatusNotFound},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/manual-evaluate", http.StatusMethodNotAllowed},
		{http.MethodGet, "/runs", http.StatusNotFound},
		{http.MethodGet, "/frames/frame_0.jpg", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.want, rec.Code, tc.path)
	}
}
