package detect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientInfer(t *testing.T) {
	frame := []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "0.7", r.FormValue("conf"))
		assert.Equal(t, "0.45", r.FormValue("iou"))
		assert.Equal(t, "100", r.FormValue("max_det"))
		assert.Equal(t, "640", r.FormValue("imgsz"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "frame.jpg", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"class": "knife", "score": 0.87, "box": [10, 20, 110, 220]},
			{"class": "person", "score": 0.95, "box": [0, 0, 300, 400]}
		]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	detections, err := client.Infer(context.Background(), frame, InferOptions{
		ConfidenceThreshold: 0.7,
		IOUThreshold:        0.45,
		MaxDetections:       100,
		InputSize:           640,
	})

	require.NoError(t, err)
	require.Len(t, detections, 2)
	assert.Equal(t, "knife", detections[0].Label)
	assert.Equal(t, 0.87, detections[0].Confidence)
	assert.Equal(t, []float64{10, 20, 110, 220}, detections[0].Box)
	assert.Equal(t, "person", detections[1].Label)
}

func TestClientInferEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	detections, err := NewClient(srv.URL).Infer(context.Background(), []byte{0x01}, InferOptions{})

	require.NoError(t, err)
	assert.Empty(t, detections)
}

func TestClientInferBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Infer(context.Background(), []byte{0x01}, InferOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestClientInferCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(srv.URL).Infer(ctx, []byte{0x01}, InferOptions{})
	require.Error(t, err)
}
