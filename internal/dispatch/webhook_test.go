package dispatch

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sentryvision/sentinel/internal/models"
)

func samplePayload() models.AlertPayload {
	return models.AlertPayload{
		AlertID:      3,
		CameraID:     1,
		CameraName:   "Lobby",
		Location:     "Floor 1",
		Label:        "knife",
		Confidence:   0.87,
		Severity:     models.SeverityHigh,
		Timestamp:    time.Date(2025, 3, 1, 12, 31, 0, 0, time.UTC),
		SnapshotPath: "cam1/knife.jpg",
	}
}

func TestWebhookDeliversPayload(t *testing.T) {
	received := make(chan models.AlertPayload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var p models.AlertPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		received <- p
	}))
	defer srv.Close()

	hook := NewWebhook(srv.URL, time.Second, zap.NewNop())
	hook.PublishAlert(samplePayload())

	select {
	case p := <-received:
		assert.Equal(t, int64(3), p.AlertID)
		assert.Equal(t, "knife", p.Label)
		assert.Equal(t, models.SeverityHigh, p.Severity)
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was never called")
	}
}

func TestWebhookDoesNotBlockOnDeadEndpoint(t *testing.T) {
	hook := NewWebhook("http://127.0.0.1:1/unreachable", 100*time.Millisecond, zap.NewNop())

	done := make(chan struct{})
	go func() {
		hook.PublishAlert(samplePayload())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("PublishAlert blocked the caller")
	}
}

type countingPublisher struct {
	calls int
}

func (p *countingPublisher) PublishAlert(models.AlertPayload) {
	p.calls++
}

func TestFanoutHitsEveryTarget(t *testing.T) {
	a := &countingPublisher{}
	b := &countingPublisher{}

	NewFanout(a, b).PublishAlert(samplePayload())

	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestFanoutWithNoTargets(t *testing.T) {
	assert.NotPanics(t, func() {
		NewFanout().PublishAlert(samplePayload())
	})
}
