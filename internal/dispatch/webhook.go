package dispatch

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sentryvision/sentinel/internal/models"
)

// Webhook отправляет алерты внешнему HTTP-приёмнику
type Webhook struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

func NewWebhook(url string, timeout time.Duration, logger *zap.Logger) *Webhook {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// PublishAlert делает POST с JSON-телом алерта. Fire-and-forget.
func (w *Webhook) PublishAlert(payload models.AlertPayload) {
	go func() {
		data, err := json.Marshal(payload)
		if err != nil {
			w.logger.Error("marshal webhook payload", zap.Error(err))
			return
		}

		resp, err := w.client.Post(w.url, "application/json", bytes.NewReader(data))
		if err != nil {
			w.logger.Error("webhook delivery failed",
				zap.Int64("alert_id", payload.AlertID),
				zap.Error(err),
			)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			w.logger.Warn("webhook returned non-OK status",
				zap.Int64("alert_id", payload.AlertID),
				zap.String("status", resp.Status),
			)
		}
	}()
}

// Publisher — один канал доставки алертов
type Publisher interface {
	PublishAlert(models.AlertPayload)
}

// Fanout рассылает алерт во все настроенные каналы
type Fanout struct {
	targets []Publisher
}

func NewFanout(targets ...Publisher) *Fanout {
	return &Fanout{targets: targets}
}

func (f *Fanout) PublishAlert(payload models.AlertPayload) {
	for _, t := range f.targets {
		t.PublishAlert(payload)
	}
}
