package dispatch

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/sentryvision/sentinel/internal/models"
)

// Producer публикует алерты в Kafka. Отправка — fire-and-forget:
// сбой доставки логируется и никогда не ретраится и не фатален.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// NewProducer создаёт продюсер с настройками
func NewProducer(brokers []string, topic string, logger *zap.Logger) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return &Producer{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}, nil
}

func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}

// PublishAlert отправляет алерт в топик. Не блокирует вызывающего:
// сама отправка уходит в горутину.
func (p *Producer) PublishAlert(payload models.AlertPayload) {
	go func() {
		data, err := json.Marshal(payload)
		if err != nil {
			p.logger.Error("marshal alert payload", zap.Error(err))
			return
		}

		msg := &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(strconv.FormatInt(payload.CameraID, 10)),
			Value: sarama.ByteEncoder(data),
		}

		if _, _, err := p.producer.SendMessage(msg); err != nil {
			p.logger.Error("publish alert",
				zap.Int64("alert_id", payload.AlertID),
				zap.Error(err),
			)
		}
	}()
}
