package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/sentryvision/sentinel/internal/alert"
	"github.com/sentryvision/sentinel/internal/camera"
	"github.com/sentryvision/sentinel/internal/config"
	"github.com/sentryvision/sentinel/internal/database"
	"github.com/sentryvision/sentinel/internal/detect"
	"github.com/sentryvision/sentinel/internal/dispatch"
	"github.com/sentryvision/sentinel/internal/logger"
	"github.com/sentryvision/sentinel/internal/models"
	"github.com/sentryvision/sentinel/internal/storage"
	"github.com/sentryvision/sentinel/internal/vision"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Level, cfg.Log.Format, "sentinel-core")
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Postgres: стор камер, детекций и алертов
	db, err := database.New(cfg.Postgres.DSN)
	if err != nil {
		zlog.Fatal("failed to connect to Postgres", zap.Error(err))
	}
	defer db.Close()
	if err := db.Init(); err != nil {
		zlog.Fatal("failed to init database schema", zap.Error(err))
	}

	// MinIO: хранилище снапшотов
	snapshots, err := storage.NewMinioClient(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Bucket)
	if err != nil {
		zlog.Fatal("failed to connect to MinIO", zap.Error(err))
	}
	if err := snapshots.EnsureBucket(ctx); err != nil {
		zlog.Fatal("failed to ensure snapshot bucket", zap.Error(err))
	}

	// Kafka: продюсер алертов и потребитель команд
	producer, err := dispatch.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.AlertTopic, zlog)
	if err != nil {
		zlog.Fatal("failed to create Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	consumer, err := dispatch.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.CommandTopic, zlog)
	if err != nil {
		zlog.Fatal("failed to create Kafka consumer", zap.Error(err))
	}
	defer consumer.Close()
	consumer.StartListening(ctx)

	var dispatcher camera.Dispatcher = producer
	if cfg.Webhook.URL != "" {
		dispatcher = dispatch.NewFanout(producer, dispatch.NewWebhook(cfg.Webhook.URL, cfg.Webhook.Timeout, zlog))
	}

	// Модель загружается один раз и разделяется всеми воркерами
	model := detect.NewClient(cfg.Detection.Endpoint)

	registry := camera.NewRegistry(camera.Deps{
		Model: model,
		InferOpts: detect.InferOptions{
			ConfidenceThreshold: cfg.Detection.ConfidenceThreshold,
			IOUThreshold:        cfg.Detection.IOUThreshold,
			MaxDetections:       cfg.Detection.MaxDetections,
			InputSize:           cfg.Detection.InferenceSize,
		},
		Validator:  vision.NewValidator(),
		Processor:  vision.NewProcessor(cfg.Detection.MinArea, cfg.Detection.EdgeMargin, cfg.Detection.HarmfulClasses, zlog),
		Store:      db,
		Snapshots:  snapshots,
		Dispatcher: dispatcher,
		Pipeline:   cfg.Pipeline,
		AlertOpts: alert.Options{
			ConfidenceThreshold: cfg.Alerts.ConfidenceThreshold,
			Cooldown:            cfg.Alerts.Cooldown,
			ConsistencyWindow:   cfg.Alerts.ConsistencyWindow,
			MinConsistentHits:   cfg.Alerts.MinConsistentHits,
			MinStableFrames:     cfg.Alerts.MinStableFrames,
		},
		Logger: zlog,
	})

	go listenCommands(ctx, consumer, registry, zlog)

	zlog.Info("sentinel core started",
		zap.String("command_topic", cfg.Kafka.CommandTopic),
		zap.String("alert_topic", cfg.Kafka.AlertTopic),
	)

	// Ждём сигнал завершения
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zlog.Info("shutting down")
	cancel()
	registry.StopAll(context.Background())
}

// listenCommands читает команды камерам из Kafka и транслирует их реестру.
// Сообщение подтверждается только после успешной обработки.
func listenCommands(ctx context.Context, consumer *dispatch.Consumer, registry *camera.Registry, zlog *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-consumer.Messages():
			if !ok {
				return
			}

			var cmd models.CameraCommand
			if err := json.Unmarshal(msg.Value, &cmd); err != nil {
				zlog.Warn("invalid command format", zap.Error(err))
				// Не подтверждаем сообщение при ошибке парсинга
				continue
			}

			var processErr error
			switch cmd.Action {
			case models.CommandStart:
				processErr = registry.Start(ctx, cmd.CameraID)
			case models.CommandStop:
				registry.Stop(ctx, cmd.CameraID)
			default:
				zlog.Warn("unknown command action", zap.String("action", string(cmd.Action)))
			}

			if processErr != nil {
				zlog.Error("failed to process camera command",
					zap.Int64("camera_id", cmd.CameraID),
					zap.String("action", string(cmd.Action)),
					zap.Error(processErr),
				)
				continue
			}

			msg.Ack()
		}
	}
}
