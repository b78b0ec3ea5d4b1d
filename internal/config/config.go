package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config структура конфига
type Config struct {
	Log struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"log"`

	Postgres struct {
		DSN string `yaml:"dsn" env:"DATABASE_DSN"`
	} `yaml:"postgres"`

	Minio struct {
		Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
		AccessKey string `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
		SecretKey string `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
		Bucket    string `yaml:"bucket" env:"MINIO_BUCKET"`
	} `yaml:"minio"`

	Kafka struct {
		Brokers      []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
		GroupID      string   `yaml:"group_id" env:"KAFKA_GROUP_ID"`
		CommandTopic string   `yaml:"command_topic" env:"COMMAND_TOPIC"`
		AlertTopic   string   `yaml:"alert_topic" env:"ALERT_TOPIC"`
	} `yaml:"kafka"`

	Webhook struct {
		URL     string        `yaml:"url" env:"ALERT_WEBHOOK_URL"`
		Timeout time.Duration `yaml:"timeout" env:"ALERT_WEBHOOK_TIMEOUT"`
	} `yaml:"webhook"`

	Detection Detection `yaml:"detection"`
	Pipeline  Pipeline  `yaml:"pipeline"`
	Alerts    Alerts    `yaml:"alerts"`
}

// Detection — параметры модели и постобработки
type Detection struct {
	Endpoint            string   `yaml:"endpoint" env:"DETECTION_ENDPOINT"`
	ConfidenceThreshold float64  `yaml:"confidence_threshold" env:"DETECTION_CONFIDENCE_THRESHOLD"`
	IOUThreshold        float64  `yaml:"iou_threshold" env:"DETECTION_IOU_THRESHOLD"`
	MaxDetections       int      `yaml:"max_detections" env:"DETECTION_MAX_DETECTIONS"`
	InferenceSize       int      `yaml:"inference_size" env:"DETECTION_INFERENCE_SIZE"`
	MinArea             int      `yaml:"min_area" env:"DETECTION_MIN_AREA"`
	EdgeMargin          int      `yaml:"edge_margin" env:"DETECTION_EDGE_MARGIN"`
	HarmfulClasses      []string `yaml:"harmful_classes" env:"HARMFUL_CLASSES" envSeparator:","`
}

// Pipeline — параметры цикла обработки кадров воркера
type Pipeline struct {
	FrameSkip           int           `yaml:"frame_skip" env:"FRAME_SKIP"`
	StabilizationFrames int64         `yaml:"stabilization_frames" env:"STABILIZATION_FRAMES"`
	WarmupFrames        int64         `yaml:"warmup_frames" env:"WARMUP_FRAMES"`
	MaxReadFailures     int           `yaml:"max_read_failures" env:"MAX_READ_FAILURES"`
	MaxInvalidFrames    int           `yaml:"max_invalid_frames" env:"MAX_INVALID_FRAMES"`
	ReadRetryDelay      time.Duration `yaml:"read_retry_delay" env:"READ_RETRY_DELAY"`
	StopTimeout         time.Duration `yaml:"stop_timeout" env:"STOP_TIMEOUT"`
}

// Alerts — параметры дебаунса и порогов алертов
type Alerts struct {
	ConfidenceThreshold float64       `yaml:"confidence_threshold" env:"ALERT_CONFIDENCE_THRESHOLD"`
	Cooldown            time.Duration `yaml:"cooldown" env:"ALERT_COOLDOWN"`
	ConsistencyWindow   time.Duration `yaml:"consistency_window" env:"ALERT_CONSISTENCY_WINDOW"`
	MinConsistentHits   int           `yaml:"min_consistent_hits" env:"ALERT_MIN_CONSISTENT_HITS"`
	MinStableFrames     int64         `yaml:"min_stable_frames" env:"ALERT_MIN_STABLE_FRAMES"`
}

// Defaults возвращает конфиг со значениями по умолчанию.
// Все пороги подобраны под камеры 640x480 и модель с inference size 640.
func Defaults() *Config {
	cfg := &Config{}
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	cfg.Minio.Bucket = "snapshots"
	cfg.Webhook.Timeout = 5 * time.Second
	cfg.Detection = Detection{
		ConfidenceThreshold: 0.70,
		IOUThreshold:        0.45,
		MaxDetections:       100,
		InferenceSize:       640,
		MinArea:             3000,
		EdgeMargin:          30,
		HarmfulClasses: []string{
			"baseball bat",
			"crow bar",
			"hammer",
			"knife",
			"pistol",
			"rifle",
		},
	}
	cfg.Pipeline = Pipeline{
		FrameSkip:           8,
		StabilizationFrames: 30,
		WarmupFrames:        100,
		MaxReadFailures:     10,
		MaxInvalidFrames:    300,
		ReadRetryDelay:      500 * time.Millisecond,
		StopTimeout:         3 * time.Second,
	}
	cfg.Alerts = Alerts{
		ConfidenceThreshold: 0.5,
		Cooldown:            30 * time.Second,
		ConsistencyWindow:   3 * time.Second,
		MinConsistentHits:   3,
		MinStableFrames:     120,
	}
	return cfg
}

func LoadConfig(filename string) (*Config, error) {
	cfg := Defaults()

	if filename == "" {
		filename = "internal/config/local.yaml"
	}

	// Читаем YAML
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Парсим YAML в структуру
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	// Парсим переменные окружения с приоритетом
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env overrides: %w", err)
	}

	return cfg, nil
}
