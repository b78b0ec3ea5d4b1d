package models

import "time"

type CameraStatusValue string

const (
	CameraActive   CameraStatusValue = "active"
	CameraInactive CameraStatusValue = "inactive"
)

// Camera описывает один источник видео
type Camera struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Location  string            `json:"location"`
	SourceURL string            `json:"source_url"`
	Status    CameraStatusValue `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// BoundingBox задаёт рамку обнаруженного объекта в координатах исходного кадра
type BoundingBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (b BoundingBox) Width() int  { return b.X2 - b.X1 }
func (b BoundingBox) Height() int { return b.Y2 - b.Y1 }
func (b BoundingBox) Area() int   { return b.Width() * b.Height() }

// InsideFrame reports whether the whole box lies within a frame of the given size.
func (b BoundingBox) InsideFrame(width, height int) bool {
	return b.X1 >= 0 && b.Y1 >= 0 && b.X2 <= width && b.Y2 <= height
}

// RawDetection — структура одного обнаруженного объекта, как его вернула модель.
// Координаты рамки — в разрешении инференса, до обратного масштабирования.
type RawDetection struct {
	Label      string    `json:"class"`
	Confidence float64   `json:"score"`
	Box        []float64 `json:"box"` // [x1, y1, x2, y2]
}

// Detection — персистентная запись об обнаружении
type Detection struct {
	ID           int64       `json:"id"`
	CameraID     int64       `json:"camera_id"`
	Timestamp    time.Time   `json:"timestamp"`
	Label        string      `json:"object_class"`
	Confidence   float64     `json:"confidence"`
	Box          BoundingBox `json:"bbox"`
	SnapshotPath string      `json:"snapshot_path,omitempty"`
	AlertSent    bool        `json:"alert_sent"`

	// Заполняются при выборке с JOIN на cameras
	CameraName string `json:"camera_name,omitempty"`
	Location   string `json:"location,omitempty"`
}

type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// SeverityForConfidence maps a detection confidence to an alert severity.
// The mapping is fixed at alert-creation time and never recomputed.
func SeverityForConfidence(confidence float64) Severity {
	switch {
	case confidence > 0.8:
		return SeverityHigh
	case confidence > 0.6:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Alert ссылается ровно на одно Detection
type Alert struct {
	ID             int64      `json:"id"`
	DetectionID    int64      `json:"detection_id"`
	CameraID       int64      `json:"camera_id"`
	AlertType      string     `json:"alert_type"`
	Severity       Severity   `json:"severity"`
	Message        string     `json:"message"`
	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`

	// Заполняются при выборке с JOIN
	CameraName   string  `json:"camera_name,omitempty"`
	Location     string  `json:"location,omitempty"`
	Label        string  `json:"object_class,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
	SnapshotPath string  `json:"snapshot_path,omitempty"`
}

// AlertPayload — сообщение для внешних потребителей (Kafka, webhook)
type AlertPayload struct {
	AlertID      int64     `json:"alert_id"`
	CameraID     int64     `json:"camera_id"`
	CameraName   string    `json:"camera_name"`
	Location     string    `json:"location"`
	Label        string    `json:"object_class"`
	Confidence   float64   `json:"confidence"`
	Severity     Severity  `json:"severity"`
	Timestamp    time.Time `json:"timestamp"`
	SnapshotPath string    `json:"snapshot_path,omitempty"`
}

type CommandAction string

const (
	CommandStart CommandAction = "start"
	CommandStop  CommandAction = "stop"
)

// CameraCommand — команда управления камерой
type CameraCommand struct {
	CameraID int64         `json:"camera_id"`
	Action   CommandAction `json:"action"`
}

// WorkerState — фаза жизненного цикла воркера камеры
type WorkerState string

const (
	WorkerCreated  WorkerState = "created"
	WorkerStarting WorkerState = "starting"
	WorkerRunning  WorkerState = "running"
	WorkerDegraded WorkerState = "degraded"
	WorkerStopped  WorkerState = "stopped"
)

// CameraStatus — строка агрегированного статуса по одной камере
type CameraStatus struct {
	CameraID       int64       `json:"camera_id"`
	State          WorkerState `json:"state"`
	Running        bool        `json:"running"`
	FrameCount     int64       `json:"frame_count"`
	DetectionCount int64       `json:"detection_count"`
}
