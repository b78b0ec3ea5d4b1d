package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sentryvision/sentinel/internal/models"
)

// LogDetection добавляет запись об обнаружении и возвращает её id.
// Записи неизменяемы после создания; меняется только флаг alert_sent
// при создании алерта.
func (d *Database) LogDetection(ctx context.Context, det *models.Detection) (int64, error) {
	if det.Timestamp.IsZero() {
		det.Timestamp = time.Now()
	}

	var id int64
	err := d.DB.QueryRowContext(ctx, `
		INSERT INTO detections (
			camera_id, timestamp, object_class, confidence,
			bbox_x1, bbox_y1, bbox_x2, bbox_y2, snapshot_path
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`,
		det.CameraID,
		det.Timestamp,
		det.Label,
		det.Confidence,
		det.Box.X1,
		det.Box.Y1,
		det.Box.X2,
		det.Box.Y2,
		det.SnapshotPath,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to log detection: %w", err)
	}

	return id, nil
}

// DetectionFilters — фильтры выборки детекций
type DetectionFilters struct {
	CameraID  *int64
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// GetDetections возвращает детекции с именем и локацией камеры
func (d *Database) GetDetections(ctx context.Context, f DetectionFilters) ([]models.Detection, error) {
	query := `
		SELECT d.id, d.camera_id, d.timestamp, d.object_class, d.confidence,
		       d.bbox_x1, d.bbox_y1, d.bbox_x2, d.bbox_y2,
		       d.snapshot_path, d.alert_sent,
		       c.name, c.location
		FROM detections d
		JOIN cameras c ON d.camera_id = c.id
		WHERE 1=1
	`
	var params []any

	if f.CameraID != nil {
		params = append(params, *f.CameraID)
		query += fmt.Sprintf(" AND d.camera_id = $%d", len(params))
	}
	if f.StartTime != nil {
		params = append(params, *f.StartTime)
		query += fmt.Sprintf(" AND d.timestamp >= $%d", len(params))
	}
	if f.EndTime != nil {
		params = append(params, *f.EndTime)
		query += fmt.Sprintf(" AND d.timestamp <= $%d", len(params))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	params = append(params, limit)
	query += fmt.Sprintf(" ORDER BY d.timestamp DESC LIMIT $%d", len(params))
	params = append(params, f.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(params))

	rows, err := d.DB.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to get detections: %w", err)
	}
	defer rows.Close()

	var detections []models.Detection
	for rows.Next() {
		var det models.Detection
		if err := rows.Scan(
			&det.ID,
			&det.CameraID,
			&det.Timestamp,
			&det.Label,
			&det.Confidence,
			&det.Box.X1,
			&det.Box.Y1,
			&det.Box.X2,
			&det.Box.Y2,
			&det.SnapshotPath,
			&det.AlertSent,
			&det.CameraName,
			&det.Location,
		); err != nil {
			return nil, err
		}
		detections = append(detections, det)
	}

	return detections, rows.Err()
}
