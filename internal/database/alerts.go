package database

import (
	"context"
	"fmt"

	"github.com/sentryvision/sentinel/internal/models"
)

// CreateAlert создаёт алерт и помечает его детекцию как отработанную.
// Обе записи идут в одной транзакции: алерт без пометки alert_sent
// позволил бы второй алерт на ту же детекцию.
func (d *Database) CreateAlert(ctx context.Context, a *models.Alert) (int64, error) {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO alerts (detection_id, camera_id, alert_type, severity, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`,
		a.DetectionID,
		a.CameraID,
		a.AlertType,
		a.Severity,
		a.Message,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create alert: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE detections SET alert_sent = TRUE WHERE id = $1",
		a.DetectionID,
	); err != nil {
		return 0, fmt.Errorf("failed to mark detection alerted: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit alert: %w", err)
	}

	return id, nil
}

// GetAlerts возвращает алерты, по умолчанию только неподтверждённые
func (d *Database) GetAlerts(ctx context.Context, pendingOnly bool, limit int) ([]models.Alert, error) {
	query := `
		SELECT a.id, a.detection_id, a.camera_id, a.alert_type, a.severity,
		       a.message, a.acknowledged, a.acknowledged_by, a.acknowledged_at,
		       a.created_at,
		       c.name, c.location,
		       d.object_class, d.confidence, d.snapshot_path
		FROM alerts a
		JOIN cameras c ON a.camera_id = c.id
		JOIN detections d ON a.detection_id = d.id
	`
	if pendingOnly {
		query += " WHERE a.acknowledged = FALSE"
	}
	query += " ORDER BY a.created_at DESC LIMIT $1"

	if limit <= 0 {
		limit = 100
	}

	rows, err := d.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		var ackBy *string
		if err := rows.Scan(
			&a.ID,
			&a.DetectionID,
			&a.CameraID,
			&a.AlertType,
			&a.Severity,
			&a.Message,
			&a.Acknowledged,
			&ackBy,
			&a.AcknowledgedAt,
			&a.CreatedAt,
			&a.CameraName,
			&a.Location,
			&a.Label,
			&a.Confidence,
			&a.SnapshotPath,
		); err != nil {
			return nil, err
		}
		if ackBy != nil {
			a.AcknowledgedBy = *ackBy
		}
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

// AcknowledgeAlert подтверждает алерт от имени оператора
func (d *Database) AcknowledgeAlert(ctx context.Context, alertID int64, acknowledgedBy string) error {
	_, err := d.DB.ExecContext(ctx, `
		UPDATE alerts
		SET acknowledged = TRUE,
		    acknowledged_by = $1,
		    acknowledged_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`, acknowledgedBy, alertID)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	return nil
}
