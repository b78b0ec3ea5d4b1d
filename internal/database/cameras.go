package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sentryvision/sentinel/internal/models"
)

// AddCamera регистрирует камеру и возвращает её id
func (d *Database) AddCamera(ctx context.Context, name, location, sourceURL string) (int64, error) {
	if sourceURL == "" {
		sourceURL = "0"
	}

	var id int64
	err := d.DB.QueryRowContext(ctx, `
		INSERT INTO cameras (name, location, source_url, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, name, location, sourceURL, models.CameraInactive).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to add camera: %w", err)
	}

	return id, nil
}

// GetCamera возвращает камеру по id; nil без ошибки, если камеры нет
func (d *Database) GetCamera(ctx context.Context, id int64) (*models.Camera, error) {
	row := d.DB.QueryRowContext(ctx, `
		SELECT id, name, location, source_url, status, created_at
		FROM cameras
		WHERE id = $1
	`, id)

	var cam models.Camera
	err := row.Scan(
		&cam.ID,
		&cam.Name,
		&cam.Location,
		&cam.SourceURL,
		&cam.Status,
		&cam.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Камера не найдена - это не ошибка
		}
		return nil, fmt.Errorf("failed to get camera: %w", err)
	}

	return &cam, nil
}

// GetAllCameras возвращает все камеры в порядке id
func (d *Database) GetAllCameras(ctx context.Context) ([]models.Camera, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, name, location, source_url, status, created_at
		FROM cameras
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cameras: %w", err)
	}
	defer rows.Close()

	var cameras []models.Camera
	for rows.Next() {
		var cam models.Camera
		if err := rows.Scan(
			&cam.ID,
			&cam.Name,
			&cam.Location,
			&cam.SourceURL,
			&cam.Status,
			&cam.CreatedAt,
		); err != nil {
			return nil, err
		}
		cameras = append(cameras, cam)
	}

	return cameras, rows.Err()
}

// UpdateCameraStatus переключает статус камеры
func (d *Database) UpdateCameraStatus(ctx context.Context, id int64, status models.CameraStatusValue) error {
	_, err := d.DB.ExecContext(ctx,
		"UPDATE cameras SET status = $1 WHERE id = $2",
		status, id,
	)
	return err
}

// DeleteCamera удаляет камеру
func (d *Database) DeleteCamera(ctx context.Context, id int64) error {
	_, err := d.DB.ExecContext(ctx, "DELETE FROM cameras WHERE id = $1", id)
	return err
}
