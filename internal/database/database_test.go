package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryvision/sentinel/internal/models"
)

func setupMock(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &Database{DB: db}, mock
}

func TestAddCamera(t *testing.T) {
	d, mock := setupMock(t)

	mock.ExpectQuery("INSERT INTO cameras").
		WithArgs("Lobby", "Floor 1", "rtsp://cam1/stream", models.CameraInactive).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	id, err := d.AddCamera(context.Background(), "Lobby", "Floor 1", "rtsp://cam1/stream")

	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddCameraDefaultsSourceURL(t *testing.T) {
	d, mock := setupMock(t)

	// Пустой источник превращается в устройство 0
	mock.ExpectQuery("INSERT INTO cameras").
		WithArgs("Lobby", "", "0", models.CameraInactive).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	_, err := d.AddCamera(context.Background(), "Lobby", "", "")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCamera(t *testing.T) {
	d, mock := setupMock(t)
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, name, location, source_url, status, created_at").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "location", "source_url", "status", "created_at"}).
			AddRow(3, "Dock", "Warehouse", "http://10.0.0.5/stream", "active", created))

	cam, err := d.GetCamera(context.Background(), 3)

	require.NoError(t, err)
	require.NotNil(t, cam)
	assert.Equal(t, int64(3), cam.ID)
	assert.Equal(t, "Dock", cam.Name)
	assert.Equal(t, models.CameraActive, cam.Status)
	assert.Equal(t, created, cam.CreatedAt)
}

func TestGetCameraNotFound(t *testing.T) {
	d, mock := setupMock(t)

	mock.ExpectQuery("SELECT id, name, location, source_url, status, created_at").
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	cam, err := d.GetCamera(context.Background(), 99)

	// Отсутствие камеры — не ошибка
	require.NoError(t, err)
	assert.Nil(t, cam)
}

func TestGetAllCameras(t *testing.T) {
	d, mock := setupMock(t)
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, name, location, source_url, status, created_at").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "location", "source_url", "status", "created_at"}).
			AddRow(1, "Lobby", "Floor 1", "0", "active", created).
			AddRow(2, "Dock", "Warehouse", "1", "inactive", created))

	cameras, err := d.GetAllCameras(context.Background())

	require.NoError(t, err)
	require.Len(t, cameras, 2)
	assert.Equal(t, "Lobby", cameras[0].Name)
	assert.Equal(t, models.CameraInactive, cameras[1].Status)
}

func TestUpdateCameraStatus(t *testing.T) {
	d, mock := setupMock(t)

	mock.ExpectExec("UPDATE cameras SET status").
		WithArgs(models.CameraActive, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, d.UpdateCameraStatus(context.Background(), 1, models.CameraActive))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCamera(t *testing.T) {
	d, mock := setupMock(t)

	mock.ExpectExec("DELETE FROM cameras").
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, d.DeleteCamera(context.Background(), 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogDetection(t *testing.T) {
	d, mock := setupMock(t)
	ts := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO detections").
		WithArgs(int64(1), ts, "knife", 0.87, 10, 20, 110, 220, "cam1/knife.jpg").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(15))

	id, err := d.LogDetection(context.Background(), &models.Detection{
		CameraID:     1,
		Timestamp:    ts,
		Label:        "knife",
		Confidence:   0.87,
		Box:          models.BoundingBox{X1: 10, Y1: 20, X2: 110, Y2: 220},
		SnapshotPath: "cam1/knife.jpg",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(15), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogDetectionFillsTimestamp(t *testing.T) {
	d, mock := setupMock(t)

	mock.ExpectQuery("INSERT INTO detections").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	det := &models.Detection{CameraID: 1, Label: "gun", Confidence: 0.9}
	_, err := d.LogDetection(context.Background(), det)

	require.NoError(t, err)
	assert.False(t, det.Timestamp.IsZero())
}

func TestGetDetectionsFilters(t *testing.T) {
	d, mock := setupMock(t)
	ts := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	cameraID := int64(1)
	start := ts.Add(-time.Hour)

	mock.ExpectQuery("SELECT d.id, d.camera_id").
		WithArgs(cameraID, start, 25, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "camera_id", "timestamp", "object_class", "confidence",
			"bbox_x1", "bbox_y1", "bbox_x2", "bbox_y2",
			"snapshot_path", "alert_sent", "name", "location",
		}).AddRow(15, 1, ts, "knife", 0.87, 10, 20, 110, 220, "cam1/knife.jpg", true, "Lobby", "Floor 1"))

	detections, err := d.GetDetections(context.Background(), DetectionFilters{
		CameraID:  &cameraID,
		StartTime: &start,
		Limit:     25,
	})

	require.NoError(t, err)
	require.Len(t, detections, 1)
	assert.Equal(t, "knife", detections[0].Label)
	assert.True(t, detections[0].AlertSent)
	assert.Equal(t, "Lobby", detections[0].CameraName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDetectionsDefaultLimit(t *testing.T) {
	d, mock := setupMock(t)

	mock.ExpectQuery("SELECT d.id, d.camera_id").
		WithArgs(50, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "camera_id", "timestamp", "object_class", "confidence",
			"bbox_x1", "bbox_y1", "bbox_x2", "bbox_y2",
			"snapshot_path", "alert_sent", "name", "location",
		}))

	detections, err := d.GetDetections(context.Background(), DetectionFilters{})

	require.NoError(t, err)
	assert.Empty(t, detections)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAlert(t *testing.T) {
	d, mock := setupMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO alerts").
		WithArgs(int64(15), int64(1), "knife", models.SeverityHigh, "knife detected with HIGH severity").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectExec("UPDATE detections SET alert_sent").
		WithArgs(int64(15)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := d.CreateAlert(context.Background(), &models.Alert{
		DetectionID: 15,
		CameraID:    1,
		AlertType:   "knife",
		Severity:    models.SeverityHigh,
		Message:     "knife detected with HIGH severity",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAlertRollsBackWhenMarkFails(t *testing.T) {
	d, mock := setupMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO alerts").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectExec("UPDATE detections SET alert_sent").
		WillReturnError(errors.New("detections table locked"))
	mock.ExpectRollback()

	_, err := d.CreateAlert(context.Background(), &models.Alert{DetectionID: 15, CameraID: 1})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to mark detection alerted")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAlertsPendingOnly(t *testing.T) {
	d, mock := setupMock(t)
	created := time.Date(2025, 3, 1, 12, 31, 0, 0, time.UTC)

	mock.ExpectQuery("WHERE a.acknowledged = FALSE").
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "detection_id", "camera_id", "alert_type", "severity",
			"message", "acknowledged", "acknowledged_by", "acknowledged_at",
			"created_at", "name", "location", "object_class", "confidence", "snapshot_path",
		}).AddRow(3, 15, 1, "knife", "HIGH", "knife detected with HIGH severity",
			false, nil, nil, created, "Lobby", "Floor 1", "knife", 0.87, "cam1/knife.jpg"))

	alerts, err := d.GetAlerts(context.Background(), true, 0)

	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.SeverityHigh, alerts[0].Severity)
	assert.False(t, alerts[0].Acknowledged)
	assert.Empty(t, alerts[0].AcknowledgedBy)
	assert.Equal(t, "Lobby", alerts[0].CameraName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcknowledgeAlert(t *testing.T) {
	d, mock := setupMock(t)

	mock.ExpectExec("UPDATE alerts").
		WithArgs("operator-7", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, d.AcknowledgeAlert(context.Background(), 3, "operator-7"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitCreatesTables(t *testing.T) {
	d, mock := setupMock(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS cameras").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, d.Init())
	assert.NoError(t, mock.ExpectationsWereMet())
}
