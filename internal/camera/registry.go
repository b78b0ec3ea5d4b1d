package camera

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/sentryvision/sentinel/internal/models"
	"github.com/sentryvision/sentinel/internal/vision"
)

// Registry владеет множеством запущенных воркеров. Вся мутация набора
// идёт под одним мьютексом; блокирующий ввод-вывод (проба источника,
// прогрев) выполняется вне критической секции, чтобы операции по одной
// камере не тормозили остальные.
type Registry struct {
	deps   Deps
	logger *zap.Logger

	mu      sync.Mutex
	workers map[int64]*Worker
	// starting держит камеры между пробой источника и вставкой воркера,
	// чтобы два конкурентных Start не подняли камеру дважды
	starting map[int64]struct{}
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:     deps,
		logger:   deps.Logger,
		workers:  make(map[int64]*Worker),
		starting: make(map[int64]struct{}),
	}
}

// Start поднимает воркер камеры. Идемпотентен: повторный запуск уже
// работающей камеры — no-op с предупреждением, существующее состояние
// дебаунса не трогается. Источник проверяется до создания воркера,
// чтобы падать быстро и с внятной диагностикой.
func (r *Registry) Start(ctx context.Context, cameraID int64) error {
	r.mu.Lock()
	if _, ok := r.workers[cameraID]; ok {
		r.mu.Unlock()
		r.logger.Warn("camera already running", zap.Int64("camera_id", cameraID))
		return nil
	}
	if _, ok := r.starting[cameraID]; ok {
		r.mu.Unlock()
		r.logger.Warn("camera start already in progress", zap.Int64("camera_id", cameraID))
		return nil
	}
	r.starting[cameraID] = struct{}{}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.starting, cameraID)
		r.mu.Unlock()
	}()

	cam, err := r.deps.Store.GetCamera(ctx, cameraID)
	if err != nil {
		return fmt.Errorf("get camera %d: %w", cameraID, err)
	}
	if cam == nil {
		return fmt.Errorf("camera %d not found", cameraID)
	}

	if err := r.probeSource(cam.SourceURL); err != nil {
		return fmt.Errorf("camera %d: %w", cameraID, err)
	}

	worker := NewWorker(cam, r.deps)
	if err := worker.Start(ctx); err != nil {
		return fmt.Errorf("start camera %d: %w", cameraID, err)
	}

	r.mu.Lock()
	r.workers[cameraID] = worker
	r.mu.Unlock()

	if err := r.deps.Store.UpdateCameraStatus(ctx, cameraID, models.CameraActive); err != nil {
		r.logger.Error("update camera status", zap.Int64("camera_id", cameraID), zap.Error(err))
	}

	r.logger.Info("camera started", zap.Int64("camera_id", cameraID))
	return nil
}

// probeSource открывает источник, требует один кадр и закрывает его
func (r *Registry) probeSource(locator string) error {
	src, err := r.deps.openSource(locator)
	if err != nil {
		return err
	}
	defer src.Close()

	frame, err := src.Read()
	if err != nil || frame.Empty() {
		return fmt.Errorf("%w: source opened but delivered no frame", ErrSourceUnavailable)
	}
	return nil
}

// Stop останавливает воркер камеры. Остановка несуществующей камеры — no-op.
func (r *Registry) Stop(ctx context.Context, cameraID int64) {
	r.mu.Lock()
	worker, ok := r.workers[cameraID]
	if ok {
		delete(r.workers, cameraID)
	}
	r.mu.Unlock()

	if !ok {
		r.logger.Warn("stop requested for camera that is not running", zap.Int64("camera_id", cameraID))
		return
	}

	worker.Stop()

	if err := r.deps.Store.UpdateCameraStatus(ctx, cameraID, models.CameraInactive); err != nil {
		r.logger.Error("update camera status", zap.Int64("camera_id", cameraID), zap.Error(err))
	}
	r.logger.Info("camera stopped", zap.Int64("camera_id", cameraID))
}

// StopAll останавливает все воркеры
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.Lock()
	workers := r.workers
	r.workers = make(map[int64]*Worker)
	r.mu.Unlock()

	for id, worker := range workers {
		worker.Stop()
		if err := r.deps.Store.UpdateCameraStatus(ctx, id, models.CameraInactive); err != nil {
			r.logger.Error("update camera status", zap.Int64("camera_id", id), zap.Error(err))
		}
	}
	r.logger.Info("all cameras stopped", zap.Int("count", len(workers)))
}

// LatestFrame возвращает копию последнего кадра камеры либо nil
func (r *Registry) LatestFrame(cameraID int64) *vision.Frame {
	r.mu.Lock()
	worker, ok := r.workers[cameraID]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return worker.LatestFrame()
}

// IsRunning сообщает, работает ли воркер камеры
func (r *Registry) IsRunning(cameraID int64) bool {
	r.mu.Lock()
	worker, ok := r.workers[cameraID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	state := worker.State()
	return state == models.WorkerRunning || state == models.WorkerDegraded
}

// ActiveCount — число зарегистрированных воркеров
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workers)
}

// Status агрегирует статусы всех воркеров
func (r *Registry) Status() []models.CameraStatus {
	r.mu.Lock()
	workers := lo.Values(r.workers)
	r.mu.Unlock()

	return lo.Map(workers, func(w *Worker, _ int) models.CameraStatus {
		return w.Status()
	})
}
