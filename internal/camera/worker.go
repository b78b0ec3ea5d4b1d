package camera

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sentryvision/sentinel/internal/alert"
	"github.com/sentryvision/sentinel/internal/config"
	"github.com/sentryvision/sentinel/internal/detect"
	"github.com/sentryvision/sentinel/internal/models"
	"github.com/sentryvision/sentinel/internal/vision"
)

const (
	warmupReadAttempts  = 30
	warmupReadsRequired = 10
	inferJPEGQuality    = 85
)

// Store — персистентные операции, нужные воркеру и реестру.
// Записи сериализуются внутри хранилища, конкурентные вызовы безопасны.
type Store interface {
	GetCamera(ctx context.Context, id int64) (*models.Camera, error)
	UpdateCameraStatus(ctx context.Context, id int64, status models.CameraStatusValue) error
	LogDetection(ctx context.Context, d *models.Detection) (int64, error)
	CreateAlert(ctx context.Context, a *models.Alert) (int64, error)
}

// SnapshotStore сохраняет кадры-улики и возвращает путь к объекту
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, cameraID int64, label string, jpeg []byte) (string, error)
}

// Dispatcher рассылает алерты внешним потребителям. PublishAlert обязан
// не блокировать цикл воркера.
type Dispatcher interface {
	PublishAlert(payload models.AlertPayload)
}

// Deps — общие для всех воркеров зависимости
type Deps struct {
	Model      detect.Model
	InferOpts  detect.InferOptions
	Validator  *vision.Validator
	Processor  *vision.Processor
	Store      Store
	Snapshots  SnapshotStore
	Dispatcher Dispatcher
	Pipeline   config.Pipeline
	AlertOpts  alert.Options
	Logger     *zap.Logger

	// OpenSource подменяется в тестах; по умолчанию Open
	OpenSource func(locator string) (Source, error)
}

func (d Deps) openSource(locator string) (Source, error) {
	if d.OpenSource != nil {
		return d.OpenSource(locator)
	}
	return Open(locator)
}

// Worker владеет одним источником видео и гоняет кадры через конвейер:
// захват -> валидация -> детекция -> дебаунс -> персист/алерт. Последний
// кадр всегда публикуется для стриминга независимо от исхода детекции.
type Worker struct {
	camera *models.Camera
	deps   Deps
	logger *zap.Logger

	source    Source
	debouncer *alert.Debouncer

	mu    sync.Mutex
	state models.WorkerState

	frameCount     atomic.Int64
	detectionCount atomic.Int64

	frameMu     sync.Mutex
	latestFrame *vision.Frame

	cancel context.CancelFunc
	done   chan struct{}
}

func NewWorker(cam *models.Camera, deps Deps) *Worker {
	logger := deps.Logger.With(zap.Int64("camera_id", cam.ID))
	return &Worker{
		camera:    cam,
		deps:      deps,
		logger:    logger,
		debouncer: alert.NewDebouncer(deps.AlertOpts, logger),
		state:     models.WorkerCreated,
		done:      make(chan struct{}),
	}
}

// State возвращает текущую фазу жизненного цикла
func (w *Worker) State() models.WorkerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Worker) setState(s models.WorkerState) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// Status — строка статуса для агрегации реестром
func (w *Worker) Status() models.CameraStatus {
	state := w.State()
	return models.CameraStatus{
		CameraID:       w.camera.ID,
		State:          state,
		Running:        state == models.WorkerRunning || state == models.WorkerDegraded,
		FrameCount:     w.frameCount.Load(),
		DetectionCount: w.detectionCount.Load(),
	}
}

// Start открывает источник, прогревает его и запускает цикл обработки.
// Ошибка старта синхронно возвращается вызывающему; это единственный
// случай, когда сбой конвейера всплывает наружу как жёсткая ошибка.
func (w *Worker) Start(ctx context.Context) error {
	w.setState(models.WorkerStarting)

	source, err := w.deps.openSource(w.camera.SourceURL)
	if err != nil {
		w.setState(models.WorkerStopped)
		return err
	}

	// Прогрев: источнику даётся ограниченное число чтений, чтобы отдать
	// хотя бы один кадр. Камеры на старте часто отдают мусор.
	goodReads := 0
	for i := 0; i < warmupReadAttempts; i++ {
		frame, err := source.Read()
		if err != nil || frame.Empty() {
			continue
		}
		goodReads++
		if goodReads >= warmupReadsRequired {
			break
		}
	}
	if goodReads == 0 {
		source.Close()
		w.setState(models.WorkerStopped)
		return fmt.Errorf("%w: camera %d produced no frames during warmup", ErrSourceUnavailable, w.camera.ID)
	}

	w.source = source

	runCtx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.setState(models.WorkerRunning)
	go w.run(runCtx)

	w.logger.Info("camera worker started", zap.String("source", w.camera.SourceURL))
	return nil
}

// run — основной цикл. Ничто внутри не имеет права уронить процесс:
// все ошибки кадра логируются, цикл продолжается со следующего кадра.
func (w *Worker) run(ctx context.Context) {
	defer func() {
		w.debouncer.Reset()
		if err := w.source.Close(); err != nil {
			w.logger.Warn("error releasing capture source", zap.Error(err))
		}
		w.setState(models.WorkerStopped)
		close(w.done)
	}()

	consecutiveFailures := 0
	consecutiveInvalid := 0

	for ctx.Err() == nil {
		frame, err := w.source.Read()
		if err != nil || frame.Empty() {
			consecutiveFailures++
			if consecutiveFailures%10 == 1 {
				w.logger.Warn("failed to read frame",
					zap.Int("consecutive_failures", consecutiveFailures),
					zap.Int("max", w.deps.Pipeline.MaxReadFailures),
					zap.Error(err),
				)
			}
			if consecutiveFailures >= w.deps.Pipeline.MaxReadFailures {
				w.logger.Error("too many consecutive read failures, stopping",
					zap.Error(fmt.Errorf("%w: %d consecutive read failures", ErrStreamInterrupted, consecutiveFailures)),
				)
				return
			}
			if !sleepCtx(ctx, w.deps.Pipeline.ReadRetryDelay) {
				return
			}
			continue
		}
		consecutiveFailures = 0

		valid := w.deps.Validator.Validate(frame)
		if !valid {
			consecutiveInvalid++

			// Во время прогрева невалидные кадры не фатальны: они всё ещё
			// публикуются и считаются, чтобы стрим не вставал на шум старта
			if w.frameCount.Load() < w.deps.Pipeline.WarmupFrames {
				valid = true
			} else {
				if consecutiveInvalid == 1 {
					w.logger.Warn("receiving invalid frames, camera may be off or covered")
					w.setState(models.WorkerDegraded)
				}
				if consecutiveInvalid >= w.deps.Pipeline.MaxInvalidFrames {
					w.logger.Error("too many invalid frames, camera may be disconnected",
						zap.Error(fmt.Errorf("%w: %d consecutive invalid frames", ErrInvalidSignal, consecutiveInvalid)),
					)
					return
				}
				// Кадр всё равно публикуем, чтобы зритель видел деградацию
				w.publish(frame)
				if !sleepCtx(ctx, 100*time.Millisecond) {
					return
				}
				continue
			}
		}

		if valid && consecutiveInvalid > 0 {
			if consecutiveInvalid > 10 {
				w.logger.Info("receiving valid frames again")
			}
			consecutiveInvalid = 0
			if w.State() == models.WorkerDegraded {
				w.setState(models.WorkerRunning)
			}
		}

		frameCount := w.frameCount.Add(1)

		annotated := frame
		if frameCount > w.deps.Pipeline.StabilizationFrames &&
			frameCount%int64(w.deps.Pipeline.FrameSkip) == 0 {
			annotated = w.detectFrame(ctx, frame)
		}

		w.publish(annotated)
	}
}

// detectFrame гоняет один кадр через модель и постобработку; паника или
// ошибка инференса оставляет кадр неаннотированным и не прерывает цикл
func (w *Worker) detectFrame(ctx context.Context, frame *vision.Frame) (annotated *vision.Frame) {
	annotated = frame
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("panic in detection pipeline", zap.Any("panic", r))
		}
	}()

	input := frame
	scale := 1.0
	if size := w.deps.InferOpts.InputSize; size > 0 && frame.Width > size {
		newH := frame.Height * size / frame.Width
		input = vision.Resize(frame, size, newH)
		scale = float64(frame.Width) / float64(size)
	}

	jpegData, err := input.EncodeJPEG(inferJPEGQuality)
	if err != nil {
		w.logger.Error("encode frame for inference", zap.Error(err))
		return annotated
	}

	raw, err := w.deps.Model.Infer(ctx, jpegData, w.deps.InferOpts)
	if err != nil {
		w.logger.Error("inference failed", zap.Error(err))
		return annotated
	}
	if len(raw) == 0 {
		return annotated
	}

	processed, harmful := w.deps.Processor.Process(frame, raw, scale)
	annotated = processed

	for _, det := range harmful {
		w.handleHarmful(ctx, annotated, det)
	}
	return annotated
}

// handleHarmful — путь одной опасной детекции: снапшот, запись в стор,
// дебаунс, алерт. Снапшот и запись не зависят от исхода дебаунса.
func (w *Worker) handleHarmful(ctx context.Context, annotated *vision.Frame, det vision.ProcessedDetection) {
	w.detectionCount.Add(1)
	now := time.Now()

	var snapshotPath string
	if jpegData, err := vision.RenderSnapshot(annotated, w.camera.ID, det.Label, det.Confidence, now); err != nil {
		w.logger.Error("render snapshot", zap.Error(err))
	} else if path, err := w.deps.Snapshots.SaveSnapshot(ctx, w.camera.ID, det.Label, jpegData); err != nil {
		w.logger.Error("save snapshot", zap.Error(err))
	} else {
		snapshotPath = path
	}

	detectionID, err := w.deps.Store.LogDetection(ctx, &models.Detection{
		CameraID:     w.camera.ID,
		Timestamp:    now,
		Label:        det.Label,
		Confidence:   det.Confidence,
		Box:          det.Box,
		SnapshotPath: snapshotPath,
	})
	if err != nil {
		// Состояние дебаунса не откатывается: консистентность окна важнее
		// гарантированной записи каждой детекции
		w.logger.Error("log detection", zap.String("label", det.Label), zap.Error(err))
	}

	if !w.debouncer.ShouldAlert(det.Label, det.Confidence, w.frameCount.Load()) {
		return
	}
	if err != nil {
		w.logger.Warn("alert approved but detection was not persisted, dropping alert",
			zap.String("label", det.Label))
		return
	}

	w.raiseAlert(ctx, detectionID, det, snapshotPath, now)
}

func (w *Worker) raiseAlert(ctx context.Context, detectionID int64, det vision.ProcessedDetection, snapshotPath string, now time.Time) {
	severity := models.SeverityForConfidence(det.Confidence)

	alertID, err := w.deps.Store.CreateAlert(ctx, &models.Alert{
		DetectionID: detectionID,
		CameraID:    w.camera.ID,
		AlertType:   det.Label,
		Severity:    severity,
		Message:     fmt.Sprintf("%s detected with %s severity", det.Label, severity),
	})
	if err != nil {
		w.logger.Error("create alert", zap.String("label", det.Label), zap.Error(err))
		return
	}

	w.deps.Dispatcher.PublishAlert(models.AlertPayload{
		AlertID:      alertID,
		CameraID:     w.camera.ID,
		CameraName:   w.camera.Name,
		Location:     w.camera.Location,
		Label:        det.Label,
		Confidence:   det.Confidence,
		Severity:     severity,
		Timestamp:    now,
		SnapshotPath: snapshotPath,
	})

	w.logger.Info("alert raised",
		zap.Int64("alert_id", alertID),
		zap.String("label", det.Label),
		zap.Float64("confidence", det.Confidence),
		zap.String("severity", string(severity)),
	)
}

// publish перекладывает указатель на последний кадр; писатель не ждёт
// читателей, читатели получают копию
func (w *Worker) publish(frame *vision.Frame) {
	w.frameMu.Lock()
	w.latestFrame = frame
	w.frameMu.Unlock()
}

// LatestFrame возвращает копию последнего опубликованного кадра либо nil
func (w *Worker) LatestFrame() *vision.Frame {
	w.frameMu.Lock()
	defer w.frameMu.Unlock()
	return w.latestFrame.Clone()
}

// Stop ставит флаг остановки и ждёт выхода цикла ограниченное время.
// Не уложившийся в таймаут воркер логируется, но не добивается: утечка
// ресурсов тут осознанный, задокументированный компромисс.
func (w *Worker) Stop() {
	w.logger.Info("stopping camera worker")

	w.mu.Lock()
	cancel := w.cancel
	state := w.state
	w.mu.Unlock()

	if cancel == nil || state == models.WorkerCreated {
		w.setState(models.WorkerStopped)
		return
	}
	cancel()

	select {
	case <-w.done:
		w.logger.Info("camera worker stopped")
	case <-time.After(w.deps.Pipeline.StopTimeout):
		w.logger.Warn("camera worker did not stop within timeout",
			zap.Duration("timeout", w.deps.Pipeline.StopTimeout))
	}
}

// Done закрывается после полного выхода цикла обработки
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
