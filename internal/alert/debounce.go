package alert

import (
	"time"

	"go.uber.org/zap"
)

// Options — пороги дебаунса. Нулевые значения заменяются дефолтами,
// чтобы воркер нельзя было собрать с выключенными проверками по ошибке.
type Options struct {
	ConfidenceThreshold float64
	Cooldown            time.Duration
	ConsistencyWindow   time.Duration
	MinConsistentHits   int
	MinStableFrames     int64
}

func (o Options) withDefaults() Options {
	if o.ConfidenceThreshold == 0 {
		o.ConfidenceThreshold = 0.5
	}
	if o.Cooldown == 0 {
		o.Cooldown = 30 * time.Second
	}
	if o.ConsistencyWindow == 0 {
		o.ConsistencyWindow = 3 * time.Second
	}
	if o.MinConsistentHits == 0 {
		o.MinConsistentHits = 3
	}
	if o.MinStableFrames == 0 {
		o.MinStableFrames = 120
	}
	return o
}

// Debouncer решает, становится ли детекция алертом. Состояние процессное,
// принадлежит одному воркеру и не переживает его рестарт.
type Debouncer struct {
	opts      Options
	history   map[string][]time.Time // таймстемпы последних детекций по классам
	lastAlert map[string]time.Time   // время последнего алерта по классам
	now       func() time.Time
	logger    *zap.Logger
}

func NewDebouncer(opts Options, logger *zap.Logger) *Debouncer {
	return &Debouncer{
		opts:      opts.withDefaults(),
		history:   make(map[string][]time.Time),
		lastAlert: make(map[string]time.Time),
		now:       time.Now,
		logger:    logger,
	}
}

// ShouldAlert применяет все четыре условия по порядку: порог уверенности,
// стабилизация после старта, консистентность в скользящем окне, кулдаун.
// При одобрении обновляет метку кулдауна; история продолжает скользить.
func (d *Debouncer) ShouldAlert(label string, confidence float64, frameCount int64) bool {
	if confidence < d.opts.ConfidenceThreshold {
		d.logger.Debug("alert skipped: confidence below threshold",
			zap.String("label", label),
			zap.Float64("confidence", confidence),
			zap.Float64("threshold", d.opts.ConfidenceThreshold),
		)
		return false
	}

	if frameCount < d.opts.MinStableFrames {
		d.logger.Debug("alert skipped: camera still stabilizing",
			zap.String("label", label),
			zap.Int64("frame_count", frameCount),
			zap.Int64("required", d.opts.MinStableFrames),
		)
		return false
	}

	now := d.now()

	// Регистрируем детекцию и подрезаем окно
	hits := append(d.history[label], now)
	kept := hits[:0]
	for _, t := range hits {
		if now.Sub(t) < d.opts.ConsistencyWindow {
			kept = append(kept, t)
		}
	}
	d.history[label] = kept

	if len(kept) < d.opts.MinConsistentHits {
		d.logger.Debug("alert skipped: not enough consistent detections",
			zap.String("label", label),
			zap.Int("hits", len(kept)),
			zap.Int("required", d.opts.MinConsistentHits),
		)
		return false
	}

	if last, ok := d.lastAlert[label]; ok {
		if since := now.Sub(last); since < d.opts.Cooldown {
			d.logger.Debug("alert skipped: cooldown active",
				zap.String("label", label),
				zap.Duration("since_last", since),
				zap.Duration("cooldown", d.opts.Cooldown),
			)
			return false
		}
	}

	d.lastAlert[label] = now
	d.logger.Info("alert approved",
		zap.String("label", label),
		zap.Float64("confidence", confidence),
	)
	return true
}

// Reset сбрасывает историю и кулдауны. Вызывается при остановке воркера,
// чтобы рестарт не унаследовал чужое окно.
func (d *Debouncer) Reset() {
	d.history = make(map[string][]time.Time)
	d.lastAlert = make(map[string]time.Time)
}
