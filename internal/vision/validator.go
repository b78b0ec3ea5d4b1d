package vision

// Validator отбраковывает вырожденные кадры до того, как они попадут в детекцию.
// Пороги по умолчанию намеренно мягкие: отсекается только полностью чёрный
// или полностью однородный сигнал (камера выключена либо закрыта крышкой).
type Validator struct {
	MinWidth     int
	MinHeight    int
	MinIntensity float64
	MinStdDev    float64
}

func NewValidator() *Validator {
	return &Validator{
		MinWidth:     50,
		MinHeight:    50,
		MinIntensity: 1,
		MinStdDev:    2,
	}
}

// Validate проверяет качество кадра. Порядок проверок фиксирован:
// пустой буфер, размер, средняя интенсивность, дисперсия.
func (v *Validator) Validate(f *Frame) bool {
	if f.Empty() {
		return false
	}
	if f.Width < v.MinWidth || f.Height < v.MinHeight {
		return false
	}
	if f.Mean() < v.MinIntensity {
		return false
	}
	if f.StdDev() < v.MinStdDev {
		return false
	}
	return true
}
