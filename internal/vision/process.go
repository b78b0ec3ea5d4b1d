package vision

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/sentryvision/sentinel/internal/models"
)

// ProcessedDetection — детекция после валидации и обратного масштабирования
type ProcessedDetection struct {
	Label      string
	Confidence float64
	Box        models.BoundingBox
	Harmful    bool
}

// Processor превращает сырой вывод модели в отфильтрованные детекции
// и аннотированный кадр.
type Processor struct {
	minArea    int
	edgeMargin int
	harmful    map[string]struct{}
	logger     *zap.Logger
}

// NewProcessor builds a post-processor. harmfulClasses are matched
// case-insensitively against model labels.
func NewProcessor(minArea, edgeMargin int, harmfulClasses []string, logger *zap.Logger) *Processor {
	return &Processor{
		minArea:    minArea,
		edgeMargin: edgeMargin,
		harmful: lo.SliceToMap(harmfulClasses, func(c string) (string, struct{}) {
			return strings.ToLower(c), struct{}{}
		}),
		logger: logger,
	}
}

// Process масштабирует рамки обратно к разрешению кадра, отбрасывает мусорные
// детекции, рисует рамки и возвращает только опасные детекции. Кадр-аргумент
// не изменяется: аннотации наносятся на копию.
func (p *Processor) Process(frame *Frame, raw []models.RawDetection, scale float64) (*Frame, []ProcessedDetection) {
	annotated := frame.Clone()
	var harmful []ProcessedDetection

	for _, det := range raw {
		if len(det.Box) != 4 {
			continue
		}
		box := models.BoundingBox{
			X1: int(det.Box[0] * scale),
			Y1: int(det.Box[1] * scale),
			X2: int(det.Box[2] * scale),
			Y2: int(det.Box[3] * scale),
		}
		if !p.validBox(box, frame.Width, frame.Height) {
			continue
		}
		if box.Area() < p.minArea {
			p.logger.Debug("skipping small detection",
				zap.String("label", det.Label),
				zap.Int("area", box.Area()),
			)
			continue
		}

		isHarmful := p.isHarmful(det.Label)
		p.drawDetection(annotated, box, det.Label, det.Confidence, isHarmful)

		if isHarmful {
			harmful = append(harmful, ProcessedDetection{
				Label:      det.Label,
				Confidence: det.Confidence,
				Box:        box,
				Harmful:    true,
			})
		}
	}

	return annotated, harmful
}

func (p *Processor) isHarmful(label string) bool {
	_, ok := p.harmful[strings.ToLower(label)]
	return ok
}

// validBox: рамка внутри кадра, положительные размеры, не вся площадь
// кадра, не прижата к краю.
func (p *Processor) validBox(b models.BoundingBox, width, height int) bool {
	if !b.InsideFrame(width, height) {
		return false
	}
	if b.X2 <= b.X1 || b.Y2 <= b.Y1 {
		return false
	}
	if b.Area() > width*height*9/10 {
		return false
	}
	// Детекции у самого края кадра почти всегда артефакты
	if b.X1 < p.edgeMargin || b.Y1 < p.edgeMargin ||
		b.X2 > width-p.edgeMargin || b.Y2 > height-p.edgeMargin {
		return false
	}
	return true
}

func (p *Processor) drawDetection(f *Frame, box models.BoundingBox, label string, conf float64, harmful bool) {
	color := ColorGreen
	thickness := 2
	if harmful {
		color = ColorRed
		thickness = 3
	}

	DrawRect(f, box.X1, box.Y1, box.X2, box.Y2, color, thickness)

	text := fmt.Sprintf("%s %.2f", label, conf)
	textW := TextWidth(text)
	textH := TextHeight()

	// Подложка под подпись, прижата к верхней грани рамки
	FillRect(f, box.X1, box.Y1-textH-6, box.X1+textW+10, box.Y1, color)
	DrawText(f, box.X1+5, box.Y1-5, text, ColorWhite)
}
