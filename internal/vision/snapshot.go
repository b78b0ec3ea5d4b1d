package vision

import (
	"fmt"
	"strings"
	"time"
)

const snapshotJPEGQuality = 95

// RenderSnapshot готовит кадр улики: копия аннотированного кадра с шапкой
// (камера и время) и красным баннером тревоги внизу. Возвращает JPEG.
// Снимок делается для каждой опасной детекции независимо от того,
// будет ли по ней поднят алерт.
func RenderSnapshot(annotated *Frame, cameraID int64, label string, confidence float64, ts time.Time) ([]byte, error) {
	if annotated.Empty() {
		return nil, ErrEmptyFrame
	}
	snap := annotated.Clone()
	w, h := snap.Width, snap.Height

	// Полупрозрачная шапка с камерой и временем
	BlendRect(snap, 0, 0, w, 40, ColorBlack, 0.6)
	header := fmt.Sprintf("Camera %d | %s", cameraID, ts.Format("2006-01-02 15:04:05"))
	DrawText(snap, 10, 25, header, ColorWhite)

	// Баннер тревоги внизу кадра
	bannerY := h - 50
	FillRect(snap, 0, bannerY, w, h, ColorRed)
	alertText := fmt.Sprintf("ALERT: %s DETECTED - Confidence: %.1f%%",
		strings.ToUpper(label), confidence*100)
	textX := (w - TextWidth(alertText)) / 2
	if textX < 0 {
		textX = 0
	}
	DrawText(snap, textX, bannerY+30, alertText, ColorWhite)

	return snap.EncodeJPEG(snapshotJPEGQuality)
}
