package vision

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// RGB — цвет аннотации
type RGB struct {
	R, G, B uint8
}

var (
	ColorRed   = RGB{255, 0, 0}
	ColorGreen = RGB{0, 255, 0}
	ColorWhite = RGB{255, 255, 255}
	ColorBlack = RGB{0, 0, 0}
)

// frameImage adapts a Frame to draw.Image so the font rasterizer can
// write glyphs straight into the frame buffer.
type frameImage struct {
	f *Frame
}

func (fi frameImage) ColorModel() color.Model { return color.RGBAModel }
func (fi frameImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, fi.f.Width, fi.f.Height)
}

func (fi frameImage) At(x, y int) color.Color {
	r, g, b := fi.f.At(x, y)
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

func (fi frameImage) Set(x, y int, c color.Color) {
	r, g, b, _ := c.RGBA()
	fi.f.Set(x, y, uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

// DrawRect рисует рамку толщиной thickness. Координаты за пределами кадра
// молча обрезаются.
func DrawRect(f *Frame, x1, y1, x2, y2 int, c RGB, thickness int) {
	for t := 0; t < thickness; t++ {
		drawHLine(f, x1-t, x2+t, y1-t, c)
		drawHLine(f, x1-t, x2+t, y2+t, c)
		drawVLine(f, y1-t, y2+t, x1-t, c)
		drawVLine(f, y1-t, y2+t, x2+t, c)
	}
}

func drawHLine(f *Frame, x1, x2, y int, c RGB) {
	for x := x1; x <= x2; x++ {
		f.Set(x, y, c.R, c.G, c.B)
	}
}

func drawVLine(f *Frame, y1, y2, x int, c RGB) {
	for y := y1; y <= y2; y++ {
		f.Set(x, y, c.R, c.G, c.B)
	}
}

// FillRect закрашивает прямоугольник сплошным цветом
func FillRect(f *Frame, x1, y1, x2, y2 int, c RGB) {
	for y := y1; y < y2; y++ {
		for x := x1; x < x2; x++ {
			f.Set(x, y, c.R, c.G, c.B)
		}
	}
}

// BlendRect накладывает полупрозрачную заливку: alpha 0 — без изменений,
// alpha 1 — сплошной цвет.
func BlendRect(f *Frame, x1, y1, x2, y2 int, c RGB, alpha float64) {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	for y := y1; y < y2; y++ {
		for x := x1; x < x2; x++ {
			r, g, b := f.At(x, y)
			f.Set(x, y,
				uint8(float64(r)*(1-alpha)+float64(c.R)*alpha),
				uint8(float64(g)*(1-alpha)+float64(c.G)*alpha),
				uint8(float64(b)*(1-alpha)+float64(c.B)*alpha),
			)
		}
	}
}

// DrawText пишет строку базовым растровым шрифтом; (x, y) — левый край
// базовой линии.
func DrawText(f *Frame, x, y int, text string, c RGB) {
	d := font.Drawer{
		Dst:  frameImage{f},
		Src:  image.NewUniform(color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// TextWidth возвращает ширину строки в пикселях для базового шрифта
func TextWidth(text string) int {
	return font.MeasureString(basicfont.Face7x13, text).Ceil()
}

// TextHeight — высота строки базового шрифта
func TextHeight() int {
	return basicfont.Face7x13.Metrics().Height.Ceil()
}
