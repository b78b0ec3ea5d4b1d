package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"
)

// Frame — кадр в памяти: упакованный RGB-буфер плюс метаданные размера.
// Кадр принадлежит захватившему его воркеру; наружу отдаются только копии.
type Frame struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8 // len = Width*Height*Channels, row-major
}

var ErrEmptyFrame = errors.New("vision: empty frame buffer")

// NewFrame allocates a zeroed RGB frame.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:    width,
		Height:   height,
		Channels: 3,
		Pix:      make([]uint8, width*height*3),
	}
}

// FromImage converts a decoded image into an owned RGB frame.
func FromImage(img image.Image) *Frame {
	bounds := img.Bounds()
	f := NewFrame(bounds.Dx(), bounds.Dy())
	idx := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			f.Pix[idx] = uint8(r >> 8)
			f.Pix[idx+1] = uint8(g >> 8)
			f.Pix[idx+2] = uint8(b >> 8)
			idx += 3
		}
	}
	return f
}

// DecodeJPEG decodes a JPEG image into a frame.
func DecodeJPEG(data []byte) (*Frame, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	return FromImage(img), nil
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	cp := &Frame{
		Width:    f.Width,
		Height:   f.Height,
		Channels: f.Channels,
		Pix:      make([]uint8, len(f.Pix)),
	}
	copy(cp.Pix, f.Pix)
	return cp
}

// Empty reports whether the frame has no pixel data.
func (f *Frame) Empty() bool {
	return f == nil || len(f.Pix) == 0
}

// Mean возвращает среднюю интенсивность по всем каналам
func (f *Frame) Mean() float64 {
	if f.Empty() {
		return 0
	}
	var sum uint64
	for _, v := range f.Pix {
		sum += uint64(v)
	}
	return float64(sum) / float64(len(f.Pix))
}

// StdDev возвращает среднеквадратичное отклонение интенсивности
func (f *Frame) StdDev() float64 {
	if f.Empty() {
		return 0
	}
	mean := f.Mean()
	var acc float64
	for _, v := range f.Pix {
		d := float64(v) - mean
		acc += d * d
	}
	return math.Sqrt(acc / float64(len(f.Pix)))
}

// At returns the RGB triple at (x, y). Out-of-bounds reads return zeros.
func (f *Frame) At(x, y int) (r, g, b uint8) {
	if f.Empty() || x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0, 0, 0
	}
	i := (y*f.Width + x) * f.Channels
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Set writes the RGB triple at (x, y). Out-of-bounds writes are dropped.
func (f *Frame) Set(x, y int, r, g, b uint8) {
	if f.Empty() || x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return
	}
	i := (y*f.Width + x) * f.Channels
	f.Pix[i] = r
	f.Pix[i+1] = g
	f.Pix[i+2] = b
}

// ToImage converts the frame back into a standard image.
func (f *Frame) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, b := f.At(x, y)
			i := img.PixOffset(x, y)
			img.Pix[i] = r
			img.Pix[i+1] = g
			img.Pix[i+2] = b
			img.Pix[i+3] = 0xff
		}
	}
	return img
}

// EncodeJPEG encodes the frame as JPEG with the given quality (1-100).
func (f *Frame) EncodeJPEG(quality int) ([]byte, error) {
	if f.Empty() {
		return nil, ErrEmptyFrame
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, f.ToImage(), &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
