package vision

// Resize возвращает копию кадра в новом размере (ближайший сосед).
func Resize(f *Frame, width, height int) *Frame {
	if f.Empty() || width <= 0 || height <= 0 {
		return NewFrame(0, 0)
	}
	if width == f.Width && height == f.Height {
		return f.Clone()
	}
	out := NewFrame(width, height)
	for y := 0; y < height; y++ {
		srcY := y * f.Height / height
		for x := 0; x < width; x++ {
			srcX := x * f.Width / width
			r, g, b := f.At(srcX, srcY)
			out.Set(x, y, r, g, b)
		}
	}
	return out
}
