package camera

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// jpegSOI/jpegEOI — маркеры начала и конца кадра в MJPEG-потоке
var (
	jpegSOI = []byte{0xff, 0xd8}
	jpegEOI = []byte{0xff, 0xd9}
)

const maxFrameBytes = 8 << 20 // защитный потолок на один кадр

// mjpegScanner вырезает отдельные JPEG-кадры из непрерывного байтового
// потока (V4L2-устройство, файл или сырой сетевой стрим). Один сканер
// обслуживает все виды источников.
type mjpegScanner struct {
	r   *bufio.Reader
	buf bytes.Buffer
}

func newMJPEGScanner(r io.Reader) *mjpegScanner {
	return &mjpegScanner{r: bufio.NewReaderSize(r, 64<<10)}
}

// Next возвращает байты следующего полного JPEG-кадра
func (s *mjpegScanner) Next() ([]byte, error) {
	if err := s.seekSOI(); err != nil {
		return nil, err
	}

	s.buf.Reset()
	s.buf.Write(jpegSOI)

	var prev byte
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return nil, err
		}
		s.buf.WriteByte(b)
		if prev == jpegEOI[0] && b == jpegEOI[1] {
			frame := make([]byte, s.buf.Len())
			copy(frame, s.buf.Bytes())
			return frame, nil
		}
		if s.buf.Len() > maxFrameBytes {
			return nil, fmt.Errorf("mjpeg frame exceeds %d bytes without EOI", maxFrameBytes)
		}
		prev = b
	}
}

// seekSOI пропускает байты до ближайшего маркера начала кадра
func (s *mjpegScanner) seekSOI() error {
	var prev byte
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return err
		}
		if prev == jpegSOI[0] && b == jpegSOI[1] {
			return nil
		}
		prev = b
	}
}
