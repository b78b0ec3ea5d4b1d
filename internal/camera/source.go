package camera

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/sentryvision/sentinel/internal/vision"
)

// Ошибки жизненного цикла источника и воркера
var (
	// ErrSourceUnavailable — источник не открылся или не отдал ни одного
	// кадра на старте; фатально для запуска воркера
	ErrSourceUnavailable = errors.New("camera: source unavailable")
	// ErrStreamInterrupted — чтение из источника стабильно падает
	ErrStreamInterrupted = errors.New("camera: stream interrupted")
	// ErrInvalidSignal — источник читается, но кадры не проходят валидацию
	ErrInvalidSignal = errors.New("camera: invalid signal")
)

// Source — открытый источник кадров. Read блокируется до следующего кадра.
type Source interface {
	Read() (*vision.Frame, error)
	Close() error
}

// LocatorKind — вид источника после нормализации
type LocatorKind int

const (
	LocatorDevice LocatorKind = iota
	LocatorFile
	LocatorNetwork
)

// Locator — нормализованный адрес источника
type Locator struct {
	Kind        LocatorKind
	DeviceIndex int
	Address     string
}

// ParseLocator нормализует строку источника: целое число (включая
// каноническую строку "0") — индекс локального устройства, http/https —
// сетевой поток, остальное — путь к файлу.
func ParseLocator(raw string) (Locator, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Locator{}, fmt.Errorf("empty source locator")
	}
	if idx, err := strconv.Atoi(raw); err == nil {
		if idx < 0 {
			return Locator{}, fmt.Errorf("negative device index %d", idx)
		}
		return Locator{Kind: LocatorDevice, DeviceIndex: idx}, nil
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return Locator{Kind: LocatorNetwork, Address: raw}, nil
	}
	return Locator{Kind: LocatorFile, Address: raw}, nil
}

// Open открывает источник по строковому локатору
func Open(raw string) (Source, error) {
	loc, err := ParseLocator(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	switch loc.Kind {
	case LocatorDevice:
		return openDevice(loc.DeviceIndex)
	case LocatorNetwork:
		return openNetwork(loc.Address)
	default:
		return openFile(loc.Address)
	}
}

// streamSource читает MJPEG из байтового потока
type streamSource struct {
	rc      io.ReadCloser
	scanner *mjpegScanner
}

func (s *streamSource) Read() (*vision.Frame, error) {
	data, err := s.scanner.Next()
	if err != nil {
		return nil, fmt.Errorf("read mjpeg frame: %w", err)
	}
	return vision.DecodeJPEG(data)
}

func (s *streamSource) Close() error {
	return s.rc.Close()
}

// openDevice открывает локальное устройство захвата, отдающее MJPEG
func openDevice(index int) (Source, error) {
	path := fmt.Sprintf("/dev/video%d", index)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open device %s: %v", ErrSourceUnavailable, path, err)
	}
	return &streamSource{rc: f, scanner: newMJPEGScanner(f)}, nil
}

// fileSource читает MJPEG-файл и зацикливает его по EOF, имитируя живой поток
type fileSource struct {
	path    string
	f       *os.File
	scanner *mjpegScanner
}

func openFile(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open file %s: %v", ErrSourceUnavailable, path, err)
	}
	return &fileSource{path: path, f: f, scanner: newMJPEGScanner(f)}, nil
}

func (s *fileSource) Read() (*vision.Frame, error) {
	data, err := s.scanner.Next()
	if errors.Is(err, io.EOF) {
		if _, err := s.f.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind %s: %w", s.path, err)
		}
		s.scanner = newMJPEGScanner(s.f)
		data, err = s.scanner.Next()
		if err != nil {
			return nil, fmt.Errorf("read mjpeg frame: %w", err)
		}
		return vision.DecodeJPEG(data)
	}
	if err != nil {
		return nil, fmt.Errorf("read mjpeg frame: %w", err)
	}
	return vision.DecodeJPEG(data)
}

func (s *fileSource) Close() error {
	return s.f.Close()
}

// multipartSource читает кадры из HTTP-ответа multipart/x-mixed-replace
type multipartSource struct {
	body   io.ReadCloser
	reader *multipart.Reader
}

func (s *multipartSource) Read() (*vision.Frame, error) {
	part, err := s.reader.NextPart()
	if err != nil {
		return nil, fmt.Errorf("next stream part: %w", err)
	}
	data, err := io.ReadAll(io.LimitReader(part, maxFrameBytes))
	part.Close()
	if err != nil {
		return nil, fmt.Errorf("read stream part: %w", err)
	}
	return vision.DecodeJPEG(data)
}

func (s *multipartSource) Close() error {
	return s.body.Close()
}

// openNetwork подключается к сетевому MJPEG-потоку. Сервер может отдавать
// multipart/x-mixed-replace (типично для IP-камер) или сырой MJPEG.
func openNetwork(url string) (Source, error) {
	resp, err := http.Get(url) //nolint:bodyclose // закрывается источником
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", ErrSourceUnavailable, url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %s", ErrSourceUnavailable, url, resp.Status)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err == nil && strings.HasPrefix(mediaType, "multipart/") && params["boundary"] != "" {
		return &multipartSource{
			body:   resp.Body,
			reader: multipart.NewReader(resp.Body, params["boundary"]),
		}, nil
	}

	return &streamSource{rc: resp.Body, scanner: newMJPEGScanner(resp.Body)}, nil
}
