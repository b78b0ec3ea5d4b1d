package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/sentryvision/sentinel/internal/models"
)

// InferOptions — параметры одного вызова модели
type InferOptions struct {
	ConfidenceThreshold float64
	IOUThreshold        float64
	MaxDetections       int
	InputSize           int
}

// Model — граница с детектором. Дальше по конвейеру ходят только
// плоские записи RawDetection, никаких объектов модели.
type Model interface {
	Infer(ctx context.Context, jpegFrame []byte, opts InferOptions) ([]models.RawDetection, error)
}

// Client отправляет кадры на HTTP-сервис инференса. Экземпляр один на весь
// процесс и разделяется всеми воркерами: под капотом только http.Client,
// поэтому конкурентные вызовы Infer безопасны и не сериализуются.
type Client struct {
	url    string
	client *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		url: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Infer отправляет изображение JPEG байтами на /predict и разбирает список детекций
func (c *Client) Infer(ctx context.Context, jpegFrame []byte, opts InferOptions) ([]models.RawDetection, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", "image/jpeg")

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(jpegFrame); err != nil {
		return nil, fmt.Errorf("write image data: %w", err)
	}

	writeField := func(name, value string) {
		if err == nil {
			err = writer.WriteField(name, value)
		}
	}
	writeField("conf", strconv.FormatFloat(opts.ConfidenceThreshold, 'f', -1, 64))
	writeField("iou", strconv.FormatFloat(opts.IOUThreshold, 'f', -1, 64))
	writeField("max_det", strconv.Itoa(opts.MaxDetections))
	writeField("imgsz", strconv.Itoa(opts.InputSize))
	if err != nil {
		return nil, fmt.Errorf("write form fields: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/predict", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bad status: %s, error: %s", resp.Status, bodyBytes)
	}

	var detections []models.RawDetection
	if err := json.NewDecoder(resp.Body).Decode(&detections); err != nil {
		return nil, fmt.Errorf("decode detections: %w", err)
	}

	return detections, nil
}
