package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Client хранит снимки-улики в S3-совместимом хранилище
type Client struct {
	client *minio.Client
	bucket string
}

func NewMinioClient(endpoint, accessKey, secretKey, bucket string) (*Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &Client{client: client, bucket: bucket}, nil
}

// EnsureBucket создаёт бакет снапшотов, если его ещё нет
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", c.bucket, err)
	}
	if exists {
		return nil
	}
	if err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", c.bucket, err)
	}
	return nil
}

// SaveSnapshot кладёт JPEG-снимок в бакет и возвращает путь объекта.
// Ключ включает камеру, класс и время, uuid защищает от коллизий
// при нескольких детекциях в одном кадре.
func (c *Client) SaveSnapshot(ctx context.Context, cameraID int64, label string, jpegData []byte) (string, error) {
	ts := time.Now().Format("20060102_150405")
	safeLabel := strings.ReplaceAll(strings.ToLower(label), " ", "_")
	objectPath := fmt.Sprintf("cam%d/%s_%s_%s.jpg", cameraID, safeLabel, ts, uuid.NewString()[:8])

	_, err := c.client.PutObject(
		ctx,
		c.bucket,
		objectPath,
		bytes.NewReader(jpegData),
		int64(len(jpegData)),
		minio.PutObjectOptions{
			ContentType: "image/jpeg",
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to save snapshot to S3: %w", err)
	}

	return objectPath, nil
}

// CountSnapshots возвращает количество снимков камеры в бакете
func (c *Client) CountSnapshots(ctx context.Context, cameraID int64) (int, error) {
	count := 0
	objectCh := c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    fmt.Sprintf("cam%d/", cameraID),
		Recursive: true,
	})

	for object := range objectCh {
		if object.Err != nil {
			return 0, fmt.Errorf("error listing objects: %w", object.Err)
		}
		if strings.HasSuffix(object.Key, "/") {
			continue
		}
		count++
	}

	return count, nil
}
