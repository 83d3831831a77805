// Package artifact превращает бинарные результаты (tar-архивы export
// и get-archive) в значение, которое можно положить в payload.
//
// Небольшие архивы уходят в payload как есть. Архивы больше
// ARTIFACT_INLINE_LIMIT загружаются в S3, в payload остаётся ссылка.
package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/shaiso/dockflow/internal/docker"
)

// DefaultInlineLimit — 1 MiB.
const DefaultInlineLimit = 1 << 20

// Uploader — часть S3 API, которая нужна Store.
type Uploader interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config — настройки хранилища.
type Config struct {
	Bucket      string
	Prefix      string
	Region      string
	InlineLimit int64
}

// ConfigFromEnv читает ARTIFACT_BUCKET, ARTIFACT_PREFIX, AWS_REGION,
// ARTIFACT_INLINE_LIMIT.
func ConfigFromEnv() Config {
	cfg := Config{
		Bucket:      os.Getenv("ARTIFACT_BUCKET"),
		Prefix:      os.Getenv("ARTIFACT_PREFIX"),
		Region:      os.Getenv("AWS_REGION"),
		InlineLimit: DefaultInlineLimit,
	}
	if v := os.Getenv("ARTIFACT_INLINE_LIMIT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			cfg.InlineLimit = n
		}
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "dockflow"
	}
	return cfg
}

// Reference — payload для архива, загруженного в S3.
type Reference struct {
	Ref         string `json:"ref"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	Meta        any    `json:"meta,omitempty"`
}

// Store материализует Blob.
type Store struct {
	uploader Uploader
	cfg      Config
}

// New создаёт Store. uploader может быть nil: тогда всё отдаётся inline.
func New(uploader Uploader, cfg Config) *Store {
	if cfg.InlineLimit <= 0 {
		cfg.InlineLimit = DefaultInlineLimit
	}
	return &Store{uploader: uploader, cfg: cfg}
}

// NewS3 создаёт Store с клиентом S3 из стандартной цепочки AWS.
// Без ARTIFACT_BUCKET возвращает Store без загрузки.
func NewS3(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return New(nil, cfg), nil
	}

	var opts []func(*awscfg.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awscfg.WithRegion(cfg.Region))
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return New(s3.NewFromConfig(awsCfg), cfg), nil
}

// Materialize читает Blob целиком и закрывает его.
//
// Возвращает []byte, если архив не больше лимита или загрузка выключена,
// иначе Reference. key — уникальная часть пути объекта (обычно dispatch id).
func (s *Store) Materialize(ctx context.Context, key string, blob *docker.Blob) (any, error) {
	defer blob.Close()

	data, err := io.ReadAll(blob)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", blob.Name, err)
	}

	if s.uploader == nil || s.cfg.Bucket == "" || int64(len(data)) <= s.cfg.InlineLimit {
		return data, nil
	}

	objectKey := path.Join(s.cfg.Prefix, key, blob.Name)
	contentType := blob.ContentType
	if contentType == "" {
		contentType = "application/x-tar"
	}

	_, err = s.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("S3 PutObject %s/%s: %w", s.cfg.Bucket, objectKey, err)
	}

	return &Reference{
		Ref:         fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, objectKey),
		Size:        int64(len(data)),
		ContentType: contentType,
		Meta:        blob.Meta,
	}, nil
}
