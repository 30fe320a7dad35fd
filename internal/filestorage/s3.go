// Package filestorage выгружает принятые файлы в S3‑совместимое хранилище (S3 или MinIO).
package filestorage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/magabrotheeeer/films-api/internal/config"
)

// KeyPrefix — префикс ключей объектов с загруженными файлами.
const KeyPrefix = "public/uploads/"

// Client выгружает файлы из локального каталога загрузок в бакет.
type Client struct {
	log       *slog.Logger
	s3Client  *s3.Client
	uploader  *manager.Uploader
	bucket    string
	region    string
	dir       string
	publicURL string
}

// New создаёт клиента хранилища. dir — каталог, куда middleware сохраняет файлы.
func New(ctx context.Context, log *slog.Logger, cfg config.S3, dir string) (*Client, error) {
	const op = "filestorage.New"

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = cfg.Endpoint
	}

	return &Client{
		log:       log,
		s3Client:  s3Client,
		uploader:  manager.NewUploader(s3Client),
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		dir:       dir,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// EnsureBucket создаёт бакет, если HeadBucket его не нашёл.
func (c *Client) EnsureBucket(ctx context.Context) error {
	const op = "filestorage.EnsureBucket"

	if _, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err == nil {
		return nil
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(c.bucket)}
	if c.region != "" && c.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.region),
		}
	}
	if _, err := c.s3Client.CreateBucket(ctx, input); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	c.log.Info("bucket created", slog.String("bucket", c.bucket))
	return nil
}

// UploadFile выгружает файл fileName из каталога загрузок и возвращает его URL.
func (c *Client) UploadFile(ctx context.Context, fileName string) (string, error) {
	const op = "filestorage.UploadFile"

	f, err := os.Open(filepath.Join(c.dir, filepath.Base(fileName)))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	key := KeyPrefix + filepath.Base(fileName)
	contentType := mime.TypeByExtension(filepath.Ext(fileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	out, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	c.log.Debug("file uploaded", slog.String("key", key))
	if c.publicURL == "" {
		return out.Location, nil
	}
	return fmt.Sprintf("%s/%s/%s", c.publicURL, c.bucket, key), nil
}
