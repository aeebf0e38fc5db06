package storage

import (
	"context"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/YuminosukeSato/mlkit/pkg/errors"
	"github.com/YuminosukeSato/mlkit/pkg/log"
)

// S3Config locates a bucket on an S3 compatible service.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint" validate:"required"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket" validate:"required"`
	Prefix          string `mapstructure:"prefix"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// S3 stores artifacts as objects under Prefix in a bucket.
type S3 struct {
	Client *minio.Client
	Bucket string
	Prefix string
}

// NewS3 creates a client for cfg. No request is made until the first
// Create or Open.
func NewS3(cfg S3Config) (*S3, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create s3 client")
	}
	return &S3{Client: client, Bucket: cfg.Bucket, Prefix: cfg.Prefix}, nil
}

func (s *S3) key(name string) string {
	return path.Join(s.Prefix, name)
}

// Open fetches an object. A missing object is reported as ErrNotExist.
func (s *S3) Open(name string) (io.ReadCloser, error) {
	obj, err := s.Client.GetObject(context.Background(), s.Bucket, s.key(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == minio.NoSuchKey {
			return nil, errors.Wrapf(ErrNotExist, "s3 object %s", s.key(name))
		}
		return nil, errors.WithStack(err)
	}
	return obj, nil
}

// Create streams writes to an upload that completes when the writer is closed.
func (s *S3) Create(name string) (io.WriteCloser, error) {
	key := s.key(name)
	pr, pw := io.Pipe()
	w := &s3Writer{PipeWriter: pw, done: make(chan error, 1)}
	go func() {
		_, err := s.Client.PutObject(context.Background(), s.Bucket, key, pr, -1, minio.PutObjectOptions{
			ContentType: "application/octet-stream",
		})
		if err != nil {
			log.GetLoggerWithName("storage").Error("failed to upload artifact", err, log.ArtifactKey, key)
		}
		_ = pr.CloseWithError(err)
		w.done <- err
	}()
	return w, nil
}

type s3Writer struct {
	*io.PipeWriter
	done chan error
}

func (w *s3Writer) Close() error {
	if err := w.PipeWriter.Close(); err != nil {
		return errors.WithStack(err)
	}
	if err := <-w.done; err != nil {
		return errors.Wrap(err, "upload artifact")
	}
	return nil
}
