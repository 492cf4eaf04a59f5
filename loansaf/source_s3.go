package loansaf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// S3Credentials carries static credentials for an S3-compatible endpoint.
// When AccessKeyID is empty the source falls back to the standard AWS
// environment variables.
type S3Credentials struct {
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key"`
	SessionToken    string `yaml:"session_token" json:"session_token"`
}

// S3SourceConfig describes a bucket of loan documents.
type S3SourceConfig struct {
	Endpoint        string         `yaml:"endpoint" json:"endpoint"`
	Bucket          string         `yaml:"bucket" json:"bucket"`
	Prefix          string         `yaml:"prefix" json:"prefix"`
	UseSSL          bool           `yaml:"use_ssl" json:"use_ssl"`
	Credentials     *S3Credentials `yaml:"credentials" json:"credentials"`
	IncludePatterns []string       `yaml:"include_patterns" json:"include_patterns"`
	ExcludePatterns []string       `yaml:"exclude_patterns" json:"exclude_patterns"`

	// StagingDir receives downloaded objects. Defaults to a temp dir.
	StagingDir string `yaml:"staging_dir" json:"staging_dir"`
}

// S3Source lists a bucket and stages each matching object locally so the
// extraction pipeline can open it like any other file.
type S3Source struct {
	config S3SourceConfig
	client *minio.Client
	logger *zap.Logger
}

func NewS3Source(config S3SourceConfig, logger *zap.Logger) (*S3Source, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var creds *credentials.Credentials
	if config.Credentials != nil && config.Credentials.AccessKeyID != "" {
		creds = credentials.NewStaticV4(
			config.Credentials.AccessKeyID,
			config.Credentials.SecretAccessKey,
			config.Credentials.SessionToken,
		)
	} else {
		creds = credentials.NewEnvAWS()
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	return &S3Source{config: config, client: client, logger: logger}, nil
}

func (s *S3Source) Type() string {
	return "s3"
}

func (s *S3Source) Traverse(ctx context.Context) (<-chan DocumentRef, <-chan error) {
	refs := make(chan DocumentRef)
	errs := make(chan error, 1)

	go func() {
		defer close(refs)
		defer close(errs)

		staging := s.config.StagingDir
		if staging == "" {
			dir, err := os.MkdirTemp("", "loantwin-s3-*")
			if err != nil {
				errs <- fmt.Errorf("staging dir: %w", err)
				return
			}
			staging = dir
		}

		objects := s.client.ListObjects(ctx, s.config.Bucket, minio.ListObjectsOptions{
			Prefix:    s.config.Prefix,
			Recursive: true,
		})

		for object := range objects {
			if object.Err != nil {
				errs <- fmt.Errorf("listing bucket %s: %w", s.config.Bucket, object.Err)
				return
			}
			if strings.HasSuffix(object.Key, "/") {
				continue
			}

			relPath := strings.TrimPrefix(object.Key, s.config.Prefix)
			relPath = strings.TrimPrefix(relPath, "/")
			if !selectPath(relPath, s.config.IncludePatterns, s.config.ExcludePatterns) {
				continue
			}

			localPath := filepath.Join(staging, filepath.FromSlash(relPath))
			if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
				errs <- fmt.Errorf("staging %s: %w", relPath, err)
				return
			}
			if err := s.client.FGetObject(ctx, s.config.Bucket, object.Key, localPath, minio.GetObjectOptions{}); err != nil {
				errs <- fmt.Errorf("downloading %s: %w", object.Key, err)
				return
			}

			s.logger.Debug("staged document from bucket",
				zap.String("key", object.Key),
				zap.String("local_path", localPath))

			ref := DocumentRef{
				Name:      relPath,
				LocalPath: localPath,
				Size:      object.Size,
			}
			select {
			case refs <- ref:
			case <-ctx.Done():
				return
			}
		}
	}()

	return refs, errs
}
