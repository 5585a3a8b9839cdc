package storage

import (
	"alcyxob/composer/internal/config"
	"alcyxob/composer/internal/domain"
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsCfg "github.com/aws/aws-sdk-go-v2/config" // Alias config to avoid clash
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// s3API is the subset of *s3.Client used by s3Storage.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	s3.ListObjectsV2APIClient
}

type presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// s3Storage implements the FileStorage interface using an S3-compatible backend.
type s3Storage struct {
	client        s3API
	presignClient presigner
	bucketName    string
	cacheMaxAge   time.Duration
	logger        *zap.Logger
}

// NewS3Storage creates a new S3 storage service instance.
func NewS3Storage(ctx context.Context, cfg config.S3Config, cacheMaxAge time.Duration, logger *zap.Logger) (FileStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []func(*awsCfg.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsCfg.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsCfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsSDKConfig, err := awsCfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	// Path-style addressing is required by most S3-compatible services (MinIO, Spaces).
	s3Client := s3.NewFromConfig(awsSDKConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info("s3 storage initialized",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.BucketName))

	return &s3Storage{
		client:        s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    cfg.BucketName,
		cacheMaxAge:   cacheMaxAge,
		logger:        logger,
	}, nil
}

func (s *s3Storage) Save(ctx context.Context, key ObjectKey, r io.Reader, size int64, contentType string) error {
	if err := key.Validate(); err != nil {
		return err
	}
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key.Path()),
		Body:        r,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if s.cacheMaxAge > 0 {
		input.CacheControl = aws.String(cacheControlValue(s.cacheMaxAge))
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		s.logger.Error("s3 put failed", zap.String("key", key.Path()), zap.Error(err))
		return err
	}
	return nil
}

// Delete removes an object from the bucket. S3 reports success for missing keys.
func (s *s3Storage) Delete(ctx context.Context, key ObjectKey) error {
	if err := key.Validate(); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key.Path()),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil
		}
		s.logger.Error("s3 delete failed", zap.String("key", key.Path()), zap.Error(err))
		return err
	}
	s.logger.Debug("s3 object deleted", zap.String("key", key.Path()))
	return nil
}

func (s *s3Storage) List(ctx context.Context, t domain.MediaType) ([]string, error) {
	prefix := t.Dir() + "/"
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucketName),
		Prefix: aws.String(prefix),
	})

	names := []string{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			names = append(names, path.Base(name))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Serve redirects the client to a short-lived presigned GET URL.
func (s *s3Storage) Serve(w http.ResponseWriter, r *http.Request, key ObjectKey) error {
	if err := key.Validate(); err != nil {
		return ErrObjectNotFound
	}
	ctx := r.Context()

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key.Path()),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return ErrObjectNotFound
		}
		return err
	}

	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key.Path()),
	}, s3.WithPresignExpires(DefaultPresignedURLExpiry))
	if err != nil {
		s.logger.Error("s3 presign failed", zap.String("key", key.Path()), zap.Error(err))
		return err
	}

	// The redirect must not outlive the signature it points at.
	setCacheHeaders(w, min(s.cacheMaxAge, DefaultPresignedURLExpiry))
	http.Redirect(w, r, req.URL, http.StatusTemporaryRedirect)
	return nil
}
