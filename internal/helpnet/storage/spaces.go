package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/metrics"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/types"
	"github.com/unstuck-ai/helpnet-backend/pkg/logging"
)

// Uploader publishes a local file and returns a publicly reachable URL.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

type SpacesConfig struct {
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
}

// putObjectAPI is the slice of the S3 client Upload needs.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// SpacesClient uploads screenshots to a DigitalOcean Spaces bucket. Spaces
// speaks the S3 API, so the client is a plain S3 client pointed at the
// regional Spaces endpoint.
type SpacesClient struct {
	client putObjectAPI
	region string
	bucket string
	logger logging.Logger
}

func NewSpacesClient(ctx context.Context, cfg SpacesConfig, logger logging.Logger) (*SpacesClient, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("spaces credentials are required")
	}
	if cfg.Region == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("spaces region and bucket are required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("loading spaces credentials: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.digitaloceanspaces.com", cfg.Region)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &SpacesClient{
		client: client,
		region: cfg.Region,
		bucket: cfg.Bucket,
		logger: logger,
	}, nil
}

// Upload stores the file under a random key with a public-read ACL and
// returns its public URL.
func (c *SpacesClient) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return "", &types.UploadError{Path: localPath, Err: err}
	}
	defer f.Close()

	key := objectKey(localPath)
	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        f,
		ACL:         s3types.ObjectCannedACLPublicRead,
		ContentType: aws.String(contentTypeFor(localPath)),
	})
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return "", &types.UploadError{Path: localPath, Err: err}
	}

	metrics.UploadsTotal.WithLabelValues("ok").Inc()
	url := c.PublicURL(key)
	c.logger.Infof("uploaded %s to %s", localPath, url)
	return url, nil
}

// PublicURL returns the bucket-subdomain URL for an object key.
func (c *SpacesClient) PublicURL(key string) string {
	return fmt.Sprintf("https://%s.%s.digitaloceanspaces.com/%s", c.bucket, c.region, key)
}

func objectKey(localPath string) string {
	ext := strings.ToLower(filepath.Ext(localPath))
	if ext == "" {
		ext = ".png"
	}
	return fmt.Sprintf("screenshots/%s%s", uuid.NewString(), ext)
}

func contentTypeFor(localPath string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(localPath))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
