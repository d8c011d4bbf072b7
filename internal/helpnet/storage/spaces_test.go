package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/metrics"
	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/types"
	"github.com/unstuck-ai/helpnet-backend/pkg/logging"
)

func TestObjectKeyKeepsExtension(t *testing.T) {
	key := objectKey("/tmp/capture.PNG")
	assert.Contains(t, key, "screenshots/")
	assert.Contains(t, key, ".png")

	key = objectKey("/tmp/no-extension")
	assert.Contains(t, key, ".png")
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "image/png", contentTypeFor("shot.png"))
	assert.Equal(t, "image/jpeg", contentTypeFor("shot.jpg"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("shot.weird"))
}

type fakePutObject struct {
	input *s3.PutObjectInput
	err   error
}

func (f *fakePutObject) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestUploadRecordsOutcome(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, os.WriteFile(path, []byte("png bytes"), 0o600))

	fake := &fakePutObject{}
	c := &SpacesClient{client: fake, region: "sfo3", bucket: "helpnet-screenshots", logger: logging.NoopLogger{}}

	before := testutil.ToFloat64(metrics.UploadsTotal.WithLabelValues("ok"))
	url, err := c.Upload(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, url, "https://helpnet-screenshots.sfo3.digitaloceanspaces.com/screenshots/")
	require.NotNil(t, fake.input)
	assert.Equal(t, "helpnet-screenshots", aws.ToString(fake.input.Bucket))
	assert.Equal(t, "image/png", aws.ToString(fake.input.ContentType))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.UploadsTotal.WithLabelValues("ok")))
}

func TestUploadRecordsFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, os.WriteFile(path, []byte("png bytes"), 0o600))

	fake := &fakePutObject{err: errors.New("access denied")}
	c := &SpacesClient{client: fake, region: "sfo3", bucket: "helpnet-screenshots", logger: logging.NoopLogger{}}

	before := testutil.ToFloat64(metrics.UploadsTotal.WithLabelValues("error"))
	_, err := c.Upload(context.Background(), path)
	require.Error(t, err)
	var uploadErr *types.UploadError
	assert.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.UploadsTotal.WithLabelValues("error")))
}

func TestPublicURL(t *testing.T) {
	c := &SpacesClient{region: "sfo3", bucket: "helpnet-screenshots"}
	url := c.PublicURL("screenshots/abc.png")
	assert.Equal(t, "https://helpnet-screenshots.sfo3.digitaloceanspaces.com/screenshots/abc.png", url)
}
