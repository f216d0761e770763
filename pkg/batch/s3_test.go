package batch_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/docket/pkg/batch"
)

type fakeS3Client struct {
	gotBucket string
	gotKey    string
	body      []byte
	err       error
}

func (f *fakeS3Client) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gotBucket = aws.ToString(params.Bucket)
	f.gotKey = aws.ToString(params.Key)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.body))}, nil
}

func TestNewObjectSource(t *testing.T) {
	t.Parallel()

	t.Run("missing bucket error", func(t *testing.T) {
		t.Parallel()

		source, err := batch.NewObjectSource(context.Background(), batch.S3Config{Region: "us-east-1"})
		assert.ErrorIs(t, err, batch.ErrInvalidS3Config)
		assert.Nil(t, source)
	})

	t.Run("missing region error", func(t *testing.T) {
		t.Parallel()

		source, err := batch.NewObjectSource(context.Background(), batch.S3Config{Bucket: "judgments"})
		assert.ErrorIs(t, err, batch.ErrInvalidS3Config)
		assert.Nil(t, source)
	})
}

func TestObjectSource_Fetch(t *testing.T) {
	t.Parallel()

	cfg := batch.S3Config{Bucket: "judgments", Region: "us-east-1"}

	t.Run("returns object content", func(t *testing.T) {
		t.Parallel()

		client := &fakeS3Client{body: []byte(cleanFile)}
		source, err := batch.NewObjectSource(context.Background(), cfg, batch.WithS3Client(client))
		require.NoError(t, err)

		data, err := source.Fetch(context.Background(), "uploads/2024-06.csv")
		require.NoError(t, err)

		assert.Equal(t, []byte(cleanFile), data)
		assert.Equal(t, "judgments", client.gotBucket)
		assert.Equal(t, "uploads/2024-06.csv", client.gotKey)
	})

	t.Run("propagates client error", func(t *testing.T) {
		t.Parallel()

		clientErr := errors.New("access denied")
		client := &fakeS3Client{err: clientErr}
		source, err := batch.NewObjectSource(context.Background(), cfg, batch.WithS3Client(client))
		require.NoError(t, err)

		data, err := source.Fetch(context.Background(), "uploads/missing.csv")
		assert.ErrorIs(t, err, clientErr)
		assert.Contains(t, err.Error(), "s3://judgments/uploads/missing.csv")
		assert.Nil(t, data)
	})
}
