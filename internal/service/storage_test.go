package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chochanguk/Yoribogo/server/config"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3StoragePut(t *testing.T) {
	client := &fakeS3{}
	storage := NewS3StorageWithClient(client, &config.S3Config{BucketName: "recipes", Region: "ap-northeast-2"})

	url, err := storage.Put(context.Background(), "recipe-images/a.png", pngBytes, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://recipes.s3.ap-northeast-2.amazonaws.com/recipe-images/a.png", url)
	assert.Equal(t, "recipes", aws.ToString(client.input.Bucket))
	assert.Equal(t, "recipe-images/a.png", aws.ToString(client.input.Key))
	assert.Equal(t, "image/png", aws.ToString(client.input.ContentType))
	assert.Equal(t, pngBytes, client.body)
}

func TestS3StoragePutError(t *testing.T) {
	storage := NewS3StorageWithClient(&fakeS3{err: errors.New("access denied")}, &config.S3Config{BucketName: "recipes"})
	_, err := storage.Put(context.Background(), "k", nil, "image/png")
	assert.ErrorContains(t, err, "access denied")
}
