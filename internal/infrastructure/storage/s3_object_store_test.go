package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"

	"polybot/internal/domain/entity"
)

type fakeS3 struct {
	objects map[string][]byte
	putErr  error
	getErr  error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3ObjectStore_PutGet(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{}}
	store := NewS3ObjectStore(client, "images")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "img.jpg", []byte("data")))
	require.Contains(t, client.objects, "images/img.jpg")

	data, err := store.Get(ctx, "img.jpg")
	require.NoError(t, err)
	require.Equal(t, []byte("data"), data)
}

func TestS3ObjectStore_NoSuchKey(t *testing.T) {
	store := NewS3ObjectStore(&fakeS3{objects: map[string][]byte{}}, "images")

	_, err := store.Get(context.Background(), "missing.jpg")
	require.ErrorIs(t, err, entity.ErrNotFound)
}

func TestS3ObjectStore_Errors(t *testing.T) {
	boom := errors.New("connection reset")
	store := NewS3ObjectStore(&fakeS3{objects: map[string][]byte{}, putErr: boom, getErr: boom}, "images")
	ctx := context.Background()

	err := store.Put(ctx, "img.jpg", []byte("data"))
	require.ErrorIs(t, err, boom)

	_, err = store.Get(ctx, "img.jpg")
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, entity.ErrNotFound)
}
