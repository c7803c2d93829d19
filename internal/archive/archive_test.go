package archive

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/bizcase/internal/config"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	if in.Body != nil {
		f.body, _ = io.ReadAll(in.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3ArchiverPut(t *testing.T) {
	fake := &fakeS3{}
	a := NewS3Archiver(fake, "bizcase-exports", "reports/")

	loc, err := a.Put(context.Background(), "rep-1/plan.pdf", []byte("%PDF"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "s3://bizcase-exports/reports/rep-1/plan.pdf", loc)
	assert.Equal(t, "bizcase-exports", aws.ToString(fake.input.Bucket))
	assert.Equal(t, "reports/rep-1/plan.pdf", aws.ToString(fake.input.Key))
	assert.Equal(t, "application/pdf", aws.ToString(fake.input.ContentType))
	assert.Equal(t, int64(4), aws.ToInt64(fake.input.ContentLength))
	assert.Equal(t, []byte("%PDF"), fake.body)
}

func TestS3ArchiverPutError(t *testing.T) {
	a := NewS3Archiver(&fakeS3{err: errors.New("AccessDenied")}, "b", "")
	_, err := a.Put(context.Background(), "k.docx", []byte("x"), "application/octet-stream")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://b/k.docx")
	assert.Contains(t, err.Error(), "AccessDenied")
}

func TestNewWithoutBucketIsNop(t *testing.T) {
	a, err := New(context.Background(), config.ArchiveConfig{Region: "us-east-1"})
	require.NoError(t, err)
	assert.False(t, Enabled(a))
	loc, err := a.Put(context.Background(), "k", nil, "")
	require.NoError(t, err)
	assert.Empty(t, loc)
	assert.True(t, Enabled(NewS3Archiver(&fakeS3{}, "b", "")))
	assert.False(t, Enabled(nil))
}
