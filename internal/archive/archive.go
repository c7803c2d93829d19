// Package archive uploads exported documents to object storage.
package archive

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joelkehle/bizcase/internal/config"
)

// Archiver stores a document and returns where it was put.
type Archiver interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// Enabled reports whether a is a real archive rather than NopArchiver.
func Enabled(a Archiver) bool {
	_, nop := a.(NopArchiver)
	return a != nil && !nop
}

// NopArchiver is used when no bucket is configured.
type NopArchiver struct{}

func (NopArchiver) Put(context.Context, string, []byte, string) (string, error) { return "", nil }

// PutObjectAPI is the part of the S3 client used here.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Archiver struct {
	client PutObjectAPI
	bucket string
	prefix string
}

func NewS3Archiver(client PutObjectAPI, bucket, prefix string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, prefix: prefix}
}

// New returns an S3Archiver using the default AWS credential chain, or a
// NopArchiver when cfg has no bucket.
func New(ctx context.Context, cfg config.ArchiveConfig) (Archiver, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return NopArchiver{}, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, eris.Wrap(err, "load aws config")
	}
	return NewS3Archiver(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), nil
}

func (a *S3Archiver) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	fullKey := path.Join(a.prefix, key)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(fullKey),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", eris.Wrapf(err, "put s3://%s/%s", a.bucket, fullKey)
	}
	loc := "s3://" + a.bucket + "/" + fullKey
	zap.L().Info("archived export", zap.String("location", loc), zap.Int("bytes", len(body)))
	return loc, nil
}
