// Package avatar stores profile images in S3-compatible object storage and
// hands back their public URL.
package avatar

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Object identifies a stored image.
type Object struct {
	Key string
	URL string
}

// Upload describes an image to store.
type Upload struct {
	Folder      string
	Owner       string // used for a readable key prefix
	Ext         string
	ContentType string
	Size        int64
	Body        io.ReadSeeker
}

type Host interface {
	Upload(ctx context.Context, up Upload) (Object, error)
	Destroy(ctx context.Context, key string) error
}

type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// PublicURL is the base used to build object URLs; defaults to
	// Endpoint/Bucket.
	PublicURL string
}

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Host struct {
	client    objectAPI
	bucket    string
	publicURL string
}

func NewS3Host(ctx context.Context, cfg S3Config) (*S3Host, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return newS3Host(client, cfg.Bucket, publicURL), nil
}

func newS3Host(client objectAPI, bucket, publicURL string) *S3Host {
	return &S3Host{client: client, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}
}

func (h *S3Host) Upload(ctx context.Context, up Upload) (Object, error) {
	key := ObjectKey(up.Folder, up.Owner, up.Ext)

	_, err := h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(h.bucket),
		Key:           aws.String(key),
		Body:          up.Body,
		ContentLength: aws.Int64(up.Size),
		ContentType:   aws.String(up.ContentType),
	})
	if err != nil {
		return Object{}, fmt.Errorf("put avatar %s: %w", key, err)
	}
	return Object{Key: key, URL: h.publicURL + "/" + key}, nil
}

func (h *S3Host) Destroy(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete avatar %s: %w", key, err)
	}
	return nil
}

// ObjectKey builds "<folder>/<owner-slug>-<uuid><ext>".
func ObjectKey(folder, owner, ext string) string {
	name := uuid.NewString()
	if s := slug.Make(owner); s != "" {
		name = s + "-" + name
	}
	return path.Join(folder, name+strings.ToLower(ext))
}
