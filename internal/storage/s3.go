// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage uploads post cover images to S3-compatible object
// storage. It wraps the AWS SDK v2 and uses path-style addressing, which
// CEPH, MinIO and Hetzner require.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"probitcms/internal/apperr"
)

// MaxImageSize is the largest accepted cover image (5 MB).
const MaxImageSize = 5 << 20

// allowedImageTypes maps sniffed MIME types to the stored extension.
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Config holds the connection settings. Storage is disabled unless the
// endpoint and both keys are set.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string // optional CDN or custom domain for the bucket
}

// objectAPI is the part of the S3 client the uploader needs.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Client stores media in one public bucket.
type Client struct {
	s3        objectAPI
	bucket    string
	endpoint  string
	publicURL string
	now       func() time.Time
}

// New creates a storage client. Returns (nil, nil) if the endpoint or
// credentials are empty, allowing the app to start without storage.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, nil
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket is required when S3 is configured")
	}
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	s3Client := s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	})
	return newClient(s3Client, cfg.Bucket, endpoint, cfg.PublicURL), nil
}

func newClient(api objectAPI, bucket, endpoint, publicURL string) *Client {
	return &Client{
		s3:        api,
		bucket:    bucket,
		endpoint:  endpoint,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
	}
}

// UploadImage validates an image by its content, stores it under a fresh
// key and returns the public URL to use as a post's cover image.
func (c *Client) UploadImage(ctx context.Context, data []byte) (string, error) {
	const op = "storage.UploadImage"

	if len(data) == 0 {
		return "", apperr.Validation(op, "image", "image is empty")
	}
	if len(data) > MaxImageSize {
		return "", apperr.Validation(op, "image", "image must be 5 MB or smaller")
	}
	contentType := http.DetectContentType(data)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", apperr.Validation(op, "image", fmt.Sprintf("file type %q is not allowed", contentType))
	}

	now := c.now()
	key := fmt.Sprintf("covers/%d/%02d/%s%s", now.Year(), now.Month(), uuid.New(), ext)
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
		ACL:           s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", apperr.External(op, "storage", fmt.Errorf("s3 upload %s/%s: %w", c.bucket, key, err))
	}
	return c.FileURL(key), nil
}

// Delete removes the object behind a URL returned by UploadImage. URLs that
// do not point into the bucket are ignored.
func (c *Client) Delete(ctx context.Context, fileURL string) error {
	key, ok := c.KeyFromURL(fileURL)
	if !ok {
		return nil
	}
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s/%s: %w", c.bucket, key, err)
	}
	return nil
}

// FileURL returns the public URL for key. Uses the configured public URL
// if set, otherwise builds a path-style URL.
func (c *Client) FileURL(key string) string {
	if c.publicURL != "" {
		return c.publicURL + "/" + key
	}
	return c.endpoint + "/" + c.bucket + "/" + key
}

// KeyFromURL extracts the object key from a public file URL, or ("", false)
// if the URL doesn't belong to this storage.
func (c *Client) KeyFromURL(rawURL string) (string, bool) {
	prefixes := []string{c.endpoint + "/" + c.bucket + "/"}
	if c.publicURL != "" {
		prefixes = append([]string{c.publicURL + "/"}, prefixes...)
	}
	for _, prefix := range prefixes {
		if key, ok := strings.CutPrefix(rawURL, prefix); ok && key != "" && path.Clean(key) == key {
			return key, true
		}
	}
	return "", false
}
