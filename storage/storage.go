// Package storage keeps proof images on S3-compatible object storage
// (Cloudflare R2 in production).
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const (
	MaxFileBytes = 10 << 20
	MaxFiles     = 5
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

// Uploader is what the upload handler depends on.
type Uploader interface {
	Upload(ctx context.Context, prefix string, r io.Reader) (string, error)
}

type Options struct {
	AccountID     string
	AccessKeyID   string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
	// Endpoint overrides the R2 endpoint derived from AccountID.
	Endpoint string
}

type R2 struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	publicURL string
}

func NewR2(ctx context.Context, opts Options) (*R2, error) {
	if opts.AccessKeyID == "" || opts.SecretKey == "" || opts.Bucket == "" {
		return nil, fmt.Errorf("R2 credentials or bucket not set")
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		if opts.AccountID == "" {
			return nil, fmt.Errorf("R2_ACCOUNT_ID not set")
		}
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", opts.AccountID)
	}
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load R2 config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	return &R2{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    opts.Bucket,
		publicURL: strings.TrimRight(opts.PublicBaseURL, "/"),
	}, nil
}

// Upload sniffs and stores one image under prefix and returns its URL.
// Files over MaxFileBytes or of a non-image type are refused.
func (s *R2) Upload(ctx context.Context, prefix string, r io.Reader) (string, error) {
	data, contentType, err := ReadImage(r)
	if err != nil {
		return "", err
	}
	key := path.Join(prefix, time.Now().UTC().Format("2006/01"), uuid.NewString()+allowedTypes[contentType])
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("R2 upload failed: %w", err)
	}
	if s.publicURL != "" {
		return s.publicURL + "/" + key, nil
	}
	presigned, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(po *s3.PresignOptions) {
		po.Expires = 7 * 24 * time.Hour
	})
	if err != nil {
		return "", fmt.Errorf("presign R2 URL: %w", err)
	}
	return presigned.URL, nil
}

func (s *R2) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("R2 delete failed: %w", err)
	}
	return nil
}

// ReadImage reads at most MaxFileBytes from r and returns the data with its
// sniffed content type.
func ReadImage(r io.Reader) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", ErrEmptyFile
	}
	if len(data) > MaxFileBytes {
		return nil, "", ErrTooLarge
	}
	contentType := sniff(data)
	if _, ok := allowedTypes[contentType]; !ok {
		return nil, "", ErrUnsupportedType
	}
	return data, contentType, nil
}

func sniff(data []byte) string {
	// http.DetectContentType does not know HEIC
	if len(data) >= 12 && string(data[4:8]) == "ftyp" {
		switch string(data[8:12]) {
		case "heic", "heix", "mif1", "msf1":
			return "image/heic"
		}
	}
	return http.DetectContentType(data)
}
