// Package source loads TIFF input from a local file, an http(s) URL or an
// s3://bucket/key object.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/tingold/gotiff"
	"github.com/valyala/fasthttp"
)

// ErrNotFound is returned when the input does not exist.
var ErrNotFound = errors.New("source: not found")

// DefaultMaxSize bounds the bytes loaded for one input.
const DefaultMaxSize = gotiff.DefaultMaxFetchSize

// S3Config holds the endpoint and credentials for s3:// inputs.
// Empty credentials fall back to the AWS shared configuration.
type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Config controls how inputs are fetched.
type Config struct {
	HTTPTimeout time.Duration
	MaxSize     int64
	S3          S3Config

	// HTTPClient overrides the client built from HTTPTimeout.
	HTTPClient *fasthttp.Client
	// S3Client overrides the client built from S3.
	S3Client S3API
}

// S3API is the subset of the S3 client used to fetch objects.
type S3API interface {
	GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
}

// Kind reports which loader handles input.
func Kind(input string) string {
	switch {
	case strings.HasPrefix(input, "http://"), strings.HasPrefix(input, "https://"):
		return "http"
	case strings.HasPrefix(input, "s3://"):
		return "s3"
	default:
		return "file"
	}
}

// Load reads input fully into memory.
func Load(ctx context.Context, input string, cfg Config) ([]byte, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}

	switch Kind(input) {
	case "http":
		return loadHTTP(input, cfg)
	case "s3":
		return loadS3(ctx, input, cfg)
	default:
		return loadFile(input, cfg.MaxSize)
	}
}

func loadFile(path string, maxSize int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return readLimited(f, maxSize)
}

func loadHTTP(url string, cfg Config) ([]byte, error) {
	client := cfg.HTTPClient
	if client == nil && cfg.HTTPTimeout > 0 {
		client = &fasthttp.Client{
			ReadTimeout:  cfg.HTTPTimeout,
			WriteTimeout: cfg.HTTPTimeout,
		}
	}

	rr := gotiff.NewHTTPRangeReader(url, client)
	buf, err := rr.ReadAll(cfg.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	return buf, nil
}

// ParseS3URL splits s3://bucket/key.
func ParseS3URL(input string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(input, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 URL: %s", input)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 URL must be s3://bucket/key: %s", input)
	}
	return bucket, key, nil
}

func loadS3(ctx context.Context, input string, cfg Config) ([]byte, error) {
	bucket, key, err := ParseS3URL(input)
	if err != nil {
		return nil, err
	}

	svc := cfg.S3Client
	if svc == nil {
		sess, err := newSession(cfg.S3)
		if err != nil {
			return nil, err
		}
		svc = s3.New(sess)
	}

	result, err := svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, input)
		}
		return nil, fmt.Errorf("failed to get %s: %w", input, err)
	}
	defer result.Body.Close()

	if result.ContentLength != nil && *result.ContentLength > cfg.MaxSize {
		return nil, fmt.Errorf("object size %d exceeds limit %d", *result.ContentLength, cfg.MaxSize)
	}
	return readLimited(result.Body, cfg.MaxSize)
}

func newSession(cfg S3Config) (*session.Session, error) {
	awsCfg := &aws.Config{
		S3ForcePathStyle: aws.Bool(true),
	}
	if cfg.Region != "" {
		awsCfg.Region = aws.String(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 session: %w", err)
	}
	return sess, nil
}

func readLimited(r io.Reader, maxSize int64) ([]byte, error) {
	buf, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if int64(len(buf)) > maxSize {
		return nil, fmt.Errorf("input exceeds limit %d", maxSize)
	}
	return buf, nil
}
