package inference

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/netguard/internal/common"
	"github.com/dmitrijs2005/netguard/internal/logging"
	"github.com/dmitrijs2005/netguard/internal/netx"
)

const s3Scheme = "s3://"

// objectGetter is the part of *s3.Client the loader needs.
type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3Client = func(cfg aws.Config, optFns ...func(*s3.Options)) objectGetter {
		return s3.NewFromConfig(cfg, optFns...)
	}

	openFile = func(path string) (io.ReadCloser, error) {
		return os.Open(path)
	}

	openURL = func(ctx context.Context, url string) (io.ReadCloser, error) {
		return netx.DownloadFromURL(ctx, nil, url)
	}
)

// S3Config points the loader at an S3-compatible object store.
type S3Config struct {
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

// Loader fetches the model bundle once and caches it for the life of the
// process. Failed loads are not cached, so a later call retries.
type Loader struct {
	path string
	s3   S3Config
	log  logging.Logger

	mu     sync.Mutex
	bundle *Bundle
}

func NewLoader(path string, s3cfg S3Config, log logging.Logger) *Loader {
	return &Loader{path: path, s3: s3cfg, log: log.With("module", "inference")}
}

// Load returns the cached bundle, loading it on first use. Every failure is
// reported as common.ErrModelUnavailable.
func (l *Loader) Load(ctx context.Context) (*Bundle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.bundle != nil {
		return l.bundle, nil
	}

	b, err := l.load(ctx)
	if err != nil {
		l.log.Error(ctx, "model load failed", "path", l.path, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrModelUnavailable, err)
	}

	l.log.Info(ctx, "model loaded", "path", l.path, "version", b.Version, "type", b.Model.Type, "trees", len(b.Model.Trees))
	l.bundle = b
	return b, nil
}

func (l *Loader) load(ctx context.Context) (*Bundle, error) {
	if l.path == "" {
		return nil, errors.New("no model path configured")
	}

	var (
		rc  io.ReadCloser
		err error
	)
	switch {
	case strings.HasPrefix(l.path, s3Scheme):
		rc, err = l.openS3(ctx)
	case strings.HasPrefix(l.path, "http://"), strings.HasPrefix(l.path, "https://"):
		rc, err = openURL(ctx, l.path)
	default:
		rc, err = openFile(l.path)
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return Decode(rc)
}

// ParseS3URI splits s3://bucket/key into its parts.
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, s3Scheme)
	if !ok {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 uri needs bucket and key: %q", uri)
	}
	return bucket, key, nil
}

func (l *Loader) openS3(ctx context.Context) (io.ReadCloser, error) {
	bucket, key, err := ParseS3URI(l.path)
	if err != nil {
		return nil, err
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(l.s3.Region)}
	if l.s3.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(l.s3.AccessKey, l.s3.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3Client(cfg, func(o *s3.Options) {
		if l.s3.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(l.s3.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3 object: %w", err)
	}
	return out.Body, nil
}
