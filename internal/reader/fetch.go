package reader

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// ErrS3NotConfigured is returned for s3:// locations when no S3 client is set.
var ErrS3NotConfigured = errors.New("s3 client is not configured")

const userAgent = "geoview/1.0"

// Fetcher returns the raw bytes stored at a location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// S3Options configures access to S3-compatible storage for s3://bucket/key locations.
type S3Options struct {
	Endpoint  string `long:"s3-endpoint"   env:"S3_ENDPOINT"   description:"S3 endpoint (host:port), enables s3:// sources"`
	AccessKey string `long:"s3-access-key" env:"S3_ACCESS_KEY" description:"S3 access key"`
	SecretKey string `long:"s3-secret-key" env:"S3_SECRET_KEY" description:"S3 secret key"`
	Region    string `long:"s3-region"     env:"S3_REGION"     description:"S3 region"`
	UseSSL    bool   `long:"s3-ssl"        env:"S3_USE_SSL"    description:"Use TLS for S3 endpoint"`
}

// NewS3Client creates a MinIO client from options.
// It returns a nil client when no endpoint is configured.
func NewS3Client(opts S3Options) (*minio.Client, error) {
	if opts.Endpoint == "" {
		return nil, nil
	}
	if opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, fmt.Errorf("s3 endpoint %s set without access or secret key", opts.Endpoint)
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	log.Debug().Str("endpoint", opts.Endpoint).Bool("ssl", opts.UseSSL).Msg("S3 client configured")
	return client, nil
}

// NewHTTPClient returns the client used for remote GeoJSON sources.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 4,
		},
		Timeout: timeout,
	}
}

// SourceFetcher reads local files, http(s) URLs and s3:// objects.
// Every failure is reported as *SourceUnavailableError; nothing is retried.
type SourceFetcher struct {
	Client *http.Client
	S3     *minio.Client
}

// NewSourceFetcher returns a fetcher using client for HTTP and s3 for s3:// locations.
// Either may be nil; a nil HTTP client falls back to NewHTTPClient defaults.
func NewSourceFetcher(client *http.Client, s3 *minio.Client) *SourceFetcher {
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &SourceFetcher{Client: client, S3: s3}
}

// Fetch implements Fetcher.
func (f *SourceFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	var (
		data []byte
		err  error
	)

	switch {
	case IsRemote(location) && strings.HasPrefix(location, "s3://"):
		data, err = f.fetchS3(ctx, location)
	case IsRemote(location):
		data, err = f.fetchHTTP(ctx, location)
	default:
		data, err = os.ReadFile(strings.TrimPrefix(location, "file://"))
	}

	if err != nil {
		return nil, &SourceUnavailableError{Source: location, Err: err}
	}

	return data, nil
}

func (f *SourceFetcher) fetchHTTP(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/geo+json, application/json;q=0.9, */*;q=0.1")

	log.Debug().Str("url", location).Msg("Fetching remote source")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	// Explicitly ignore close error as it's a read-only operation
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (f *SourceFetcher) fetchS3(ctx context.Context, location string) ([]byte, error) {
	if f.S3 == nil {
		return nil, ErrS3NotConfigured
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, err
	}
	bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("s3 location must be s3://bucket/key")
	}

	log.Debug().Str("bucket", bucket).Str("key", key).Msg("Fetching S3 object")

	obj, err := f.S3.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = obj.Close() }()

	return io.ReadAll(obj)
}

// IsRemote reports whether location is a network location rather than a local path.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") ||
		strings.HasPrefix(location, "https://") ||
		strings.HasPrefix(location, "s3://")
}
