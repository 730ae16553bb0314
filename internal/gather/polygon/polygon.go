// Package polygon downloads Polygon.io flat files over their S3-compatible
// endpoint and maintains a local CSV cache.
package polygon

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"edgelab/internal/domain"
	"edgelab/internal/gather"
	"edgelab/internal/util"
)

var _ gather.Downloader = (*Downloader)(nil)

var (
	// ErrNotFound indicates no flat file exists for the requested date,
	// typically a weekend or market holiday.
	ErrNotFound = errors.New("flat file not found")
	// ErrCredentials indicates the access key pair was rejected.
	ErrCredentials = errors.New("polygon credentials rejected")
)

const (
	// DefaultEndpoint is Polygon's S3-compatible flat file endpoint.
	DefaultEndpoint = "https://files.polygon.io"
	// DefaultBucket holds all Polygon flat files.
	DefaultBucket = "flatfiles"

	maxAttempts = 3
	baseDelay   = 2 * time.Second
)

// s3API is the subset of the S3 client the downloader uses.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Config holds the downloader's connection and cache settings.
type Config struct {
	AccessKey string
	SecretKey string
	Endpoint  string // defaults to DefaultEndpoint
	Bucket    string // defaults to DefaultBucket
	CacheDir  string
	Force     bool // re-download even when the cached CSV exists
}

// Downloader fetches flat files from Polygon's S3 endpoint, decompresses
// them, and caches the CSVs under the configured cache directory.
type Downloader struct {
	client s3API
	bucket string
	cache  string
	force  bool
	log    *slog.Logger
}

// New creates a Downloader from the given config.
func New(cfg Config) *Downloader {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultBucket
	}

	client := s3.NewFromConfig(aws.Config{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
	}, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return newWithClient(client, cfg)
}

func newWithClient(client s3API, cfg Config) *Downloader {
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultBucket
	}
	return &Downloader{
		client: client,
		bucket: cfg.Bucket,
		cache:  cfg.CacheDir,
		force:  cfg.Force,
		log:    slog.Default().With("component", "polygon"),
	}
}

// ---------------------------------------------------------------------------
// Key and path layout
// ---------------------------------------------------------------------------

func prefixFor(tf domain.Timeframe) string {
	if tf == domain.TimeframeMinute {
		return "us_stocks_sip/minute_aggs_v1"
	}
	return "us_stocks_sip/day_aggs_v1"
}

func keyFor(tf domain.Timeframe, date time.Time) string {
	return fmt.Sprintf("%s/%s/%s.csv.gz",
		prefixFor(tf), date.Format("2006/01"), date.Format("2006-01-02"))
}

func (d *Downloader) localPath(tf domain.Timeframe, date time.Time) string {
	sub := "day_aggs"
	if tf == domain.TimeframeMinute {
		sub = "minute_aggs"
	}
	return filepath.Join(d.cache, "us_stocks_sip", sub, date.Format("2006-01-02")+".csv")
}

// ---------------------------------------------------------------------------
// Downloading
// ---------------------------------------------------------------------------

// DayFile fetches the daily-aggregates flat file for date and returns the
// local CSV path. A cached file is returned without touching the network.
func (d *Downloader) DayFile(ctx context.Context, date time.Time) (string, error) {
	return d.fetch(ctx, domain.TimeframeDay, date)
}

// MinuteFile fetches the minute-aggregates flat file for date.
func (d *Downloader) MinuteFile(ctx context.Context, date time.Time) (string, error) {
	return d.fetch(ctx, domain.TimeframeMinute, date)
}

func (d *Downloader) fetch(ctx context.Context, tf domain.Timeframe, date time.Time) (string, error) {
	dest := d.localPath(tf, date)

	if !d.force {
		if _, err := os.Stat(dest); err == nil {
			d.log.Debug("cache hit", "path", dest)
			return dest, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("creating cache dir: %w", err)
	}

	key := keyFor(tf, date)
	gzPath := dest + ".gz"

	d.log.Info("downloading flat file", "key", key)
	var fatal error
	err := util.Retry(ctx, maxAttempts, baseDelay, func() error {
		err := d.download(ctx, key, gzPath)
		// Retrying a missing file or bad credentials cannot succeed.
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrCredentials) {
			fatal = err
			return nil
		}
		return err
	})
	if err == nil {
		err = fatal
	}
	if err != nil {
		return "", err
	}

	if err := gunzip(gzPath, dest); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("decompressing %s: %w", gzPath, err)
	}
	os.Remove(gzPath)

	d.log.Info("flat file cached", "path", dest)
	return dest, nil
}

func (d *Downloader) download(ctx context.Context, key, gzPath string) error {
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return classifyError(key, err)
	}
	defer out.Body.Close()

	f, err := os.Create(gzPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", gzPath, err)
	}
	if _, err := io.Copy(f, out.Body); err != nil {
		f.Close()
		os.Remove(gzPath)
		return fmt.Errorf("writing %s: %w", gzPath, err)
	}
	return f.Close()
}

func classifyError(key string, err error) error {
	var noKey *s3types.NoSuchKey
	if errors.As(err, &noKey) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return fmt.Errorf("%w: %s", ErrCredentials, apiErr.ErrorCode())
		}
	}
	return fmt.Errorf("fetching %s: %w", key, err)
}

func gunzip(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	gz, err := gzip.NewReader(in)
	if err != nil {
		return err
	}
	defer gz.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, gz); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// ---------------------------------------------------------------------------
// Discovery
// ---------------------------------------------------------------------------

// ListDates returns the dates for which flat files exist in the given year,
// sorted ascending.
func (d *Downloader) ListDates(ctx context.Context, tf domain.Timeframe, year int) ([]time.Time, error) {
	prefix := fmt.Sprintf("%s/%04d/", prefixFor(tf), year)

	var dates []time.Time
	var token *string
	for {
		out, err := d.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(d.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, classifyError(prefix, err)
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			base := strings.TrimSuffix(filepath.Base(key), ".csv.gz")
			date, err := time.Parse("2006-01-02", base)
			if err != nil {
				continue
			}
			dates = append(dates, date)
		}
		if out.NextContinuationToken == nil {
			break
		}
		token = out.NextContinuationToken
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// Ping verifies the configured credentials by listing a single object.
func (d *Downloader) Ping(ctx context.Context) error {
	_, err := d.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(d.bucket),
		Prefix:  aws.String("us_stocks_sip/"),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return classifyError("us_stocks_sip/", err)
	}
	return nil
}
