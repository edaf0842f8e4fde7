package writer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "priceupload/config"
	"priceupload/logger"
	"priceupload/models"
)

// ObjectPutter is the subset of the S3 client used by the archiver.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver stores the rows and report of a finished run in S3.
type Archiver struct {
	putter      ObjectPutter
	bucket      string
	prefix      string
	compression string
	version     string
	log         *logger.Log
}

// NewArchiver configures the AWS SDK from cfg.Storage.S3 and returns an
// archiver backed by a real S3 client. Static keys from the config take
// precedence over the default credential chain.
func NewArchiver(ctx context.Context, cfg *appconfig.Config) (*Archiver, error) {
	log := logger.GetLogger()
	s3cfg := cfg.Storage.S3

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(s3cfg.Region)}
	if s3cfg.AccessKeyID != "" && s3cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s3cfg.AccessKeyID, s3cfg.SecretAccessKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	creds, err := awsConfig.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if s3cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s3cfg.Endpoint)
		}
		o.UsePathStyle = s3cfg.PathStyle
	})

	log.WithComponent("archive").WithFields(logger.Fields{
		"bucket":     s3cfg.Bucket,
		"region":     s3cfg.Region,
		"endpoint":   s3cfg.Endpoint,
		"path_style": s3cfg.PathStyle,
	}).Info("s3 archive initialized")

	return newArchiver(client, cfg), nil
}

func newArchiver(putter ObjectPutter, cfg *appconfig.Config) *Archiver {
	return &Archiver{
		putter:      putter,
		bucket:      cfg.Storage.S3.Bucket,
		prefix:      cfg.Storage.S3.Prefix,
		compression: cfg.Storage.S3.Compression,
		version:     cfg.App.Version,
		log:         logger.GetLogger(),
	}
}

// Keys returns the parquet and report object keys for a run, partitioned by
// the UTC start date.
func (a *Archiver) Keys(runID string, startedAt time.Time) (string, string) {
	ts := startedAt.UTC()
	dir := path.Join(a.prefix,
		fmt.Sprintf("%04d", ts.Year()),
		fmt.Sprintf("%02d", ts.Month()),
		fmt.Sprintf("%02d", ts.Day()))
	return path.Join(dir, runID+"_prices.parquet"), path.Join(dir, runID+"_report.json")
}

// Archive uploads the price rows as parquet and then the report as JSON. The
// report written to S3 lists both keys. It returns the keys written so far,
// which is fewer than two when an upload fails.
func (a *Archiver) Archive(ctx context.Context, report models.RunReport, products []models.ProductPrices) ([]string, error) {
	start := time.Now()
	log := a.log.WithComponent("archive").WithFields(logger.Fields{
		"run_id": report.RunID,
		"bucket": a.bucket,
	})

	dataKey, reportKey := a.Keys(report.RunID, report.StartedAt)

	data, err := encodePriceRows(report.RunID, products, a.compression)
	if err != nil {
		return nil, err
	}
	if err := a.put(ctx, dataKey, data, "application/octet-stream", "parquet"); err != nil {
		return nil, err
	}
	written := []string{dataKey}

	report.ArchivedObjects = []string{dataKey, reportKey}
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return written, fmt.Errorf("failed to encode run report: %w", err)
	}
	if err := a.put(ctx, reportKey, body, "application/json", "report"); err != nil {
		return written, err
	}
	written = append(written, reportKey)

	logger.LogPerformanceEntry(log, "archive", "archive_run", time.Since(start), logger.Fields{
		"parquet_bytes": len(data),
		"report_bytes":  len(body),
	})
	log.WithFields(logger.Fields{
		"price_rows": models.RowCount(products),
		"objects":    written,
	}).Info("run archived")
	return written, nil
}

func (a *Archiver) put(ctx context.Context, key string, data []byte, contentType, kind string) error {
	_, err := a.putter.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"content-type":        kind,
			"compression":         a.compression,
			"priceupload-version": a.version,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to S3 bucket %s: %w", key, a.bucket, err)
	}
	return nil
}
