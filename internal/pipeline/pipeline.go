// Package pipeline runs one price upload from input files to validation.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"priceupload/config"
	"priceupload/internal/metrics"
	"priceupload/internal/pricing"
	"priceupload/internal/uploader"
	"priceupload/logger"
	"priceupload/models"
	"priceupload/reader"
	"priceupload/writer"
)

// Archiver stores a finished run. It is satisfied by *writer.Archiver.
type Archiver interface {
	Archive(ctx context.Context, report models.RunReport, products []models.ProductPrices) ([]string, error)
}

// Options configures a run.
type Options struct {
	Config          *config.Config
	CredentialsPath string
	PricesPath      string

	// HTTPClient overrides the pricing client transport.
	HTTPClient *http.Client
	// Logger overrides the global logger for the run.
	Logger *logger.Log
	// Archiver overrides the S3 archiver built from Config when archiving is enabled.
	Archiver Archiver
	// OnProgress is called after every batch response.
	OnProgress func(uploader.Progress)
}

// Run loads the credentials and prices, authenticates, uploads every product
// and asks the server to validate the result. The returned report is filled in
// as far as the run got, also when an error is returned.
func Run(ctx context.Context, opts Options) (models.RunReport, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	logger.ResetCounts()
	report := models.RunReport{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	entry := log.WithComponent("pipeline").WithField("run_id", report.RunID)

	collector := metrics.NewCollector()
	defer collector.Close()

	finish := func(err error) (models.RunReport, error) {
		report.FinishedAt = time.Now().UTC()
		report.LogCounts = logCounts()
		report.Metrics = collector.Values()
		if err != nil {
			entry.WithError(err).Error("run failed")
		}
		return report, err
	}

	entry.WithFields(logger.Fields{
		"credentials": opts.CredentialsPath,
		"prices":      opts.PricesPath,
		"api":         cfg.API.BaseURL,
		"cloudwatch":  metrics.Enabled(),
	}).Info("starting price upload")

	cred, err := reader.LoadCredentials(opts.CredentialsPath)
	if err != nil {
		return finish(err)
	}

	records, err := reader.LoadPriceFile(opts.PricesPath)
	if err != nil {
		return finish(err)
	}
	products := reader.GroupByProduct(records)
	report.Products = len(products)
	report.PriceRows = len(records)

	logger.LogDataFlowEntry(entry, "prices_csv", "uploader", len(products), "product_prices")
	if len(products) == 0 {
		entry.Warn("price file has no rows, nothing to upload")
	}

	clientOpts := []pricing.Option{pricing.WithLogger(log)}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, pricing.WithHTTPClient(opts.HTTPClient))
	}
	client := pricing.New(cfg.API, clientOpts...)
	report.APIBaseURL = client.BaseURL()

	token, err := client.Authenticate(ctx, cred)
	if err != nil {
		return finish(err)
	}

	upOpts := []uploader.Option{uploader.WithLogger(log)}
	if opts.OnProgress != nil {
		upOpts = append(upOpts, uploader.WithProgress(opts.OnProgress))
	}
	start := time.Now()
	progress, err := uploader.New(client, cfg.Upload, upOpts...).Upload(ctx, token, products)
	report.Uploaded = progress.Uploaded
	report.Batches = progress.Batches
	report.Retries = progress.Retries
	emitUploadMetrics(log, report, time.Since(start))
	if err != nil {
		return finish(err)
	}

	result, err := client.Validate(ctx, token)
	if err != nil {
		return finish(err)
	}
	report.Validation = &result
	metrics.EmitMetric(log, "pipeline", metrics.ChecksumCorrect, result.CorrectChecksum, "gauge", nil)

	if !result.CorrectChecksum {
		entry.Warn("server reported an incorrect checksum")
	}

	if cfg.Storage.S3.Enabled || opts.Archiver != nil {
		report.FinishedAt = time.Now().UTC()
		report.LogCounts = logCounts()
		report.Metrics = collector.Values()
		keys, err := archive(ctx, cfg, opts.Archiver, report, products)
		report.ArchivedObjects = keys
		if err != nil {
			entry.WithError(err).Warn("failed to archive run")
		}
	}

	entry.WithFields(logger.Fields{
		"uploaded":         report.Uploaded,
		"correct_checksum": result.CorrectChecksum,
		"gcs_url":          result.GCSUpload.URL,
	}).Info("price upload finished")

	return finish(nil)
}

func archive(ctx context.Context, cfg *config.Config, a Archiver, report models.RunReport, products []models.ProductPrices) ([]string, error) {
	if a == nil {
		s3Archiver, err := writer.NewArchiver(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("archive setup: %w", err)
		}
		a = s3Archiver
	}
	return a.Archive(ctx, report, products)
}

func emitUploadMetrics(log *logger.Log, report models.RunReport, elapsed time.Duration) {
	metrics.EmitMetric(log, "uploader", metrics.ProductsUploaded, report.Uploaded, "counter", nil)
	metrics.EmitMetric(log, "uploader", metrics.BatchesSubmitted, report.Batches, "counter", nil)
	metrics.EmitMetric(log, "uploader", metrics.BackpressureRetries, report.Retries, "counter", nil)
	metrics.EmitMetric(log, "uploader", metrics.UploadDurationMs, elapsed.Milliseconds(), "gauge", logger.Fields{"unit": "milliseconds"})
}

func logCounts() []models.LogCount {
	counts := logger.Counts()
	out := make([]models.LogCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, models.LogCount{Component: c.Component, Warnings: c.Warnings, Errors: c.Errors})
	}
	return out
}
