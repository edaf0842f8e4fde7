package uploader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"priceupload/config"
	"priceupload/logger"
	"priceupload/models"
)

// Submitter sends one batch of products and reports how many were imported.
type Submitter interface {
	SubmitProducts(ctx context.Context, token string, products []models.ProductPrices) (int, error)
}

// Progress is the upload state after a batch response.
type Progress struct {
	Uploaded int // products confirmed so far; the offset of the next batch
	Total    int
	Imported int // products confirmed by the latest response
	Batches  int // requests sent
	Retries  int // responses that imported nothing

	// Exhausted is set on the last zero response before Upload gives up.
	Exhausted bool
}

// Uploader submits grouped prices in bounded batches and advances only by the
// number of products the server confirms.
type Uploader struct {
	submitter  Submitter
	batchSize  int
	policy     RetryPolicy
	log        *logger.Log
	sleep      func(context.Context, time.Duration) error
	onProgress func(Progress)
}

// Option customises an Uploader.
type Option func(*Uploader)

// WithProgress registers fn to be called after every batch response.
func WithProgress(fn func(Progress)) Option {
	return func(u *Uploader) { u.onProgress = fn }
}

// WithLogger replaces the global logger.
func WithLogger(log *logger.Log) Option {
	return func(u *Uploader) { u.log = log }
}

// New creates an Uploader. Batch sizes outside 1..MaxBatchSize are clamped.
func New(s Submitter, cfg config.UploadConfig, opts ...Option) *Uploader {
	size := cfg.BatchSize
	if size <= 0 || size > config.MaxBatchSize {
		size = config.MaxBatchSize
	}

	u := &Uploader{
		submitter: s,
		batchSize: size,
		policy:    PolicyFromConfig(cfg.Retry).normalized(),
		log:       logger.GetLogger(),
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upload sends products starting at offset 0 until the server has confirmed
// all of them. A response importing nothing is retried with backoff; after
// policy.MaxAttempts such responses in a row Upload fails with an UploadError
// wrapping models.ErrNoProgress. Any other submission failure aborts at once.
func (u *Uploader) Upload(ctx context.Context, token string, products []models.ProductPrices) (Progress, error) {
	log := u.log.WithComponent("uploader")

	p := Progress{Total: len(products)}
	delays := u.policy.backoff()
	zeros := 0
	start := time.Now()

	log.WithFields(logger.Fields{
		"total":        p.Total,
		"batch_size":   u.batchSize,
		"max_attempts": u.policy.MaxAttempts,
	}).Info("starting upload")

	for p.Uploaded < p.Total {
		if err := ctx.Err(); err != nil {
			return p, &models.UploadError{Offset: p.Uploaded, Err: err}
		}

		end := min(p.Uploaded+u.batchSize, p.Total)
		batch := products[p.Uploaded:end]

		n, err := u.submitter.SubmitProducts(ctx, token, batch)
		p.Batches++
		if err != nil {
			return p, u.uploadError(p.Uploaded, err)
		}
		if n < 0 || n > len(batch) {
			return p, &models.UploadError{
				Offset: p.Uploaded,
				Err:    fmt.Errorf("server reported %d imported for a batch of %d", n, len(batch)),
			}
		}

		p.Uploaded += n
		p.Imported = n

		log.WithFields(logger.Fields{
			"batch":        p.Batches,
			"batch_size":   len(batch),
			"num_imported": n,
			"uploaded":     p.Uploaded,
			"total":        p.Total,
		}).Info("batch uploaded")

		if n == 0 {
			zeros++
			p.Retries++
			p.Exhausted = zeros >= u.policy.MaxAttempts
		}
		if u.onProgress != nil {
			u.onProgress(p)
		}

		if n > 0 {
			zeros = 0
			delays.Reset()
			continue
		}

		if p.Exhausted {
			log.WithFields(logger.Fields{
				"offset":   p.Uploaded,
				"attempts": zeros,
			}).Error("server made no progress, giving up")
			return p, &models.UploadError{
				Offset: p.Uploaded,
				Err:    fmt.Errorf("%w: server imported 0 of %d products %d times in a row", models.ErrNoProgress, len(batch), zeros),
			}
		}

		delay := delays.Duration()
		log.WithFields(logger.Fields{
			"offset":   p.Uploaded,
			"attempt":  zeros,
			"delay_ms": delay.Milliseconds(),
		}).Warn("backpressure, retrying")
		if err := u.sleep(ctx, delay); err != nil {
			return p, &models.UploadError{Offset: p.Uploaded, Err: err}
		}
	}

	logger.LogPerformanceEntry(log, "uploader", "upload", time.Since(start), logger.Fields{
		"batches": p.Batches,
		"retries": p.Retries,
	})
	log.WithFields(logger.Fields{"uploaded": p.Uploaded, "total": p.Total}).Info("upload complete")
	return p, nil
}

func (u *Uploader) uploadError(offset int, err error) error {
	var ue *models.UploadError
	if errors.As(err, &ue) {
		return &models.UploadError{Offset: offset, StatusCode: ue.StatusCode, Err: ue.Err}
	}
	return &models.UploadError{Offset: offset, Err: err}
}
