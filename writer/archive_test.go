package writer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/shopspring/decimal"

	appconfig "priceupload/config"
	"priceupload/models"
)

type putObject struct {
	bucket      string
	key         string
	contentType string
	body        []byte
}

type fakePutter struct {
	objects []putObject
	failOn  string
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if *in.Key == f.failOn {
		return nil, errors.New("access denied")
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects = append(f.objects, putObject{
		bucket:      *in.Bucket,
		key:         *in.Key,
		contentType: *in.ContentType,
		body:        body,
	})
	return &s3.PutObjectOutput{}, nil
}

func testConfig() *appconfig.Config {
	cfg := appconfig.Default()
	cfg.Storage.S3.Enabled = true
	cfg.Storage.S3.Bucket = "price-archive"
	cfg.Storage.S3.Region = "eu-west-1"
	return cfg
}

func testProducts() []models.ProductPrices {
	return []models.ProductPrices{
		{ProductID: 1, Prices: []models.PriceRecord{
			{ProductID: 1, Market: "NL", Channel: "web", Price: decimal.RequireFromString("19.99"), ValidFrom: "2024-01-01", ValidUntil: "2024-12-31", Row: 2},
			{ProductID: 1, Market: "BE", Channel: "web", Price: decimal.RequireFromString("21.50"), ValidFrom: "2024-01-01", ValidUntil: "2024-12-31", Row: 4},
		}},
		{ProductID: 2, Prices: []models.PriceRecord{
			{ProductID: 2, Market: "NL", Channel: "store", Price: decimal.RequireFromString("5"), ValidFrom: "2024-02-01", ValidUntil: "2024-03-01", Row: 3},
		}},
	}
}

func TestArchiveKeys(t *testing.T) {
	a := newArchiver(&fakePutter{}, testConfig())
	started := time.Date(2024, 3, 7, 23, 30, 0, 0, time.FixedZone("CET", 3600))

	data, report := a.Keys("run-1", started)
	if data != "price-uploads/2024/03/07/run-1_prices.parquet" {
		t.Fatalf("unexpected data key: %s", data)
	}
	if report != "price-uploads/2024/03/07/run-1_report.json" {
		t.Fatalf("unexpected report key: %s", report)
	}
}

func TestArchiveWritesParquetAndReport(t *testing.T) {
	putter := &fakePutter{}
	a := newArchiver(putter, testConfig())

	report := models.RunReport{
		RunID:     "run-1",
		StartedAt: time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC),
		Products:  2,
		PriceRows: 3,
		Uploaded:  2,
		Metrics:   map[string]float64{"products_uploaded": 2, "checksum_correct": 1},
	}
	keys, err := a.Archive(context.Background(), report, testProducts())
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if len(keys) != 2 || len(putter.objects) != 2 {
		t.Fatalf("expected 2 objects, got keys %v and %d puts", keys, len(putter.objects))
	}

	parquetObj := putter.objects[0]
	if parquetObj.bucket != "price-archive" || parquetObj.key != keys[0] {
		t.Fatalf("unexpected parquet object: %s/%s", parquetObj.bucket, parquetObj.key)
	}
	magic := []byte("PAR1")
	if !bytes.HasPrefix(parquetObj.body, magic) || !bytes.HasSuffix(parquetObj.body, magic) {
		t.Fatalf("parquet object is not a parquet file (%d bytes)", len(parquetObj.body))
	}

	reportObj := putter.objects[1]
	if reportObj.contentType != "application/json" {
		t.Fatalf("unexpected report content type: %s", reportObj.contentType)
	}
	var decoded models.RunReport
	if err := json.Unmarshal(reportObj.body, &decoded); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if decoded.RunID != "run-1" || decoded.Uploaded != 2 || len(decoded.ArchivedObjects) != 2 {
		t.Fatalf("unexpected report: %+v", decoded)
	}
	if decoded.Metrics["products_uploaded"] != 2 || decoded.Metrics["checksum_correct"] != 1 {
		t.Fatalf("report JSON is missing metrics: %v", decoded.Metrics)
	}
}

func TestArchiveUploadFailure(t *testing.T) {
	cfg := testConfig()
	putter := &fakePutter{}
	a := newArchiver(putter, cfg)
	report := models.RunReport{RunID: "run-2", StartedAt: time.Now()}
	_, reportKey := a.Keys(report.RunID, report.StartedAt)
	putter.failOn = reportKey

	keys, err := a.Archive(context.Background(), report, testProducts())
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(keys) != 1 {
		t.Fatalf("expected only the parquet key, got %v", keys)
	}
}

func TestCompressionCodec(t *testing.T) {
	for _, name := range []string{"", "snappy", "gzip", "none"} {
		data, err := encodePriceRows("run", testProducts(), name)
		if err != nil {
			t.Fatalf("%q: encode failed: %v", name, err)
		}
		if len(data) == 0 {
			t.Fatalf("%q: empty parquet output", name)
		}
	}
}
