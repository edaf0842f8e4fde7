package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"priceupload/config"
	"priceupload/internal/metrics"
	"priceupload/internal/pipeline"
	"priceupload/internal/uploader"
	"priceupload/logger"
	"priceupload/models"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	flags := flag.NewFlagSet("priceupload", flag.ContinueOnError)
	configPath := flags.String("config", "", "Path to configuration file")
	flags.Usage = func() {
		fmt.Fprintln(flags.Output(), "usage: priceupload [-config path] <credentials.json> <prices.csv>")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() != 2 {
		flags.Usage()
		return 1
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		return 1
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		return 1
	}

	log.WithFields(logger.Fields{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	}).Info("starting priceupload")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	if cfg.Metrics.CloudWatch.Enabled {
		metrics.InitCloudWatch(ctx, cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace)
	}

	report, err := pipeline.Run(ctx, pipeline.Options{
		Config:          cfg,
		CredentialsPath: flags.Arg(0),
		PricesPath:      flags.Arg(1),
		OnProgress:      printProgress(stdout),
	})
	if err != nil {
		log.WithError(err).Error("price upload failed")
		return 1
	}

	printSummary(stdout, report)
	return 0
}

func printProgress(w io.Writer) func(uploader.Progress) {
	return func(p uploader.Progress) {
		fmt.Fprintf(w, "Uploaded %d products (total: %d/%d)\n", p.Imported, p.Uploaded, p.Total)
		if p.Imported == 0 && !p.Exhausted {
			fmt.Fprintln(w, "API backpressure - retrying...")
		}
	}
}

func printSummary(w io.Writer, report models.RunReport) {
	fmt.Fprintf(w, "\nSuccessfully uploaded all %d products!\n", report.Uploaded)
	if report.Validation == nil {
		return
	}
	fmt.Fprintln(w, "\n=== Validation Results ===")
	fmt.Fprintf(w, "Correct checksum: %t\n", report.Validation.CorrectChecksum)
	fmt.Fprintf(w, "GCS Upload URL: %s\n", report.Validation.GCSUpload.URL)
}
