package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Cafe137/swarm-chunked-upload/internal/bmt"
	"github.com/Cafe137/swarm-chunked-upload/internal/config"
	"github.com/Cafe137/swarm-chunked-upload/internal/domain"
	"github.com/Cafe137/swarm-chunked-upload/internal/placement"
	"github.com/Cafe137/swarm-chunked-upload/internal/repository/bee"
	"github.com/Cafe137/swarm-chunked-upload/internal/repository/db"
	"github.com/Cafe137/swarm-chunked-upload/internal/repository/objectstore"
	"github.com/Cafe137/swarm-chunked-upload/internal/service"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [file-path]",
	Short: "Upload a file to a Bee node",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		filePath := args[0]

		data, err := os.ReadFile(filePath)
		if err != nil {
			log.Fatalf("Error reading file: %v", err)
		}
		filename := filepath.Base(filePath)

		signer, counters, err := newSigner(ctx)
		if err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
		client, err := bee.NewClient(cfg.BeeURL, signer.Batch(), cfg.Deferred, cfg.RequestTimeout)
		if err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}

		var records service.RecordRepository
		if cfg.DynamoDBTable != "" {
			repo := db.NewUploadRecordRepository(openDatabase(ctx).Client, cfg.DynamoDBTable)
			records = &repo
		}

		observers := service.MultiObserver{service.LogObserver{}}
		var progress *service.ProgressObserver
		if !cfg.Quiet {
			progress = service.NewProgressObserver(bmt.ChunkCount(int64(len(data))))
			observers = append(observers, progress)
		}

		uploader := service.NewUploadService(client, signer, records, service.UploadOptions{
			Parallelism: cfg.Parallelism,
			Retry:       service.RetryPolicy{Attempts: cfg.Retries, Backoff: cfg.RetryBackoff},
			ContentType: cfg.ContentType,
			Observer:    observers,
		})
		result, err := uploader.Upload(ctx, filename, data)
		saveCounters(counters)
		if progress != nil {
			progress.Finish()
		}
		if err != nil {
			log.Fatalf("Error uploading file: %v", err)
		}

		fmt.Printf("Root: %s\n", result.RootAddress)
		fmt.Printf("Manifest: %s\n", result.ManifestReference)
		fmt.Printf("URL: %s/bzz/%s/\n", client.URL(), result.ManifestReference)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [file-path]",
	Short: "Write stamped chunks of a file to export targets",
	Long: "export signs every chunk of a file and writes the chunk data and its stamp to " +
		"local directories, S3 buckets or GCS buckets instead of a Bee node. " +
		"Targets are file://dir, s3://bucket/prefix or gs://bucket/prefix.",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		filePath := args[0]

		data, err := os.ReadFile(filePath)
		if err != nil {
			log.Fatalf("Error reading file: %v", err)
		}

		targets, _ := cmd.Flags().GetStringSlice("target")
		if len(targets) == 0 {
			targets = cfg.ExportTargets
		}
		tag, _ := cmd.Flags().GetString("tag")
		if tag == "" {
			tag = cfg.ExportTag
		}
		clean, _ := cmd.Flags().GetBool("clean")

		placer, err := buildPlacer(ctx, targets, tag)
		if err != nil {
			log.Fatalf("Invalid export targets: %v", err)
		}

		signer, counters, err := newSigner(ctx)
		if err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}

		observers := service.MultiObserver{service.LogObserver{}}
		var progress *service.ProgressObserver
		if !cfg.Quiet {
			progress = service.NewProgressObserver(bmt.ChunkCount(int64(len(data))))
			observers = append(observers, progress)
		}

		exporter := service.NewExportService(signer, placer, service.ExportOptions{
			Parallelism: cfg.Parallelism,
			Clean:       clean,
			Observer:    observers,
		})
		result, err := exporter.Export(ctx, filepath.Base(filePath), data)
		saveCounters(counters)
		if progress != nil {
			progress.Finish()
		}
		if err != nil {
			log.Fatalf("Error exporting file: %v", err)
		}

		fmt.Printf("Root: %s\n", result.RootAddress)
		fmt.Printf("Exported %d chunks to %s\n", result.ChunkCount, strings.Join(placer.Targets(), ", "))
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [file-name] [root-address]",
	Short: "List recorded uploads of a file",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		repo := db.NewUploadRecordRepository(openDatabase(ctx).Client, cfg.DynamoDBTable)
		history := service.NewHistoryService(&repo)

		if len(args) == 2 {
			root, err := domain.AddressFromHex(args[1])
			if err != nil {
				log.Fatalf("Invalid root address: %v", err)
			}
			record, err := history.Upload(ctx, args[0], root)
			if err != nil {
				log.Fatalf("Error reading upload record: %v", err)
			}
			printRecord(record)
			return
		}

		records, err := history.Uploads(ctx, args[0])
		if err != nil {
			log.Fatalf("Error listing uploads: %v", err)
		}
		if len(records) == 0 {
			fmt.Printf("No uploads recorded for %s\n", args[0])
			return
		}
		for _, record := range records {
			printRecord(record)
		}
	},
}

func printRecord(r domain.UploadRecord) {
	fmt.Printf("%s  root %s  manifest %s  %d bytes  %d chunks  %s  batch %s\n",
		r.UploadedAt.Format("2006-01-02 15:04:05"), r.RootAddress, r.ManifestReference,
		r.Size, r.ChunkCount, r.ContentType, r.BatchID)
}

// buildPlacer registers every target with a round-robin placer. AWS and GCS
// clients are only created when a target needs them.
func buildPlacer(ctx context.Context, targets []string, tag string) (*placement.RoundRobinPlacer, error) {
	var configs []objectstore.BucketConfig
	for _, target := range targets {
		bucketConfig, err := objectstore.ParseBucketConfig(target)
		if err != nil {
			return nil, err
		}
		configs = append(configs, bucketConfig)
	}

	var awsConfig *aws.Config
	loadAWS := func() (*aws.Config, error) {
		if awsConfig == nil {
			loaded, err := config.LoadAWSConfig(ctx)
			if err != nil {
				return nil, err
			}
			awsConfig = &loaded
		}
		return awsConfig, nil
	}

	if tag != "" {
		key, value, err := objectstore.ParseTag(tag)
		if err != nil {
			return nil, err
		}
		loaded, err := loadAWS()
		if err != nil {
			return nil, err
		}
		discovered, err := objectstore.DiscoverS3Targets(ctx, objectstore.NewTaggingClient(*loaded), key, value, "")
		if err != nil {
			return nil, err
		}
		configs = append(configs, discovered...)
	}

	var gcsClient *storage.Client
	for _, c := range configs {
		switch c.Type {
		case objectstore.S3Type:
			if _, err := loadAWS(); err != nil {
				return nil, err
			}
		case objectstore.GCSType:
			if gcsClient == nil {
				client, err := config.LoadGCSClient(ctx)
				if err != nil {
					return nil, err
				}
				gcsClient = client
			}
		}
	}

	factory := objectstore.NewObjectRepositoryFactory(awsConfig, gcsClient)
	placer := placement.NewRoundRobinPlacer()
	seen := make(map[string]bool)
	for _, c := range configs {
		if seen[c.String()] {
			continue
		}
		seen[c.String()] = true
		repo, err := factory.CreateRepository(c)
		if err != nil {
			return nil, err
		}
		if err := placer.RegisterTarget(c.String(), repo); err != nil {
			return nil, err
		}
	}
	if len(placer.Targets()) == 0 {
		return nil, fmt.Errorf("no export targets configured")
	}
	return placer, nil
}

func init() {
	exportCmd.Flags().StringSlice("target", nil, "Export target, repeatable; defaults to export_targets from config")
	exportCmd.Flags().String("tag", "", "Also export to every S3 bucket tagged key=value")
	exportCmd.Flags().Bool("clean", false, "Delete previously exported files from every target first")
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(historyCmd)
}
