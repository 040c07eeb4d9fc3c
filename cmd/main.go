package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Cafe137/swarm-chunked-upload/internal/config"
	"github.com/Cafe137/swarm-chunked-upload/internal/logging"
	"github.com/Cafe137/swarm-chunked-upload/internal/postage"
	"github.com/Cafe137/swarm-chunked-upload/internal/repository/db"
	"github.com/Cafe137/swarm-chunked-upload/internal/repository/secrets"
	"github.com/Cafe137/swarm-chunked-upload/internal/repository/state"
)

var (
	cfg        *config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "swarmup",
	Short: "Upload files to Swarm chunk by chunk",
	Long: "swarmup splits a file into Swarm chunks, stamps every chunk with a postage batch, " +
		"uploads the chunks to a Bee node in parallel and publishes a manifest for the file.",
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to config.yaml")
	flags.String("log-level", "info", "Log level: trace, debug, info, warn or error")
	flags.BoolP("quiet", "q", false, "Suppress progress bars and informational logs")
	flags.String("bee-url", "http://localhost:1633", "Bee node API URL")
	flags.String("batch-id", "", "Postage batch id (hex)")
	flags.Int("batch-depth", 20, "Postage batch depth")
	flags.Bool("deferred", true, "Upload chunks in deferred mode")
	flags.Duration("request-timeout", 0, "Timeout per HTTP request, 0 for none")
	flags.String("private-key", "", "Hex private key of the batch owner")
	flags.String("private-key-parameter", "", "SSM parameter holding the private key")
	flags.String("stamp-scheme", postage.SchemeFlat.String(), "Stamp index scheme: flat or bucket-counter")
	flags.String("state-file", "state.bin", "Bucket counter state for the bucket-counter scheme")
	flags.Int("parallelism", 8, "Number of chunks uploaded concurrently")
	flags.Int("retries", 5, "Attempts per chunk before the upload fails")
	flags.Duration("retry-backoff", 0, "Wait between attempts of one chunk")
	flags.String("content-type", "", "Content type recorded in the manifest, detected from the file name when empty")
	flags.String("dynamodb-table", "", "DynamoDB table for upload records, disabled when empty")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(addressCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the upload records table",
	Run: func(cmd *cobra.Command, args []string) {
		dynamoDb := openDatabase(cmd.Context())
		if err := dynamoDb.MigrateDb(cmd.Context()); err != nil {
			log.Fatalf("Failed to migrate the database: %v", err)
		}
		fmt.Println("Database initialized and migrated successfully")
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back database migrations",
	Run: func(cmd *cobra.Command, args []string) {
		dynamoDb := openDatabase(cmd.Context())
		if err := dynamoDb.MigrateDown(cmd.Context()); err != nil {
			log.Fatalf("Failed to roll back migrations: %v", err)
		}
		fmt.Println("Database migrations rolled back successfully")
	},
}

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the Ethereum address of the signing key",
	Run: func(cmd *cobra.Command, args []string) {
		key, err := privateKey(cmd.Context())
		if err != nil {
			log.Fatalf("Failed to load private key: %v", err)
		}
		parsed, err := postage.ParsePrivateKey(key)
		if err != nil {
			log.Fatalf("Invalid private key: %v", err)
		}
		owner := postage.EthereumAddress(parsed.PubKey())
		fmt.Printf("0x%x\n", owner[:])
	},
}

func initConfig() {
	var err error
	cfg, err = config.LoadConfig(configPath, rootCmd)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logging.InitLogger(cfg)
}

func openDatabase(ctx context.Context) *db.DynamoDb {
	if cfg.DynamoDBTable == "" {
		log.Fatal(`No DynamoDB table configured, set "dynamodb_table"`)
	}
	awsConfig, err := config.LoadAWSConfig(ctx)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	dynamoDb, err := db.NewDatabase(awsConfig, cfg.DynamoDBTable)
	if err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}
	return dynamoDb
}

// privateKey returns the configured key, reading it from SSM when only a
// parameter name is set.
func privateKey(ctx context.Context) ([]byte, error) {
	hexKey := cfg.PrivateKey
	if hexKey == "" && cfg.PrivateKeyParameter != "" {
		awsConfig, err := config.LoadAWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		hexKey, err = secrets.NewParameterStore(awsConfig).GetSecret(ctx, cfg.PrivateKeyParameter)
		if err != nil {
			return nil, err
		}
	}
	if hexKey == "" {
		return nil, fmt.Errorf(`no private key configured, set "private_key" or "private_key_parameter"`)
	}
	return config.DecodePrivateKey(hexKey)
}

// newSigner builds the stamp signer from configuration. The returned counters
// are nil for the flat scheme and must be saved after signing otherwise.
func newSigner(ctx context.Context) (*postage.Signer, *state.BucketCounters, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	batch, err := cfg.PostageBatch()
	if err != nil {
		return nil, nil, err
	}
	scheme, err := cfg.Scheme()
	if err != nil {
		return nil, nil, err
	}
	key, err := privateKey(ctx)
	if err != nil {
		return nil, nil, err
	}

	if scheme == postage.SchemeFlat {
		signer, err := postage.NewSigner(batch, key, scheme, nil)
		return signer, nil, err
	}

	counters, err := state.LoadBucketCounters(cfg.StateFile)
	if err != nil {
		return nil, nil, err
	}
	signer, err := postage.NewSigner(batch, key, scheme, counters)
	if err != nil {
		return nil, nil, err
	}
	return signer, counters, nil
}

// saveCounters persists bucket counters, also after failed runs, so that
// indices handed out to stamps are never reused.
func saveCounters(counters *state.BucketCounters) {
	if counters == nil {
		return
	}
	if err := counters.Save(); err != nil {
		log.Errorf("Failed to save bucket state to %s: %v", cfg.StateFile, err)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
