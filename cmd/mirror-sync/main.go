// Command mirror-sync runs one pass of the periodic index mirror: it
// resolves the next unprocessed calendar window from the ledger,
// enumerates what the local sink tree is missing, and copies each
// missing artifact from the configured remote source.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/nholding/edgar-mirror/internal/calendar"
	"github.com/nholding/edgar-mirror/internal/config"
	"github.com/nholding/edgar-mirror/internal/ledger"
	"github.com/nholding/edgar-mirror/internal/repo"
	"github.com/nholding/edgar-mirror/internal/sync"
)

func defaultRepoFormat() *repo.RepoFormat {
	return &repo.RepoFormat{
		NameSpec: map[calendar.PeriodType]string{
			calendar.Day:     "master{y}{m:02}{d:02}.idx",
			calendar.Quarter: "master.idx",
		},
		PathSpec: []string{"{t}", "{y}", "QTR{q}"},
	}
}

// sourceRepoFormat matches the default EDGAR-style remote layout: the
// {t} directory component is replaced by a user macro resolving to
// "daily-index"/"full-index", per spec.md §6.
func sourceRepoFormat() *repo.RepoFormat {
	f := defaultRepoFormat()
	f.PathSpec = []string{"{index}", "{y}", "QTR{q}"}
	f.Macros = map[string]repo.MacroFunc{
		"index": func(pt calendar.PeriodType, d calendar.Date) string {
			if pt == calendar.Quarter {
				return "full-index"
			}
			return "daily-index"
		},
	}
	return f
}

func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	flag.StringVar(&cfg.RootDir, "root-dir", os.Getenv("MIRROR_ROOT_DIR"), "local sink tree root directory")
	flag.StringVar(&cfg.BaseURL, "base-url", os.Getenv("MIRROR_BASE_URL"), "HTTP source tree base url")
	flag.StringVar(&cfg.HTTPPropertiesPath, "http-properties", os.Getenv("MIRROR_HTTP_PROPERTIES"), "path to the HTTP request header properties file")
	flag.StringVar(&cfg.S3Bucket, "s3-bucket", os.Getenv("MIRROR_S3_BUCKET"), "S3 bucket backing the source tree, instead of HTTP")
	flag.StringVar(&cfg.S3KeyPrefix, "s3-prefix", os.Getenv("MIRROR_S3_PREFIX"), "key prefix within the S3 source bucket")
	flag.StringVar(&cfg.DSN, "dsn", os.Getenv("MIRROR_DSN"), "ledger database DSN (ignored when -aws-profile is set)")
	flag.StringVar(&cfg.AWSProfile, "aws-profile", os.Getenv("MIRROR_AWS_PROFILE"), "AWS profile for IAM-authenticated RDS access")
	flag.StringVar(&cfg.AWSRegion, "aws-region", os.Getenv("MIRROR_AWS_REGION"), "AWS region")
	flag.StringVar(&cfg.DBEndpoint, "db-endpoint", os.Getenv("MIRROR_DB_ENDPOINT"), "ledger database host:port")
	flag.StringVar(&cfg.DBUser, "db-user", os.Getenv("MIRROR_DB_USER"), "ledger database user")
	flag.StringVar(&cfg.DBName, "db-name", os.Getenv("MIRROR_DB_NAME"), "ledger database name")
	flag.StringVar(&cfg.FloorDate, "floor-date", cfg.FloorDate, "earliest date to resume from absent prior ledger history")
	flag.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "per-request timeout for the HTTP source tree")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildSource wires the source tree from cfg: S3 when a bucket is
// configured, otherwise HTTP. Both satisfy the same RepoDir contract,
// so RepoFS and the sync pipe never know which one they got.
func buildSource(ctx context.Context, cfg *config.Config, format *repo.RepoFormat, log zerolog.Logger) (*repo.RepoFS, error) {
	if cfg.S3Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, err
		}
		client := s3.NewFromConfig(awsCfg)
		root := repo.NewS3Root(client, cfg.S3Bucket, cfg.S3KeyPrefix)
		log.Info().Str("bucket", cfg.S3Bucket).Msg("source tree backed by S3")
		return repo.NewRepoFS(root, format), nil
	}

	var headers map[string]string
	if cfg.HTTPPropertiesPath != "" {
		h, err := repo.LoadProperties(cfg.HTTPPropertiesPath)
		if err != nil {
			return nil, err
		}
		headers = h
	}
	client := &http.Client{Timeout: cfg.RequestTimeout}
	root := repo.NewHTTPRoot(cfg.BaseURL, headers, client)
	log.Info().Str("base_url", cfg.BaseURL).Msg("source tree backed by HTTP")
	return repo.NewRepoFS(root, format), nil
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Str("component", "mirror-sync").Logger()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	floor, err := calendar.ParseDate(cfg.FloorDate)
	if err != nil {
		log.Fatal().Err(err).Str("floor_date", cfg.FloorDate).Msg("bad floor date")
	}

	sinkRoot, err := repo.NewLocalDir(cfg.RootDir)
	if err != nil {
		log.Fatal().Err(err).Str("root_dir", cfg.RootDir).Msg("opening local sink tree")
	}
	sink := repo.NewRepoFS(sinkRoot, defaultRepoFormat())

	source, err := buildSource(ctx, cfg, sourceRepoFormat(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("building source tree")
	}

	db, err := ledger.Connect(ctx, ledger.ConnectionConfig{
		AWSProfile: cfg.AWSProfile,
		AWSRegion:  cfg.AWSRegion,
		DBEndpoint: cfg.DBEndpoint,
		DBUser:     cfg.DBUser,
		DBName:     cfg.DBName,
		DSN:        cfg.DSN,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to ledger database")
	}
	defer db.Close()

	led, err := ledger.NewLedger(ctx, db, floor)
	if err != nil {
		log.Fatal().Err(err).Msg("opening ledger")
	}

	pipe := sync.New(source, sink, led, log)
	if err := pipe.Sync(ctx); err != nil {
		log.Fatal().Err(err).Msg("sync pass failed")
	}
}
