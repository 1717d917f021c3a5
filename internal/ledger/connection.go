package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	rdsutils "github.com/aws/aws-sdk-go-v2/feature/rds/auth"
)

// ConnectionConfig describes how to reach the ledger's backing
// Postgres database. When AWSProfile is set, the connection is
// authenticated with a short-lived IAM token built via
// aws-sdk-go-v2/feature/rds/auth instead of a static password; this
// mirrors how the broader mirror talks to RDS elsewhere.
type ConnectionConfig struct {
	AWSProfile string
	AWSRegion  string

	DBEndpoint string // host:port
	DBUser     string
	DBName     string

	// DSN is used verbatim when AWSProfile is empty, for local/dev use
	// against a non-IAM-authenticated Postgres instance.
	DSN string
}

// Connect opens and pings a *sql.DB for the ledger, using IAM
// authentication when cfg.AWSProfile is set.
func Connect(ctx context.Context, cfg ConnectionConfig) (*sql.DB, error) {
	dsn := cfg.DSN
	if cfg.AWSProfile != "" {
		token, err := buildAuthToken(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("ledger: building RDS IAM auth token: %w", err)
		}
		dsn = fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=require",
			url.QueryEscape(cfg.DBUser), url.QueryEscape(token), cfg.DBEndpoint, url.QueryEscape(cfg.DBName))
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: opening database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ledger: pinging database: %w", err)
	}
	return db, nil
}

func buildAuthToken(ctx context.Context, cfg ConnectionConfig) (string, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
		awsconfig.WithSharedConfigProfile(cfg.AWSProfile),
	)
	if err != nil {
		return "", fmt.Errorf("loading AWS config: %w", err)
	}

	token, err := rdsutils.BuildAuthToken(ctx, cfg.DBEndpoint, cfg.AWSRegion, cfg.DBUser, awsCfg.Credentials)
	if err != nil {
		return "", fmt.Errorf("building auth token: %w", err)
	}
	return token, nil
}
