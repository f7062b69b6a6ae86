package vault

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"fdp-go/internal/config"
	"fdp-go/internal/database"
	"fdp-go/internal/fdp"
)

// NewVaultFromConfig creates a Vault implementation based on the vault config type.
// Vaults holding open files (sqlite, bolt) also implement io.Closer.
func NewVaultFromConfig(ctx context.Context, cfg config.VaultConfig) (fdp.Vault, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryVault(), nil
	case "filesystem":
		if cfg.FSVaultRoot == "" {
			return nil, fmt.Errorf("filesystem vault requires fs_vault_root to be set")
		}
		return NewFileSystemVault(cfg.FSVaultRoot)
	case "sqlite":
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite vault requires sqlite_path to be set")
		}
		return database.NewSQLiteVault(cfg.SQLitePath)
	case "bolt":
		if cfg.BoltPath == "" {
			return nil, fmt.Errorf("bolt vault requires bolt_path to be set")
		}
		return NewBoltVault(cfg.BoltPath)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
		}
		client, err := newS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewS3Vault(client, cfg.S3Bucket, cfg.S3Prefix), nil
	case "http":
		if cfg.HTTPURL == "" {
			return nil, fmt.Errorf("http vault requires http_url to be set")
		}
		return NewHTTPVault(cfg.HTTPURL, nil)
	default:
		return nil, fmt.Errorf("unknown vault type: %s", cfg.Type)
	}
}

func newS3Client(ctx context.Context, cfg config.VaultConfig) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	}), nil
}
