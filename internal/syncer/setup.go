package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openmined/globsync/internal/blob"
	"github.com/openmined/globsync/internal/config"
	"github.com/openmined/globsync/internal/reconcile"
	"github.com/openmined/globsync/internal/remote"
	"github.com/openmined/globsync/internal/scanner"
	"github.com/openmined/globsync/internal/utils"
)

// NewStore returns the store described by cfg. Dummy mode uses an empty MemoryStore.
func NewStore(ctx context.Context, cfg *config.Config) (reconcile.Store, error) {
	if cfg.Dummy {
		slog.Warn("dummy mode, using in-memory remote", "prefix", cfg.Prefix)
		return remote.NewMemoryStore(cfg.Prefix), nil
	}

	blobCfg := cfg.BlobConfig()
	slog.Debug("s3 store",
		"bucket", blobCfg.BucketName,
		"region", blobCfg.Region,
		"endpoint", blobCfg.Endpoint,
		"pathStyle", blobCfg.UsePathStyle,
		"accelerate", blobCfg.UseAccelerate,
		"accessKey", utils.MaskSecret(blobCfg.AccessKey),
		"prefix", cfg.Prefix,
	)

	client, err := blob.NewBlobClientWithS3Config(ctx, blobCfg)
	if err != nil {
		return nil, fmt.Errorf("blob client: %w", err)
	}
	return remote.NewS3Store(client, cfg.Prefix), nil
}

// NewFromConfig wires a Syncer from a validated config. Scanner and rule errors surface here,
// before any remote call.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Syncer, error) {
	scn, err := scanner.New(cfg.Root, cfg.Excludes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	resolver, err := cfg.Resolver()
	if err != nil {
		return nil, err
	}

	store, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return New(scn, store, resolver, cfg.ExecutorOptions(), cfg.CompareCachePolicy), nil
}
