package main

import (
	"context"
	"fmt"

	"github.com/andresuchdata/zenodo-publish/internal/config"
	"github.com/andresuchdata/zenodo-publish/internal/drive"
	"github.com/andresuchdata/zenodo-publish/internal/source"
	"github.com/andresuchdata/zenodo-publish/internal/storage"
	"github.com/andresuchdata/zenodo-publish/pkg/logger"
)

// newPayloadResolver wires the remote payload backends that are configured.
// Unconfigured backends stay nil and only fail when a payload needs them.
func newPayloadResolver(ctx context.Context, cfg *config.Config) (*source.Resolver, error) {
	r := &source.Resolver{TempDir: cfg.App.DownloadDir}

	if cfg.Storage.Endpoint != "" {
		client, err := storage.NewS3Client(storage.S3Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to set up object storage: %w", err)
		}
		r.Objects = client
		logger.Log.Debug().Str("endpoint", cfg.Storage.Endpoint).Msg("object storage payloads enabled")
	}

	if cfg.Drive.CredentialsJSON != "" {
		srv, err := drive.NewService(ctx, cfg.Drive.CredentialsJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to set up google drive: %w", err)
		}
		r.Drive = srv
		logger.Log.Debug().Msg("google drive payloads enabled")
	}

	return r, nil
}
