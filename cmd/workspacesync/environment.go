// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/workspacesync/cmd/workspacesync/cli"
	"github.com/bureau-foundation/workspacesync/lib/checksum"
	"github.com/bureau-foundation/workspacesync/lib/config"
	"github.com/bureau-foundation/workspacesync/lib/languages"
	"github.com/bureau-foundation/workspacesync/lib/manifest"
	"github.com/bureau-foundation/workspacesync/lib/refserial"
	"github.com/bureau-foundation/workspacesync/lib/serialization"
	"github.com/bureau-foundation/workspacesync/lib/snapshot"
	"github.com/bureau-foundation/workspacesync/lib/workspace"
)

// configParams is embedded by every command that needs configuration.
type configParams struct {
	Config string `flag:"config,c" desc:"configuration file (default: $WORKSPACESYNC_CONFIG, else built-in defaults)"`
}

// environment is the configured stack shared by the commands.
type environment struct {
	config     *config.Config
	logger     *slog.Logger
	serializer *serialization.Serializer
}

func newEnvironment(params configParams) (*environment, error) {
	var cfg *config.Config
	var err error
	switch {
	case params.Config != "":
		cfg, err = config.LoadFile(params.Config)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Resolve()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	logger := cli.NewLogger(level)

	provider, err := newStorageProvider(cfg, logger)
	if err != nil {
		return nil, err
	}
	references, err := refserial.NewStorageSerializer(provider, refserial.Options{
		Compression:          cfg.Serialization.Compression,
		CompressionThreshold: cfg.Serialization.CompressionThreshold,
		Logger:               logger,
	})
	if err != nil {
		return nil, err
	}
	return &environment{
		config: cfg,
		logger: logger,
		serializer: serialization.New(serialization.Options{
			Languages:  languages.Lookup,
			References: references,
			Logger:     logger,
		}),
	}, nil
}

func (e *environment) newService() (*snapshot.Service, error) {
	return snapshot.NewService(snapshot.Options{
		Serializer: e.serializer,
		Logger:     e.logger,
	})
}

// loadedManifest is a manifest together with the solution it
// describes.
type loadedManifest struct {
	manifest *manifest.Manifest
	solution *workspace.SolutionState
}

// loadManifest reads and loads the manifest at file. Entities are
// stamped with the file's modification time, so repeated loads of an
// unchanged manifest produce the same checksums.
func loadManifest(ctx context.Context, file string) (*loadedManifest, error) {
	parsed, err := manifest.ReadFile(file)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(file)
	if err != nil {
		return nil, err
	}
	solution, err := parsed.Load(ctx, manifest.LoadOptions{
		Directory: filepath.Dir(file),
		Version:   info.ModTime(),
	})
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", file, err)
	}
	return &loadedManifest{manifest: parsed, solution: solution}, nil
}

// globalOptionsKey keys the manifest's option set among the global
// assets.
type globalOptionsKey struct{}

// createScope loads the manifest at file into a new scope of service
// and registers its global options.
func createScope(ctx context.Context, service *snapshot.Service, file string) (*snapshot.Scope, *loadedManifest, error) {
	loaded, err := loadManifest(ctx, file)
	if err != nil {
		return nil, nil, err
	}
	if _, err := service.AddGlobalAsset(ctx, globalOptionsKey{}, loaded.manifest.GlobalOptions(), checksum.KindOptionSet); err != nil {
		return nil, nil, fmt.Errorf("registering global options: %w", err)
	}
	scope, err := service.CreateScope(ctx, loaded.solution)
	if err != nil {
		return nil, nil, err
	}
	return scope, loaded, nil
}

func requireOneArgument(args []string, what string) (string, error) {
	switch len(args) {
	case 0:
		return "", fmt.Errorf("%s is required", what)
	case 1:
		return args[0], nil
	default:
		return "", fmt.Errorf("expected one %s, got %d arguments", what, len(args))
	}
}
