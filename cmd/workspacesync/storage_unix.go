// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package main

import (
	"log/slog"

	"github.com/bureau-foundation/workspacesync/lib/config"
	"github.com/bureau-foundation/workspacesync/lib/tempstorage"
)

// newStorageProvider returns the mmap-backed provider when configured,
// else heap storage.
func newStorageProvider(cfg *config.Config, logger *slog.Logger) (tempstorage.Provider, error) {
	if !cfg.Storage.MemoryMapped {
		return tempstorage.NewMemoryProvider(), nil
	}
	if err := cfg.EnsureStorageDirectory(); err != nil {
		return nil, err
	}
	return tempstorage.NewMappedProvider(cfg.Storage.Directory, logger)
}
