// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !(darwin || linux)

package main

import (
	"log/slog"

	"github.com/bureau-foundation/workspacesync/lib/config"
	"github.com/bureau-foundation/workspacesync/lib/tempstorage"
)

func newStorageProvider(cfg *config.Config, logger *slog.Logger) (tempstorage.Provider, error) {
	if cfg.Storage.MemoryMapped {
		logger.Warn("memory-mapped storage is not supported on this platform; using heap storage")
	}
	return tempstorage.NewMemoryProvider(), nil
}
