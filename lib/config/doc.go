// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for workspacesync.
//
// Configuration is loaded from a single file named by either the
// WORKSPACESYNC_CONFIG environment variable (via [Load]) or the
// --config flag (via [LoadFile]). There is no discovery and no
// per-field environment override.
//
// The file may carry development and production sections that override
// base values when [Config].Environment matches. Production defaults
// are stricter: the leak threshold is shorter and logging is at info.
//
// Path fields support ${HOME}, ${WORKSPACESYNC_ROOT} and
// ${VAR:-default} expansion after loading.
package config
