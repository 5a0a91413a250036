// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Workspacesync computes, serves and replicates checksum snapshots of
// solutions described by JSONC manifests.
//
//	workspacesync checksum ws.jsonc      print the solution checksum
//	workspacesync dump ws.jsonc          print the checksum tree
//	workspacesync serve ws.jsonc         serve a snapshot on a socket
//	workspacesync sync --verify          replicate the served snapshot
//
// Configuration comes from --config, else from the file named by
// WORKSPACESYNC_CONFIG, else from built-in defaults.
package main
