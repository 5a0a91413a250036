// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net"
	"time"

	"github.com/bureau-foundation/workspacesync/lib/checksum"
	"github.com/bureau-foundation/workspacesync/lib/codec"
	"github.com/bureau-foundation/workspacesync/lib/serialization"
	"github.com/bureau-foundation/workspacesync/lib/wire"
)

const (
	dialTimeout = 5 * time.Second

	// responseReadTimeout covers the server's read and write
	// timeouts plus handler time.
	responseReadTimeout = readTimeout + writeTimeout

	maxResponseSize = wire.MaxLength
)

// ErrMissingObject is returned when a checksum cannot be resolved,
// either by the server or in a Replica.
var ErrMissingObject = errors.New("assetsync: object not found")

// ServiceError is a failure reported by the server (ok=false).
// Transport and decoding failures are plain errors.
type ServiceError struct {
	Action  string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("asset sync error on %q: %s", e.Action, e.Message)
}

// Client talks to a Server. Each call uses its own connection.
type Client struct {
	socketPath string
	serializer *serialization.Serializer
}

// NewClient returns a client for the server at socketPath. serializer
// decodes and verifies fetched objects; it must resolve the same
// languages as the server's.
func NewClient(socketPath string, serializer *serialization.Serializer) *Client {
	return &Client{socketPath: socketPath, serializer: serializer}
}

// Call sends action with fields and decodes the response data into
// result, if both are non-nil. fields must not contain "action".
func (c *Client) Call(ctx context.Context, action string, fields map[string]any, result any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	request := make(map[string]any, len(fields)+1)
	maps.Copy(request, fields)
	request["action"] = action

	response, err := c.send(ctx, request)
	if err != nil {
		return fmt.Errorf("calling %q on %s: %w", action, c.socketPath, err)
	}
	if !response.OK {
		return &ServiceError{Action: action, Message: response.Error}
	}
	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding response data for %q: %w", action, err)
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, request any) (*Response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	// Unblock the read below if ctx ends first.
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	conn.SetReadDeadline(time.Now().Add(responseReadTimeout))
	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &response, nil
}

// Scopes lists the server's live scopes.
func (c *Client) Scopes(ctx context.Context) ([]ScopeInfo, error) {
	var scopes []ScopeInfo
	if err := c.Call(ctx, ActionScopes, nil, &scopes); err != nil {
		return nil, err
	}
	return scopes, nil
}

// GetObjects fetches sums and returns the verified objects in the
// server's order, plus the checksums the server could not resolve.
// Checksums the server defers to stay within its response budget are
// requested again until every one is answered. Reading an object whose
// content does not hash to its checksum is an invariant violation.
func (c *Client) GetObjects(ctx context.Context, sums []checksum.Checksum) ([]serialization.Object, []checksum.Checksum, error) {
	if len(sums) > MaxBatch {
		return nil, nil, fmt.Errorf("get_objects: %d checksums exceeds the batch limit of %d", len(sums), MaxBatch)
	}
	var objects []serialization.Object
	var missing []checksum.Checksum
	pending := sums
	for len(pending) > 0 {
		received, response, err := c.getObjects(ctx, pending)
		if err != nil {
			closeObjects(objects)
			return nil, nil, err
		}
		objects = append(objects, received...)
		missing = append(missing, response.Missing...)
		if len(response.Deferred) > 0 && len(received) == 0 {
			closeObjects(objects)
			return nil, nil, fmt.Errorf("get_objects: server deferred %d checksums without sending any", len(response.Deferred))
		}
		pending = response.Deferred
	}
	return objects, missing, nil
}

// getObjects performs one get_objects round trip.
func (c *Client) getObjects(ctx context.Context, sums []checksum.Checksum) ([]serialization.Object, *GetObjectsResponse, error) {
	var response GetObjectsResponse
	if err := c.Call(ctx, ActionGetObjects, map[string]any{"checksums": sums}, &response); err != nil {
		return nil, nil, err
	}

	requested := make(map[checksum.Checksum]struct{}, len(sums))
	for _, sum := range sums {
		requested[sum] = struct{}{}
	}
	for _, sum := range response.Deferred {
		if _, ok := requested[sum]; !ok {
			return nil, nil, fmt.Errorf("server deferred unrequested checksum %s", sum.Short())
		}
	}
	reader := wire.NewReader(bytes.NewReader(response.Objects))
	count := reader.ReadCount()
	if err := reader.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading get_objects payload: %w", err)
	}
	objects := make([]serialization.Object, 0, wire.Prealloc(count))
	for range count {
		object, err := c.serializer.ReadObject(ctx, reader)
		if err != nil {
			closeObjects(objects)
			return nil, nil, fmt.Errorf("reading get_objects payload: %w", err)
		}
		objects = append(objects, object)
		if _, ok := requested[object.Checksum]; !ok {
			closeObjects(objects)
			return nil, nil, fmt.Errorf("server sent unrequested %s %s", object.Kind, object.Checksum.Short())
		}
	}
	return objects, &response, nil
}

// closeObjects releases resources held by decoded objects that will
// not be kept.
func closeObjects(objects []serialization.Object) {
	for _, object := range objects {
		if closer, ok := object.Value.(io.Closer); ok {
			closer.Close()
		}
	}
}
