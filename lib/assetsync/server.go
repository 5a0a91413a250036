// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/workspacesync/lib/checksum"
	"github.com/bureau-foundation/workspacesync/lib/codec"
	"github.com/bureau-foundation/workspacesync/lib/netutil"
	"github.com/bureau-foundation/workspacesync/lib/snapshot"
	"github.com/bureau-foundation/workspacesync/lib/wire"
)

// Action names understood by the server.
const (
	ActionScopes     = "scopes"
	ActionGetObjects = "get_objects"
)

// ActionFunc handles one request. raw is the whole CBOR request map,
// including "action". A nil result produces {ok: true} with no data.
type ActionFunc func(ctx context.Context, raw []byte) (any, error)

// Response is the envelope of every reply.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// ScopeInfo describes one live scope.
type ScopeInfo struct {
	Checksum        checksum.Checksum `cbor:"checksum"`
	Solution        string            `cbor:"solution"`
	CreatedUnixNano int64             `cbor:"created_unix_nano"`
}

// GetObjectsRequest is the body of a get_objects request.
type GetObjectsRequest struct {
	Checksums []checksum.Checksum `cbor:"checksums"`
}

// GetObjectsResponse carries the framed objects that resolved, the
// checksums that did not, and the resolved checksums held back because
// the response reached its byte budget. Deferred checksums should be
// requested again.
type GetObjectsResponse struct {
	Objects  []byte              `cbor:"objects"`
	Missing  []checksum.Checksum `cbor:"missing,omitempty"`
	Deferred []checksum.Checksum `cbor:"deferred,omitempty"`
}

const (
	readTimeout  = 30 * time.Second
	writeTimeout = 30 * time.Second

	// maxRequestSize bounds a request. A get_objects request of
	// MaxBatch checksums is well under it.
	maxRequestSize = 1 << 20

	// MaxBatch is the largest number of checksums one get_objects
	// request may carry.
	MaxBatch = 4096

	// DefaultResponseBudget is the framed object size after which a
	// get_objects response defers the rest of its batch. It leaves
	// room under the client's response limit for one large object.
	DefaultResponseBudget = maxResponseSize / 4
)

// Server serves a snapshot.Service on a Unix socket.
type Server struct {
	socketPath string
	snapshots  *snapshot.Service
	handlers   map[string]ActionFunc
	logger     *slog.Logger
	budget     int

	active sync.WaitGroup
}

// NewServer returns a server for snapshots listening on socketPath,
// with the scopes and get_objects actions registered.
func NewServer(socketPath string, snapshots *snapshot.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	server := &Server{
		socketPath: socketPath,
		snapshots:  snapshots,
		handlers:   make(map[string]ActionFunc),
		logger:     logger,
		budget:     DefaultResponseBudget,
	}
	server.Handle(ActionScopes, server.handleScopes)
	server.Handle(ActionGetObjects, server.handleGetObjects)
	return server
}

// Handle registers handler for action. It must be called before Serve.
// Registering an action twice panics.
func (s *Server) Handle(action string, handler ActionFunc) {
	if _, exists := s.handlers[action]; exists {
		panic(fmt.Sprintf("assetsync.Server: duplicate handler for action %q", action))
	}
	s.handlers[action] = handler
}

// SetResponseBudget changes the get_objects byte budget. It must be
// called before Serve.
func (s *Server) SetResponseBudget(budget int) {
	if budget <= 0 {
		panic(fmt.Sprintf("assetsync.Server: response budget must be positive, got %d", budget))
	}
	s.budget = budget
}

// Serve accepts connections until ctx is cancelled, then waits for
// in-flight requests to finish. A stale socket file at the path is
// replaced, and the socket file is removed on return.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("asset sync server listening", "path", s.socketPath)
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}
		s.active.Add(1)
		go func() {
			defer s.active.Done()
			s.serveConn(ctx, conn)
		}()
	}
	s.active.Wait()
	return nil
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(readTimeout))

	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&raw); err != nil {
		if netutil.IsExpectedCloseError(err) {
			return
		}
		if netutil.IsTimeout(err) {
			s.logger.Debug("request read timed out")
			return
		}
		s.reply(conn, Response{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	var header struct {
		Action string `cbor:"action"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		s.reply(conn, Response{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if header.Action == "" {
		s.reply(conn, Response{Error: "missing required field: action"})
		return
	}
	handler, exists := s.handlers[header.Action]
	if !exists {
		s.reply(conn, Response{Error: fmt.Sprintf("unknown action %q", header.Action)})
		return
	}

	result, err := handler(ctx, raw)
	if err != nil {
		s.logger.Debug("action failed", "action", header.Action, "error", err)
		s.reply(conn, Response{Error: err.Error()})
		return
	}
	response := Response{OK: true}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			s.reply(conn, Response{Error: fmt.Sprintf("internal: marshaling response: %v", err)})
			return
		}
		response.Data = data
	}
	s.reply(conn, response)
}

func (s *Server) reply(conn net.Conn, response Response) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(response); err != nil && !netutil.IsExpectedCloseError(err) {
		s.logger.Warn("failed to write response", "ok", response.OK, "error", err)
	}
}

func (s *Server) handleScopes(ctx context.Context, raw []byte) (any, error) {
	scopes := s.snapshots.Collection().Scopes()
	infos := make([]ScopeInfo, 0, len(scopes))
	for _, scope := range scopes {
		info := ScopeInfo{
			Checksum:        scope.Checksum(),
			CreatedUnixNano: scope.Created().UnixNano(),
		}
		if solution := scope.Cache().Solution(); solution != nil {
			info.Solution = solution.ID().String()
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (s *Server) handleGetObjects(ctx context.Context, raw []byte) (any, error) {
	var request GetObjectsRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid get_objects request: %w", err)
	}
	if len(request.Checksums) > MaxBatch {
		return nil, fmt.Errorf("get_objects: %d checksums exceeds the batch limit of %d", len(request.Checksums), MaxBatch)
	}

	objects, missing := s.snapshots.FindObjects(request.Checksums)
	found := objects[:0]
	for _, object := range objects {
		if object != nil {
			found = append(found, object)
		}
	}
	var buffer bytes.Buffer
	written, err := s.snapshots.WriteObjectsWithin(ctx, wire.NewWriter(&buffer), found, s.budget)
	if err != nil {
		return nil, err
	}
	var deferred []checksum.Checksum
	for _, object := range found[written:] {
		deferred = append(deferred, object.Checksum())
	}
	if len(missing) > 0 || len(deferred) > 0 {
		s.logger.Debug("get_objects answered part of its batch",
			"requested", len(request.Checksums),
			"missing", len(missing),
			"deferred", len(deferred),
		)
	}
	return GetObjectsResponse{Objects: buffer.Bytes(), Missing: missing, Deferred: deferred}, nil
}
