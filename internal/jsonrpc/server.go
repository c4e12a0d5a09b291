// Package jsonrpc serves battles to editors over newline-delimited
// JSON-RPC 2.0 on stdio or TCP. Every connection owns one arena session.
package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/spboyer/codearena/internal/arena"
)

// Conn is the per-connection state handed to handlers.
type Conn struct {
	Session *arena.Session

	transport *Transport
}

// Notify sends a server-initiated notification on the connection.
func (c *Conn) Notify(method string, params any) error {
	return c.transport.WriteNotification(&Notification{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	})
}

// Server handles JSON-RPC 2.0 requests over a Transport.
type Server struct {
	registry *MethodRegistry
	logger   *slog.Logger
}

// NewServer creates a JSON-RPC server with the given method registry.
func NewServer(registry *MethodRegistry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{registry: registry, logger: logger}
}

// ServeTransport reads requests from the transport and writes responses
// until the reader returns io.EOF, a read fails or ctx is done. Requests are
// handled one at a time, so a battle holds the connection until it ends.
func (s *Server) ServeTransport(ctx context.Context, t *Transport) {
	conn := &Conn{Session: arena.NewSession(), transport: t}

	for ctx.Err() == nil {
		req, rawJSON, err := t.ReadRequest()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			s.logger.Debug("read error", "error", err)
			s.reply(t, &Response{Error: ErrParseError(err.Error()), ID: json.RawMessage("null")})
			return
		}

		// notifications never get a response
		isNotification := !hasIDField(rawJSON)

		var resp *Response
		switch handler := s.registry.Lookup(req.Method); {
		case req.JSONRPC != "2.0":
			resp = &Response{Error: ErrInvalidRequest(`jsonrpc field must be "2.0"`), ID: req.ID}
		case handler == nil:
			resp = &Response{Error: ErrMethodNotFound(req.Method), ID: req.ID}
		default:
			s.logger.Debug("rpc call", "method", req.Method)
			result, rpcErr := handler(ctx, conn, req.Params)
			resp = &Response{ID: req.ID}
			if rpcErr != nil {
				resp.Error = rpcErr
			} else {
				resp.Result = result
			}
		}

		if isNotification {
			continue
		}
		if !s.reply(t, resp) {
			return
		}
	}
}

func (s *Server) reply(t *Transport, resp *Response) bool {
	resp.JSONRPC = "2.0"
	if err := t.WriteResponse(resp); err != nil {
		s.logger.Debug("write error", "error", err)
		return false
	}
	return true
}

// hasIDField checks whether the raw JSON contains an "id" key at the top level.
func hasIDField(raw []byte) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	_, exists := obj["id"]
	return exists
}

// ServeStdio runs the server on stdin/stdout.
func (s *Server) ServeStdio(ctx context.Context, stdin io.Reader, stdout io.Writer) {
	s.ServeTransport(ctx, NewTransport(stdin, stdout))
}
