// Package mcp exposes the command layer as a newline-delimited
// JSON-RPC 2.0 server following the MCP tool-call convention. One
// request, one response; malformed input yields an error response
// without terminating the session.
package mcp

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"cim/internal/command"
	cimerrors "cim/internal/errors"
)

// Server reads JSON-RPC requests from a stream and answers each on
// the output stream. It is stateless per call aside from the session
// identity.
type Server struct {
	in      io.Reader
	out     io.Writer
	scanner *bufio.Scanner
	logger  *slog.Logger

	service   *command.Service
	version   string
	sessionID string

	ctx context.Context
}

// NewServer creates a server over stdio.
func NewServer(service *command.Service, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		in:        os.Stdin,
		out:       os.Stdout,
		logger:    logger,
		service:   service,
		version:   version,
		sessionID: uuid.NewString(),
	}
}

// SetStreams replaces the input and output streams, for tests and
// embedders.
func (s *Server) SetStreams(in io.Reader, out io.Writer) {
	s.in = in
	s.out = out
	s.scanner = nil
}

// Start runs the message loop until the input stream closes or ctx is
// cancelled. Per-message failures never terminate the loop.
func (s *Server) Start(ctx context.Context) error {
	s.ctx = ctx
	s.logger.Info("mcp server starting", "version", s.version, "session", s.sessionID)

	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info("mcp server shutting down", "reason", err)
			return nil
		}

		msg, err := s.readMessage()
		if err != nil {
			if err == io.EOF {
				s.logger.Info("mcp server shutting down (eof)")
				return nil
			}
			var malformed *errMalformedLine
			if errors.As(err, &malformed) {
				perr := cimerrors.NewProtocolParseError(malformed.cause)
				s.logger.Warn("dropping malformed message", "error", perr)
				_ = s.writeMessage(NewErrorMessage(nil, ParseError, perr.Message, string(perr.Code)))
				continue
			}
			return err
		}

		response := s.handleMessage(msg)
		if response == nil {
			continue
		}
		if err := s.writeMessage(response); err != nil {
			s.logger.Error("write response failed", "error", err)
		}
	}
}
