package mcp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// MaxMessageSize bounds a single protocol line (1MB), well beyond the
// default scanner buffer, to accommodate large tool responses.
const MaxMessageSize = 1024 * 1024

// errMalformedLine marks input that was read but could not be parsed,
// so the caller can answer with a ParseError instead of dying.
type errMalformedLine struct {
	cause error
}

func (e *errMalformedLine) Error() string {
	return fmt.Sprintf("malformed message: %v", e.cause)
}

// readMessage reads one newline-delimited JSON-RPC message.
func (s *Server) readMessage() (*Message, error) {
	if s.scanner == nil {
		s.scanner = bufio.NewScanner(s.in)
		s.scanner.Buffer(make([]byte, MaxMessageSize), MaxMessageSize)
	}

	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		return nil, io.EOF
	}

	line := s.scanner.Bytes()
	s.logger.Debug("received message", "raw", string(line))

	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, &errMalformedLine{cause: err}
	}
	return &msg, nil
}

// writeMessage writes one JSON-RPC message followed by a newline.
func (s *Server) writeMessage(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	s.logger.Debug("sending message", "raw", string(data))

	if _, err := fmt.Fprintf(s.out, "%s\n", data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
