package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
)

// StdioTransport reads line-delimited JSON-RPC frames and writes responses
// back. Stdout carries only protocol frames; everything diagnostic goes to
// the logger, which the binary points at stderr.
type StdioTransport struct {
	server *Server
	in     io.Reader
	out    io.Writer
	logger *log.Logger
}

// NewStdioTransport wires a server to a reader/writer pair.
func NewStdioTransport(server *Server, in io.Reader, out io.Writer, logger *log.Logger) *StdioTransport {
	return &StdioTransport{server: server, in: in, out: out, logger: logger}
}

// Serve processes requests until the input closes or the context is
// cancelled. Requests are handled strictly in order.
func (t *StdioTransport) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(t.in)
	// Documents arrive inline in parse_document calls, so frames can be
	// large.
	scanner.Buffer(make([]byte, 1024*1024), 4*1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req JSONRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			t.logger.Printf("parse error: %v", err)
			if err := t.writeResponse(errorResponse(nil, ErrCodeParse, "parse error")); err != nil {
				return err
			}
			continue
		}

		resp := t.server.HandleRequest(ctx, &req)
		if resp == nil {
			continue // notification
		}
		if err := t.writeResponse(resp); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read frames: %w", err)
	}
	return nil
}

func (t *StdioTransport) writeResponse(resp *JSONRPCResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		// Marshal the failure instead so the client is not left hanging.
		t.logger.Printf("encode response: %v", err)
		fallback := errorResponse(resp.ID, ErrCodeInternal, "internal error")
		data, err = json.Marshal(fallback)
		if err != nil {
			return fmt.Errorf("encode error response: %w", err)
		}
	}
	if _, err := t.out.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}
