package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ironsheep/image-scanner/internal/scanner"
)

// ProtocolVersion is the MCP protocol revision the server speaks.
const ProtocolVersion = "2024-11-05"

// Server handles MCP protocol communication
type Server struct {
	app     *scanner.App
	in      io.Reader
	out     io.Writer
	logger  *slog.Logger
	version string
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Option configures a Server.
type Option func(*Server)

// WithIO replaces stdin/stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(s *Server) {
		s.in = in
		s.out = out
	}
}

// WithLogger sets the logger. Logs must never go to the protocol stream.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithVersion sets the version reported in serverInfo.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New creates a new MCP server instance for app
func New(app *scanner.App, opts ...Option) *Server {
	s := &Server{
		app:     app,
		in:      os.Stdin,
		out:     os.Stdout,
		logger:  slog.Default(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "mcp")
	return s
}

// Run reads one JSON-RPC request per line until the input ends or ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	lines := bufio.NewScanner(s.in)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	lines.Buffer(buf, 1024*1024)

	encoder := json.NewEncoder(s.out)

	for lines.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}

		line := lines.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("failed to parse request", "error", err)
			if err := encoder.Encode(errorResponse(nil, -32700, "Parse error", err.Error())); err != nil {
				s.logger.Error("failed to encode response", "error", err)
			}
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.logger.Error("failed to encode response", "error", err)
			}
		}
	}

	if err := lines.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return errorResponse(req.ID, -32601, fmt.Sprintf("Method not found: %s", req.Method), nil)
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "image-scanner",
				"version": s.version,
			},
		},
	}
}
