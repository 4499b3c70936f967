package server

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ironsheep/image-scanner/internal/imaging"
	"github.com/ironsheep/image-scanner/internal/scanner"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "scanner_upload").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// toolError carries the scanner state alongside a failed tool call so the
// client always sees the status line.
type toolError struct {
	Error string        `json:"error"`
	State scanner.State `json:"state"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000
// whose data holds the error and the scanner state.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	if params.Name == "scanner_canvas" {
		return s.handleCanvas(req.ID, params.Arguments)
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", "tool", params.Name, "error", err)
		return errorResponse(req.ID, -32000, "Tool execution failed", toolError{
			Error: err.Error(),
			State: s.app.State(),
		})
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "scanner_upload":
		return s.handleUpload(ctx, args)
	case "scanner_camera":
		if err := s.app.ToggleCamera(ctx); err != nil {
			return nil, err
		}
		return s.app.State(), nil
	case "scanner_stop_camera":
		s.app.StopCamera()
		return s.app.State(), nil
	case "scanner_clear":
		s.app.Clear()
		return s.app.State(), nil
	case "scanner_state":
		return s.app.State(), nil
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

type uploadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleUpload(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a uploadArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
	}
	if a.Path == "" {
		return s.app.State(), nil
	}

	f, err := os.Open(a.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", imaging.ErrDecode, err)
	}
	defer f.Close()

	if err := s.app.Upload(ctx, f); err != nil {
		return nil, err
	}
	return s.app.State(), nil
}

type canvasArgs struct {
	Format string `json:"format"`
}

// handleCanvas returns the canvas as MCP image content plus a text block
// describing it.
func (s *Server) handleCanvas(id interface{}, args json.RawMessage) *MCPResponse {
	var a canvasArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return errorResponse(id, -32602, "Invalid params", err.Error())
		}
	}

	enc, err := imaging.EncodeBase64(s.app.Canvas(), imaging.ParseFormat(a.Format))
	if err != nil {
		return errorResponse(id, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type":     "image",
					"data":     enc.ImageBase64,
					"mimeType": enc.MimeType,
				},
				{
					"type": "text",
					"text": fmt.Sprintf("canvas %dx%d %s", enc.Width, enc.Height, enc.MimeType),
				},
			},
		},
	}
}
