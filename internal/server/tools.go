package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func noArgs() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "scanner_upload",
			Description: "Run object detection on an image file. Any open camera session is closed first. Returns the scanner state with the labelled results.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file. An empty path is ignored.",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "scanner_camera",
			Description: "Toggle the camera: open it when idle, or capture one photo and run detection on it when active.",
			InputSchema: noArgs(),
		},
		{
			Name:        "scanner_stop_camera",
			Description: "Close the camera session without capturing.",
			InputSchema: noArgs(),
		},
		{
			Name:        "scanner_clear",
			Description: "Stop the camera, blank the canvas and reset the results and status line.",
			InputSchema: noArgs(),
		},
		{
			Name:        "scanner_state",
			Description: "Return the current status line, results, camera state and canvas size.",
			InputSchema: noArgs(),
		},
		{
			Name:        "scanner_canvas",
			Description: "Return the annotated canvas as an image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"format": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"png", "jpeg"},
						"description": "Output format. Default png",
						"default":     "png",
					},
				},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
