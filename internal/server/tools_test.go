package server

import (
	"context"
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	expected := []string{
		"scanner_upload",
		"scanner_camera",
		"scanner_stop_camera",
		"scanner_clear",
		"scanner_state",
		"scanner_canvas",
	}

	toolMap := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		if _, dup := toolMap[tool.Name]; dup {
			t.Errorf("duplicate tool %s", tool.Name)
		}
		toolMap[tool.Name] = tool
	}

	for _, name := range expected {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
	if len(toolMap) != len(expected) {
		t.Errorf("got %d tools, want %d", len(toolMap), len(expected))
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", tool.InputSchema["type"])
			}
			if _, ok := tool.InputSchema["properties"].(map[string]interface{}); !ok {
				t.Error("InputSchema properties should be a map")
			}
		})
	}
}

func TestToolDefinitions_UploadRequiresPath(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		if tool.Name != "scanner_upload" {
			continue
		}
		required, ok := tool.InputSchema["required"].([]string)
		if !ok || len(required) != 1 || required[0] != "path" {
			t.Errorf("required: %v", tool.InputSchema["required"])
		}
		return
	}
	t.Fatal("scanner_upload not defined")
}

func TestHandleToolsList(t *testing.T) {
	s := New(newTestApp(t))
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/list"})
	if resp == nil || resp.Error != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	tools, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatal("tools should be a slice of Tool")
	}
	if len(tools) != len(GetToolDefinitions()) {
		t.Errorf("got %d tools", len(tools))
	}
}
