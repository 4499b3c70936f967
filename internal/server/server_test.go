package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"strings"
	"testing"

	"github.com/ironsheep/image-scanner/internal/detection"
	"github.com/ironsheep/image-scanner/internal/scanner"
)

func newTestApp(t *testing.T) *scanner.App {
	t.Helper()
	loader := detection.LoaderFunc(func(ctx context.Context) (detection.Model, error) {
		return detection.ModelFunc(func(ctx context.Context, img image.Image, max int) ([]detection.Prediction, error) {
			return []detection.Prediction{{Class: "person", Score: 0.82, BBox: [4]float64{10, 20, 100, 200}}}, nil
		}), nil
	})
	app := scanner.New(detection.NewDetector(loader, nil), nil, scanner.Options{})
	if err := app.LoadModel(context.Background()); err != nil {
		t.Fatal(err)
	}
	return app
}

func TestNew(t *testing.T) {
	s := New(newTestApp(t), WithVersion("1.2.3"))
	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.version != "1.2.3" {
		t.Errorf("version: got %q", s.version)
	}
	if s.logger == nil {
		t.Error("logger not set")
	}
}

func TestMCPRequest_Unmarshal(t *testing.T) {
	tests := []struct {
		name       string
		json       string
		wantID     interface{}
		wantMethod string
	}{
		{
			"string id",
			`{"jsonrpc":"2.0","id":"test-1","method":"tools/list"}`,
			"test-1",
			"tools/list",
		},
		{
			"number id",
			`{"jsonrpc":"2.0","id":42,"method":"ping"}`,
			float64(42), // JSON numbers decode as float64
			"ping",
		},
		{
			"null id",
			`{"jsonrpc":"2.0","id":null,"method":"initialize"}`,
			nil,
			"initialize",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req MCPRequest
			if err := json.Unmarshal([]byte(tt.json), &req); err != nil {
				t.Fatalf("Failed to unmarshal: %v", err)
			}

			if req.ID != tt.wantID {
				t.Errorf("ID: got %v (%T), want %v (%T)", req.ID, req.ID, tt.wantID, tt.wantID)
			}
			if req.Method != tt.wantMethod {
				t.Errorf("Method: got %s, want %s", req.Method, tt.wantMethod)
			}
		})
	}
}

func TestHandleRequest_Initialize(t *testing.T) {
	s := New(newTestApp(t), WithVersion("0.3.0"))
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "initialize"})

	if resp == nil || resp.Error != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	if result["protocolVersion"] != ProtocolVersion {
		t.Errorf("protocolVersion: got %v", result["protocolVersion"])
	}
	info := result["serverInfo"].(map[string]interface{})
	if info["name"] != "image-scanner" || info["version"] != "0.3.0" {
		t.Errorf("serverInfo: %v", info)
	}
}

func TestHandleRequest_Ping(t *testing.T) {
	s := New(newTestApp(t))
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: "ping-1", Method: "ping"})
	if resp == nil || resp.Error != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.ID != "ping-1" {
		t.Errorf("ID: got %v, want ping-1", resp.ID)
	}
}

func TestHandleRequest_NotificationsInitialized(t *testing.T) {
	s := New(newTestApp(t))
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", Method: "notifications/initialized"})
	if resp != nil {
		t.Error("notifications/initialized should return nil response")
	}
}

func TestHandleRequest_MethodNotFound(t *testing.T) {
	s := New(newTestApp(t))
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "nonexistent/method"})
	if resp == nil || resp.Error == nil {
		t.Fatal("Expected error for unknown method")
	}
	if resp.Error.Code != -32601 {
		t.Errorf("Error code: got %d, want -32601", resp.Error.Code)
	}
}

func TestRun_ReadsLines(t *testing.T) {
	in := strings.NewReader(strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`not json`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
	}, "\n"))
	var out bytes.Buffer

	s := New(newTestApp(t), WithIO(in, &out))
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	dec := json.NewDecoder(&out)
	var responses []MCPResponse
	for dec.More() {
		var resp MCPResponse
		if err := dec.Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		responses = append(responses, resp)
	}

	if len(responses) != 3 {
		t.Fatalf("got %d responses, want 3", len(responses))
	}
	if responses[0].ID != float64(1) || responses[0].Error != nil {
		t.Errorf("initialize: %+v", responses[0])
	}
	if responses[1].Error == nil || responses[1].Error.Code != -32700 {
		t.Errorf("parse error: %+v", responses[1])
	}
	if responses[2].ID != float64(2) || responses[2].Error != nil {
		t.Errorf("tools/list: %+v", responses[2])
	}
}

func TestRun_CancelledContext(t *testing.T) {
	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n")
	var out bytes.Buffer

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := New(newTestApp(t), WithIO(in, &out)).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("cancelled server wrote %q", out.String())
	}
}
