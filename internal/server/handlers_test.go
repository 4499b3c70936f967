package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/image-scanner/internal/scanner"
)

func writeTestPNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	path := filepath.Join(t.TempDir(), "photo.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()
	params := map[string]interface{}{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatal(err)
	}
	return s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  raw,
	})
}

func contentBlocks(t *testing.T, resp *MCPResponse) []map[string]interface{} {
	t.Helper()
	if resp == nil {
		t.Fatal("nil response")
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("result type %T", resp.Result)
	}
	blocks, ok := result["content"].([]map[string]interface{})
	if !ok || len(blocks) == 0 {
		t.Fatalf("content: %v", result["content"])
	}
	return blocks
}

func stateFrom(t *testing.T, resp *MCPResponse) scanner.State {
	t.Helper()
	blocks := contentBlocks(t, resp)
	var st scanner.State
	if err := json.Unmarshal([]byte(blocks[0]["text"].(string)), &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return st
}

func TestTool_Upload(t *testing.T) {
	s := New(newTestApp(t))
	st := stateFrom(t, callTool(t, s, "scanner_upload", map[string]string{"path": writeTestPNG(t, 400, 300)}))

	if st.Status.Text != scanner.MsgDetectDone {
		t.Errorf("status: %q", st.Status.Text)
	}
	if len(st.Results.Items) != 1 || st.Results.Items[0].String() != "person 82.0%" {
		t.Errorf("results: %+v", st.Results.Items)
	}
	if st.Canvas.Width != 400 || st.Canvas.Height != 300 || st.Canvas.Blank {
		t.Errorf("canvas: %+v", st.Canvas)
	}
	if !st.ClearEnabled || st.NoImageVisible {
		t.Errorf("flags: %+v", st)
	}
}

func TestTool_UploadEmptyPathIgnored(t *testing.T) {
	s := New(newTestApp(t))
	st := stateFrom(t, callTool(t, s, "scanner_upload", map[string]string{"path": ""}))
	if st.ClearEnabled || !st.NoImageVisible || st.Status.Text != scanner.MsgModelReady {
		t.Errorf("empty path should change nothing: %+v", st)
	}
}

func TestTool_UploadWithoutArgumentsIgnored(t *testing.T) {
	s := New(newTestApp(t))
	st := stateFrom(t, callTool(t, s, "scanner_upload", nil))
	if st.ClearEnabled || st.Status.Text != scanner.MsgModelReady {
		t.Errorf("missing arguments should change nothing: %+v", st)
	}
}

func TestTool_UploadErrors(t *testing.T) {
	corrupt := filepath.Join(t.TempDir(), "corrupt.png")
	if err := os.WriteFile(corrupt, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.png")},
		{"corrupt file", corrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(newTestApp(t))
			resp := callTool(t, s, "scanner_upload", map[string]string{"path": tt.path})
			if resp.Error == nil {
				t.Fatal("expected error")
			}
			if resp.Error.Code != -32000 {
				t.Errorf("code: got %d, want -32000", resp.Error.Code)
			}
			data, ok := resp.Error.Data.(toolError)
			if !ok {
				t.Fatalf("data type %T", resp.Error.Data)
			}
			if data.Error == "" {
				t.Error("empty error text")
			}
			if tt.name == "corrupt file" && data.State.Status.Text != scanner.MsgDecodeFailed {
				t.Errorf("status: %q", data.State.Status.Text)
			}
		})
	}
}

func TestTool_InvalidParams(t *testing.T) {
	s := New(newTestApp(t))
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("expected -32602, got %+v", resp.Error)
	}

	resp = callTool(t, s, "scanner_upload", "bad")
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Errorf("bad upload args: %+v", resp.Error)
	}
}

func TestTool_Unknown(t *testing.T) {
	s := New(newTestApp(t))
	resp := callTool(t, s, "scanner_teleport", nil)
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Errorf("unknown tool: %+v", resp.Error)
	}
}

func TestTool_CameraUnsupported(t *testing.T) {
	s := New(newTestApp(t))
	resp := callTool(t, s, "scanner_camera", nil)
	if resp.Error == nil {
		t.Fatal("expected error without a camera")
	}
	data := resp.Error.Data.(toolError)
	if data.State.Status.Text != scanner.MsgCameraUnsupport {
		t.Errorf("status: %q", data.State.Status.Text)
	}
}

func TestTool_StopCameraAndState(t *testing.T) {
	s := New(newTestApp(t))
	st := stateFrom(t, callTool(t, s, "scanner_stop_camera", nil))
	if st.CameraButton != scanner.ButtonOpenCamera {
		t.Errorf("camera button: %q", st.CameraButton)
	}
	st = stateFrom(t, callTool(t, s, "scanner_state", nil))
	if st.Status.Text != scanner.MsgModelReady {
		t.Errorf("status: %q", st.Status.Text)
	}
}

func TestTool_Clear(t *testing.T) {
	s := New(newTestApp(t))
	callTool(t, s, "scanner_upload", map[string]string{"path": writeTestPNG(t, 50, 40)})

	st := stateFrom(t, callTool(t, s, "scanner_clear", nil))
	if st.ClearEnabled || !st.NoImageVisible || !st.Canvas.Blank || len(st.Results.Items) != 0 {
		t.Errorf("clear left state: %+v", st)
	}
	if !st.Results.PlaceholderVisible {
		t.Error("placeholder should be visible after clear")
	}
}

func TestTool_Canvas(t *testing.T) {
	s := New(newTestApp(t))
	callTool(t, s, "scanner_upload", map[string]string{"path": writeTestPNG(t, 64, 48)})

	blocks := contentBlocks(t, callTool(t, s, "scanner_canvas", map[string]string{"format": "png"}))
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	if blocks[0]["type"] != "image" || blocks[0]["mimeType"] != "image/png" {
		t.Errorf("image block: %v", blocks[0])
	}

	raw, err := base64.StdEncoding.DecodeString(blocks[0]["data"].(string))
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("canvas size: %v", img.Bounds())
	}
}

func TestTool_CanvasJPEGWithoutArgs(t *testing.T) {
	s := New(newTestApp(t))

	blocks := contentBlocks(t, callTool(t, s, "scanner_canvas", nil))
	if blocks[0]["mimeType"] != "image/png" {
		t.Errorf("default mime: %v", blocks[0]["mimeType"])
	}

	blocks = contentBlocks(t, callTool(t, s, "scanner_canvas", map[string]string{"format": "jpeg"}))
	if blocks[0]["mimeType"] != "image/jpeg" {
		t.Errorf("jpeg mime: %v", blocks[0]["mimeType"])
	}
}

func TestErrorResponse(t *testing.T) {
	resp := errorResponse("x", -32601, "Method not found", nil)
	if resp.JSONRPC != "2.0" || resp.ID != "x" || resp.Error.Code != -32601 {
		t.Errorf("unexpected: %+v", resp)
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(data, []byte(`"data"`)) {
		t.Errorf("nil data should be omitted: %s", data)
	}
}
