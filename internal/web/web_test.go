package web

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ironsheep/image-scanner/internal/assetcache"
	"github.com/ironsheep/image-scanner/internal/detection"
	"github.com/ironsheep/image-scanner/internal/scanner"
)

type testEnv struct {
	handler http.Handler
	proxy   *assetcache.Proxy
	static  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
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

	fsys, err := Assets("")
	if err != nil {
		t.Fatal(err)
	}
	static := StaticHandler(fsys)
	proxy := assetcache.New(assetcache.NewMemory(), assetcache.Options{})

	return &testEnv{
		handler: Build(Options{App: app, Proxy: proxy, Static: static}),
		proxy:   proxy,
		static:  static,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		fw, err := mw.CreateFormFile(field, "photo.png")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
	} else {
		mw.WriteField("note", "no file here")
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeAction(t *testing.T, rec *httptest.ResponseRecorder) actionResponse {
	t.Helper()
	var resp actionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func TestAPI_State(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/state", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}

	var st scanner.State
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.Status.Text != scanner.MsgModelReady || st.CameraButton != scanner.ButtonOpenCamera {
		t.Errorf("unexpected state: %+v", st)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestAPI_Upload(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(uploadRequest(t, "file", pngBytes(t, 400, 300)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d body=%s", rec.Code, rec.Body.String())
	}
	resp := decodeAction(t, rec)
	if len(resp.State.Results.Items) != 1 || resp.State.Results.Items[0].String() != "person 82.0%" {
		t.Errorf("results: %+v", resp.State.Results.Items)
	}
	if resp.State.Canvas.Width != 400 || resp.State.Canvas.Height != 300 {
		t.Errorf("canvas: %+v", resp.State.Canvas)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/canvas", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("canvas: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 400 || img.Bounds().Dy() != 300 {
		t.Errorf("canvas size: %v", img.Bounds())
	}
}

func TestAPI_UploadWithoutFileIgnored(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(uploadRequest(t, "", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	if resp := decodeAction(t, rec); resp.State.ClearEnabled || resp.Error != "" {
		t.Errorf("missing file should be ignored: %+v", resp)
	}
}

func TestAPI_UploadCorrupt(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(uploadRequest(t, "file", []byte("definitely not a png")))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d, want 422", rec.Code)
	}
	resp := decodeAction(t, rec)
	if resp.State.Status.Text != scanner.MsgDecodeFailed || resp.Error == "" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestAPI_CameraUnsupported(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/camera", nil))
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status: got %d, want 501", rec.Code)
	}
	if resp := decodeAction(t, rec); resp.State.Status.Text != scanner.MsgCameraUnsupport {
		t.Errorf("status text: %q", resp.State.Status.Text)
	}
}

func TestAPI_Clear(t *testing.T) {
	env := newTestEnv(t)
	env.do(uploadRequest(t, "file", pngBytes(t, 20, 20)))

	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/clear", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	st := decodeAction(t, rec).State
	if st.ClearEnabled || !st.NoImageVisible || !st.Canvas.Blank || len(st.Results.Items) != 0 {
		t.Errorf("clear left state: %+v", st)
	}
}

func TestStatic_ServedThroughCache(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("content type: %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "Image Scanner") {
		t.Error("index.html not served")
	}
	if rec.Header().Get(assetcache.CacheHeader) != "miss" {
		t.Errorf("first request should miss, got %q", rec.Header().Get(assetcache.CacheHeader))
	}

	if err := env.proxy.Install(context.Background(), env.static); err != nil {
		t.Fatalf("Install: %v", err)
	}
	for _, asset := range assetcache.DefaultAssets() {
		rec := env.do(httptest.NewRequest(http.MethodGet, asset, nil))
		if rec.Code != http.StatusOK || rec.Header().Get(assetcache.CacheHeader) != "hit" {
			t.Errorf("%s: status %d cache %q", asset, rec.Code, rec.Header().Get(assetcache.CacheHeader))
		}
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/manifest.webmanifest", nil))
	if rec.Header().Get("Content-Type") != "application/manifest+json" {
		t.Errorf("manifest content type: %q", rec.Header().Get("Content-Type"))
	}
}

func TestStatic_RequestIDNotCached(t *testing.T) {
	env := newTestEnv(t)

	for _, id := range []string{"req-A", "req-B"} {
		req := httptest.NewRequest(http.MethodGet, "/app.js", nil)
		req.Header.Set(RequestIDHeader, id)
		rec := env.do(req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", id, rec.Code)
		}
		if got := rec.Header().Values(RequestIDHeader); len(got) != 1 || got[0] != id {
			t.Errorf("%s: request id header %v (cache %s)", id, got, rec.Header().Get(assetcache.CacheHeader))
		}
	}
}

func TestStatic_NotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/does-not-exist.js", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}

func TestStatusCode(t *testing.T) {
	if got := statusCode(scanner.ErrSuperseded); got != http.StatusConflict {
		t.Errorf("superseded: got %d", got)
	}
	if got := statusCode(detection.ErrModelUnavailable); got != http.StatusServiceUnavailable {
		t.Errorf("model unavailable: got %d", got)
	}
	if got := statusCode(detection.ErrDetection); got != http.StatusInternalServerError {
		t.Errorf("detection: got %d", got)
	}
}

func TestServe_Shutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, ln, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}), time.Second, nil)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status: %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
