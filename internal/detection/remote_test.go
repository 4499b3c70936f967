package detection

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newInferenceServer(t *testing.T, healthStatus int, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(healthStatus)
	})
	mux.HandleFunc("/detect", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRemoteLoader_Detect(t *testing.T) {
	srv := newInferenceServer(t, http.StatusOK, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: got %s, want POST", r.Method)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("max_results"); got != "10" {
			t.Errorf("max_results: got %q, want 10", got)
		}
		f, _, err := r.FormFile("image")
		if err != nil {
			t.Errorf("missing image: %v", err)
		} else {
			img, err := png.Decode(f)
			f.Close()
			if err != nil {
				t.Errorf("image is not PNG: %v", err)
			} else if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
				t.Errorf("image size: got %v", img.Bounds())
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"predictions": []map[string]interface{}{
				{"class": "person", "score": 0.82, "bbox": []float64{10, 20, 100, 200}},
			},
		})
	})

	model, err := NewRemoteLoader(srv.URL+"/", time.Second).Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	preds, err := model.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 40, 30)), MaxCandidates)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(preds) != 1 {
		t.Fatalf("got %d predictions, want 1", len(preds))
	}
	p := preds[0]
	if p.Class != "person" || p.Score != 0.82 || p.BBox != [4]float64{10, 20, 100, 200} {
		t.Errorf("unexpected prediction: %+v", p)
	}
}

func TestRemoteLoader_Unhealthy(t *testing.T) {
	srv := newInferenceServer(t, http.StatusServiceUnavailable, func(w http.ResponseWriter, r *http.Request) {})

	if _, err := NewRemoteLoader(srv.URL, time.Second).Load(context.Background()); err == nil {
		t.Fatal("Load should fail when health check is not 200")
	}
}

func TestRemoteLoader_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	d := NewDetector(NewRemoteLoader(url, time.Second), nil)
	if err := d.Load(context.Background()); !errors.Is(err, ErrModelLoad) {
		t.Fatalf("got %v, want ErrModelLoad", err)
	}
}

func TestRemoteLoader_EmptyURL(t *testing.T) {
	if _, err := NewRemoteLoader("", 0).Load(context.Background()); err == nil {
		t.Fatal("Load should fail without a URL")
	}
}

func TestRemoteModel_ServerError(t *testing.T) {
	srv := newInferenceServer(t, http.StatusOK, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "out of memory"})
	})

	d := NewDetector(NewRemoteLoader(srv.URL, time.Second), nil)
	if err := d.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, err := d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 2, 2)))
	if !errors.Is(err, ErrDetection) {
		t.Errorf("got %v, want ErrDetection", err)
	}
}
