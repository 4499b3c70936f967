package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RemoteLoader loads a model served by an HTTP inference service.
//
// The service must expose:
//
//	GET  {base}/health  -> 200 when the model is loaded
//	POST {base}/detect  multipart: image (PNG), max_results
//	                    -> {"predictions":[{"class","score","bbox"}]}
type RemoteLoader struct {
	BaseURL string
	Client  *http.Client
}

// NewRemoteLoader returns a loader for the service at baseURL using an HTTP
// client with the given timeout (30s if zero).
func NewRemoteLoader(baseURL string, timeout time.Duration) *RemoteLoader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteLoader{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

// Load checks that the service is reachable and healthy.
func (l *RemoteLoader) Load(ctx context.Context) (Model, error) {
	if l.BaseURL == "" {
		return nil, fmt.Errorf("inference URL not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.BaseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := l.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference service unhealthy: HTTP %d", resp.StatusCode)
	}

	return &RemoteModel{endpoint: l.BaseURL + "/detect", client: l.client()}, nil
}

func (l *RemoteLoader) client() *http.Client {
	if l.Client != nil {
		return l.Client
	}
	return http.DefaultClient
}

// RemoteModel runs inference through an HTTP service. Create it with
// RemoteLoader.Load.
type RemoteModel struct {
	endpoint string
	client   *http.Client
}

type remoteResponse struct {
	Predictions []Prediction `json:"predictions"`
	Error       string       `json:"error,omitempty"`
}

// Detect posts img as PNG and returns the service's predictions.
func (m *RemoteModel) Detect(ctx context.Context, img image.Image, maxCandidates int) ([]Prediction, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", "frame.png")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if err := png.Encode(part, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	if err := writer.WriteField("max_results", strconv.Itoa(maxCandidates)); err != nil {
		return nil, fmt.Errorf("write field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	var result remoteResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("inference failed with status: %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if result.Error != "" {
			return nil, fmt.Errorf("inference failed with status %d: %s", resp.StatusCode, result.Error)
		}
		return nil, fmt.Errorf("inference failed with status: %d", resp.StatusCode)
	}

	return result.Predictions, nil
}
