package web

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ironsheep/image-scanner/internal/camera"
	"github.com/ironsheep/image-scanner/internal/detection"
	"github.com/ironsheep/image-scanner/internal/imaging"
	"github.com/ironsheep/image-scanner/internal/scanner"
)

// actionResponse is returned by every state-changing endpoint. The state is
// always present, including on error, so the UI can show the status line.
type actionResponse struct {
	State scanner.State `json:"state"`
	Error string        `json:"error,omitempty"`
}

type handlers struct {
	app    *scanner.App
	logger *slog.Logger
}

func (h *handlers) health(c *gin.Context) {
	st := h.app.State()
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"model":  st.ModelState,
		"camera": st.CameraState,
	})
}

func (h *handlers) state(c *gin.Context) {
	c.JSON(http.StatusOK, h.app.State())
}

func (h *handlers) upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		h.respond(c, nil)
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, actionResponse{State: h.app.State(), Error: err.Error()})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, actionResponse{State: h.app.State(), Error: err.Error()})
		return
	}
	defer f.Close()

	h.logger.Info("upload received", "filename", fh.Filename, "size", fh.Size,
		"request_id", c.GetString("request_id"))
	h.respond(c, h.app.Upload(c.Request.Context(), f))
}

func (h *handlers) toggleCamera(c *gin.Context) {
	h.respond(c, h.app.ToggleCamera(c.Request.Context()))
}

func (h *handlers) stopCamera(c *gin.Context) {
	h.app.StopCamera()
	h.respond(c, nil)
}

func (h *handlers) clear(c *gin.Context) {
	h.app.Clear()
	h.respond(c, nil)
}

func (h *handlers) canvas(c *gin.Context) {
	format := imaging.ParseFormat(c.DefaultQuery("format", "png"))

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, h.app.Canvas(), format); err != nil {
		h.logger.Error("canvas encode failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, format.MimeType(), buf.Bytes())
}

func (h *handlers) respond(c *gin.Context, err error) {
	resp := actionResponse{State: h.app.State()}
	if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(statusCode(err), resp)
}

// statusCode maps a controller error to an HTTP status.
func statusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, imaging.ErrDecode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, detection.ErrModelUnavailable), errors.Is(err, detection.ErrModelLoad):
		return http.StatusServiceUnavailable
	case errors.Is(err, scanner.ErrSuperseded), errors.Is(err, camera.ErrCancelled):
		return http.StatusConflict
	case errors.Is(err, camera.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, camera.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, camera.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
