package api

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"officebot/internal/auth"
	"officebot/internal/extract"
)

// multipart overhead allowed on top of the file itself
const formOverhead = 1 << 20

type Extractor interface {
	Extract(ctx context.Context, data []byte, fileName, mimeType string) extract.Result
}

// Handler serves the operational HTTP surface next to the bot.
type Handler struct {
	extractor   Extractor
	provider    string
	maxFileSize int64
	guard       *auth.Guard
}

// NewHandler constructs a Handler instance. A nil guard leaves /api open.
func NewHandler(extractor Extractor, provider string, maxFileSize int64, guard *auth.Guard) *Handler {
	if maxFileSize <= 0 {
		maxFileSize = 20 << 20
	}
	return &Handler{
		extractor:   extractor,
		provider:    provider,
		maxFileSize: maxFileSize,
		guard:       guard,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.health)
	api := router.Group("/api")
	api.Use(h.guard.Middleware())
	api.POST("/extract", h.extractFile)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "provider": h.provider})
}

type extractResponse struct {
	Kind    string `json:"kind"`
	Status  string `json:"status"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message"`
}

func (h *Handler) extractFile(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxFileSize+formOverhead)
	file, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if file.Size > h.maxFileSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open file failed"})
		return
	}
	data, err := io.ReadAll(io.LimitReader(f, h.maxFileSize+1))
	_ = f.Close()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read file failed"})
		return
	}
	if int64(len(data)) > h.maxFileSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	name := filepath.Base(file.Filename)
	mimeType := file.Header.Get("Content-Type")
	if mimeType == "" || strings.HasPrefix(mimeType, "application/octet-stream") {
		mimeType = http.DetectContentType(data)
	}
	kind := extract.Classify(name, mimeType)
	if kind == extract.KindUnknown {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported file type"})
		return
	}

	res := h.extractor.Extract(c.Request.Context(), data, name, mimeType)
	if res.Status == extract.StatusFailed {
		log.Printf("[api] extract %s: %v", name, res.Err)
	}
	c.JSON(http.StatusOK, extractResponse{
		Kind:    res.Kind.String(),
		Status:  res.Status.String(),
		Text:    res.Text,
		Message: res.Message(),
	})
}
