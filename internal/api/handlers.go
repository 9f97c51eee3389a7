package api

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"supportdesk/internal/models"
	"supportdesk/internal/service/agent"
	"supportdesk/internal/storage"
)

const (
	maxUploadBytes = 16 << 20 // 16 MiB
	serviceName    = "IT Support Agent"
	serviceVersion = "1.0.0"
)

// Responder turns heterogeneous chat input into user-facing answer text.
type Responder interface {
	SupportResponse(ctx context.Context, q agent.Query) string
}

// Handler wires HTTP routes to the support responder and manages the
// upload directory.
type Handler struct {
	responder Responder
	ledger    *storage.UploadStore
	uploadDir string
	fileTTL   time.Duration
}

// NewHandler constructs a Handler instance.
func NewHandler(responder Responder, ledger *storage.UploadStore, uploadDir string, fileTTL time.Duration) *Handler {
	if fileTTL <= 0 {
		fileTTL = 24 * time.Hour
	}
	return &Handler{
		responder: responder,
		ledger:    ledger,
		uploadDir: uploadDir,
		fileTTL:   fileTTL,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.MaxMultipartMemory = maxUploadBytes
	router.Static("/static/uploads", h.uploadDir)
	router.POST("/chat", h.chat)
	router.POST("/upload", h.uploadFile)
	router.POST("/upload-screenshot", h.uploadScreenshot)
	router.POST("/cleanup", h.cleanup)
	router.GET("/health", h.health)
}

type chatRequest struct {
	Message    string             `json:"message"`
	Attachment *models.Attachment `json:"attachment"`
}

func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	query := agent.Query{Text: req.Message}
	if req.Attachment != nil && req.Attachment.Filename != "" {
		h.loadAttachment(req.Attachment, &query)
	}

	response := h.responder.SupportResponse(c.Request.Context(), query)
	c.JSON(http.StatusOK, gin.H{"response": response})
}

// loadAttachment folds a previously stored file into the query. A file
// that is missing, or that vanishes between check and read, counts as
// no attachment rather than a fatal error.
func (h *Handler) loadAttachment(att *models.Attachment, query *agent.Query) {
	filename := filepath.Base(att.Filename)
	path := filepath.Join(h.uploadDir, filename)
	switch {
	case isImageFile(filename):
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("attachment %s not readable: %v", filename, err)
			return
		}
		query.ImageData = data
		query.ImageMIMEType = mimeTypeFor(filename)
		if att.IsScreenshot {
			log.Printf("processing screenshot: %s", filename)
		} else {
			log.Printf("processing image file: %s", filename)
		}
	case isTextFile(filename):
		content, err := readTextFile(path)
		if err != nil {
			log.Printf("attachment %s not readable: %v", filename, err)
			return
		}
		query.FileContent = content
		log.Printf("processing text file: %s", filename)
	}
}

func (h *Handler) uploadFile(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	file, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file part"})
		return
	}
	if strings.TrimSpace(file.Filename) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no selected file"})
		return
	}
	if !isAllowedFile(file.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file type not allowed"})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
		return
	}

	original := sanitizeFilename(file.Filename)
	stored := uuid.New().String() + "_" + original
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		log.Printf("create upload directory: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save file"})
		return
	}
	if err := c.SaveUploadedFile(file, filepath.Join(h.uploadDir, stored)); err != nil {
		log.Printf("save uploaded file %s: %v", stored, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save file"})
		return
	}

	fileType := classifyFile(original)
	h.recordUpload(c.Request.Context(), &models.Upload{
		StoredName:   stored,
		OriginalName: original,
		MimeType:     mimeTypeFor(original),
		FileType:     fileType,
		Size:         file.Size,
		CreatedAt:    time.Now(),
	})
	log.Printf("file uploaded: %s (type: %s, size: %d bytes)", stored, fileType, file.Size)
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"filename":          stored,
		"original_filename": original,
		"file_type":         fileType,
		"url":               "/static/uploads/" + stored,
	})
}

type screenshotRequest struct {
	Screenshot string `json:"screenshot"`
}

func (h *Handler) uploadScreenshot(c *gin.Context) {
	var req screenshotRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Screenshot == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no screenshot data received"})
		return
	}

	payload := req.Screenshot
	if strings.HasPrefix(payload, "data:image") {
		if idx := strings.Index(payload, ","); idx >= 0 {
			payload = payload[idx+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid screenshot data"})
		return
	}

	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	filename := fmt.Sprintf("screenshot_%s_%s.png", time.Now().Format("20060102_150405"), suffix)
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		log.Printf("create upload directory: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process screenshot"})
		return
	}
	if err := os.WriteFile(filepath.Join(h.uploadDir, filename), data, 0o644); err != nil {
		log.Printf("save screenshot %s: %v", filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process screenshot"})
		return
	}

	h.recordUpload(c.Request.Context(), &models.Upload{
		StoredName:   filename,
		OriginalName: filename,
		MimeType:     "image/png",
		FileType:     models.FileTypeImage,
		Size:         int64(len(data)),
		CreatedAt:    time.Now(),
	})
	log.Printf("screenshot saved: %s", filename)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"filename": filename,
		"url":      "/static/uploads/" + filename,
	})
}

func (h *Handler) cleanup(c *gin.Context) {
	removed, err := h.removeExpired(c.Request.Context())
	if err != nil {
		log.Printf("cleanup error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cleanup failed"})
		return
	}
	log.Printf("cleanup completed, %d file(s) removed", removed)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Cleanup completed"})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// recordUpload writes a ledger row. The ledger is advisory, so failures
// degrade to a log line instead of failing the request.
func (h *Handler) recordUpload(ctx context.Context, up *models.Upload) {
	if h.ledger == nil {
		return
	}
	if err := h.ledger.Record(ctx, up); err != nil {
		log.Printf("record upload %s: %v", up.StoredName, err)
	}
}
