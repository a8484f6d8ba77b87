package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ingest-service/config"
	"ingest-service/internal/buffer"
	"ingest-service/internal/util"
)

// Handler contains HTTP handlers
type Handler struct {
	buf    *buffer.Client
	cfg    *config.Config
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(buf *buffer.Client, cfg *config.Config) *Handler {
	return &Handler{
		buf:    buf,
		cfg:    cfg,
		logger: util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/upload/status", h.uploadStatus)
		v1.POST("/upload", h.handleUpload)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// uploadStatus reports whether a batch is buffered or being processed, so
// the upload UI can hold new batches back while a run is active.
func (h *Handler) uploadStatus(c *gin.Context) {
	isProcessing, message, err := h.buf.ProcessingStatus(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to check processing status", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{
			"is_processing": false,
			"message":       "Unable to determine system status",
			"status":        "unknown",
		})
		return
	}

	status := "ready"
	if isProcessing {
		status = "processing"
	}
	c.JSON(http.StatusOK, gin.H{
		"is_processing": isProcessing,
		"message":       message,
		"status":        status,
	})
}

// handleUpload accepts a multipart batch of export files, stores the
// recognized ones in the landing bucket, and signals batch completion via
// the bucket marker and the local trigger file.
func (h *Handler) handleUpload(c *gin.Context) {
	isProcessing, _, err := h.buf.ProcessingStatus(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to check processing status",
			"details": err.Error(),
		})
		return
	}
	if isProcessing {
		util.UploadsRejectedTotal.WithLabelValues("processing").Inc()
		h.logger.Warn("Upload rejected: processing already in progress")
		c.JSON(http.StatusConflict, gin.H{
			"detail": gin.H{
				"message": "Upload or processing already in progress.",
				"action":  "Please wait for the current processing to complete (typically 2-5 minutes) and try again.",
				"status":  "processing",
			},
		})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid multipart form",
			"details": err.Error(),
		})
		return
	}

	var uploaded []gin.H
	for _, file := range form.File["files"] {
		if file.Filename == "" || !allowedFileType(file.Filename) {
			h.logger.Warn("Invalid file type, skipped", zap.String("filename", file.Filename))
			continue
		}

		folder, category := h.targetFolder(file.Filename)
		if folder == "" {
			h.logger.Warn("Unrecognized file name pattern, skipping", zap.String("filename", file.Filename))
			continue
		}

		data, err := readMultipartFile(file)
		if err != nil {
			h.logger.Error("Failed to read uploaded file", zap.String("filename", file.Filename), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to upload file: " + file.Filename,
			})
			return
		}

		objectName := folder + "/" + file.Filename
		if err := h.buf.PutLandingObject(c.Request.Context(), objectName, data, contentTypeFor(file.Filename)); err != nil {
			h.logger.Error("Failed to upload file", zap.String("filename", file.Filename), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to upload file: " + file.Filename,
			})
			return
		}

		util.FilesUploadedTotal.WithLabelValues(category).Inc()
		uploaded = append(uploaded, gin.H{"filename": file.Filename, "folder": folder})
		h.logger.Info("Uploaded batch file",
			zap.String("filename", file.Filename),
			zap.String("folder", folder),
			zap.Int("bytes", len(data)))
	}

	if len(uploaded) == 0 {
		util.UploadsRejectedTotal.WithLabelValues("no_valid_files").Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "No valid files were uploaded. Check file names and types (.csv, .xlsx).",
		})
		return
	}

	if err := h.buf.PutMarker(c.Request.Context()); err != nil {
		h.logger.Error("Failed to create completion marker", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Files uploaded but failed to trigger pipeline.",
		})
		return
	}

	if err := h.writeTriggerFile(); err != nil {
		h.logger.Error("Failed to create trigger file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Files uploaded but failed to trigger pipeline.",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Files uploaded successfully and pipeline triggered.",
		"uploaded_files": uploaded,
	})
}

// targetFolder routes an upload to a landing prefix by its name pattern.
// Unrecognized names return an empty folder and are skipped by the caller.
func (h *Handler) targetFolder(filename string) (folder, category string) {
	switch {
	case strings.Contains(filename, "Sales Transaction List"):
		return h.cfg.Minio.SalesPrefix, "sales"
	case strings.Contains(filename, "Sales Report by Product"):
		return h.cfg.Minio.ProductPrefix, "product"
	}
	return "", ""
}

// writeTriggerFile creates the local marker the observer process watches.
// The file is synced to disk so the create event never races its content.
func (h *Handler) writeTriggerFile() error {
	if err := os.MkdirAll(h.cfg.Trigger.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create trigger dir: %w", err)
	}

	path := filepath.Join(h.cfg.Trigger.Dir, h.cfg.Trigger.MarkerName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trigger file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString("trigger"); err != nil {
		return fmt.Errorf("failed to write trigger file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync trigger file: %w", err)
	}
	return nil
}

func allowedFileType(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return "text/csv"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

func readMultipartFile(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file.Filename, err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file.Filename, err)
	}
	return data, nil
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
