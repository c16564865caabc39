package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rag-chat-relay/rag"
)

type Server struct {
	pipeline      *rag.Pipeline
	allowedOrigin string
	maxUpload     int64
}

func NewServer(pipeline *rag.Pipeline, allowedOrigin string, maxUpload int64) *Server {
	return &Server{
		pipeline:      pipeline,
		allowedOrigin: allowedOrigin,
		maxUpload:     maxUpload,
	}
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), s.cors())

	api := r.Group("/api")
	api.GET("/health", s.healthHandler)
	api.POST("/upload-file", s.uploadHandler)
	api.POST("/chat", s.chatHandler)
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// cors admits the single configured front-end origin, with credentials.
func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", s.allowedOrigin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		h.Add("Vary", "Origin")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// GET /api/health
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"ready":  s.pipeline.Ready(),
	})
}

// POST /api/upload-file  (multipart, one or more "files" parts)
func (s *Server) uploadHandler(c *gin.Context) {
	if s.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	}
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "Upload too large."})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid multipart upload."})
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No files uploaded."})
		return
	}

	uploads := make([]rag.Upload, 0, len(headers))
	for _, fh := range headers {
		u, err := readUpload(fh)
		if err != nil {
			slog.Error("reading uploaded file", "file", fh.Filename, "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"message": "Failed to read uploaded file: " + fh.Filename})
			return
		}
		uploads = append(uploads, u)
	}

	refs, err := s.pipeline.Upload(c.Request.Context(), uploads)
	switch {
	case errors.Is(err, rag.ErrUnsupportedFileType):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Unsupported file type."})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{
			"message":  "Failed to process uploaded files.",
			"fileRefs": refs,
		})
	default:
		c.JSON(http.StatusOK, rag.UploadResponse{
			Message:  "Files uploaded successfully.",
			FileRefs: refs,
		})
	}
}

func readUpload(fh *multipart.FileHeader) (rag.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return rag.Upload{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return rag.Upload{}, fmt.Errorf("reading %s: %w", fh.Filename, err)
	}
	return rag.Upload{
		Name:     fh.Filename,
		MIMEType: fh.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

// POST /api/chat  { "conversation": [...], "fileRefs": [...] }
// Responds with an SSE stream of start, token, error and end frames.
func (s *Server) chatHandler(c *gin.Context) {
	if !s.pipeline.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": rag.ErrUnreadyService.Error()})
		return
	}

	var req rag.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("invalid chat request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid chat request."})
		return
	}
	turn, err := s.pipeline.PrepareTurn(req)
	if err != nil {
		slog.Warn("invalid chat request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid chat request."})
		return
	}

	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	res, err := s.pipeline.StreamTurn(c.Request.Context(), turn, c.Writer, c.Writer)
	if err != nil {
		slog.Error("chat turn not started", "error", err)
		return
	}
	if res.Err != nil {
		slog.Error("chat stream failed", "error", res.Err, "tokens", res.Tokens)
	}
}
