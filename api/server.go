// Package api exposes the upload and chat pipelines over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mlevan/docqa/config"
	"github.com/mlevan/docqa/extract"
	"github.com/mlevan/docqa/index"
	"github.com/mlevan/docqa/ingestion"
	"github.com/mlevan/docqa/query"
)

type Server struct {
	cfg      config.Config
	ingester *ingestion.Service
	querier  *query.Service
	logger   *log.Logger
	echo     *echo.Echo
}

type uploadResponse struct {
	FileID     string `json:"file_id"`
	Filename   string `json:"filename"`
	BlobURL    string `json:"blob_url,omitempty"`
	ChunkCount int    `json:"chunk_count"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

type chatRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func New(cfg config.Config, ingester *ingestion.Service, querier *query.Service, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		cfg:      cfg,
		ingester: ingester,
		querier:  querier,
		logger:   logger,
		echo:     e,
	}

	e.GET("/healthz", s.handleHealth)
	v1 := e.Group("/api/v1")
	v1.POST("/upload", s.handleUpload)
	v1.POST("/chat", s.handleChat)
	v1.DELETE("/documents/:id", s.handleDelete)

	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(s.cfg.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.echo.Shutdown(context.Background())
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "ok"})
}

func (s *Server) handleUpload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file field")
	}

	ext := filepath.Ext(fileHeader.Filename)
	if !s.cfg.ExtensionAllowed(ext) {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("file type %s not allowed, accepted types: %s", ext, strings.Join(s.cfg.Upload.AllowedExtensions, ", ")))
	}
	if fileHeader.Size > s.cfg.MaxFileSizeBytes() {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("file exceeds maximum size of %d MB", s.cfg.Upload.MaxFileSizeMB))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot open uploaded file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxFileSizeBytes()+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read uploaded file")
	}
	if int64(len(data)) > s.cfg.MaxFileSizeBytes() {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("file exceeds maximum size of %d MB", s.cfg.Upload.MaxFileSizeMB))
	}

	contentType := fileHeader.Header.Get("Content-Type")
	result, err := s.ingester.IngestDocument(c.Request().Context(), fileHeader.Filename, contentType, data)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedType) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		s.logger.Printf("ingestion failed for %s: %v", fileHeader.Filename, err)
		return echo.NewHTTPError(http.StatusBadGateway, "failed to index document: "+err.Error())
	}

	if result.ChunkCount == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no text could be extracted from the document")
	}

	return c.JSON(http.StatusOK, uploadResponse{
		FileID:     result.FileID.String(),
		Filename:   result.Filename,
		BlobURL:    result.BlobURL,
		ChunkCount: result.ChunkCount,
		Status:     "success",
		Message:    fmt.Sprintf("file uploaded and indexed, %d chunks created", result.ChunkCount),
	})
}

func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if strings.TrimSpace(req.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question is required")
	}

	resp, err := s.querier.Ask(c.Request().Context(), req.Question, req.TopK)
	if err != nil {
		s.logger.Printf("chat failed: %v", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "answering is temporarily unavailable: "+err.Error())
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDelete(c echo.Context) error {
	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid document id")
	}

	if err := s.ingester.DeleteDocument(c.Request().Context(), fileID); err != nil {
		if errors.Is(err, index.ErrDocumentNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "document not found")
		}
		s.logger.Printf("delete failed for %s: %v", fileID, err)
		return echo.NewHTTPError(http.StatusBadGateway, "failed to delete document")
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "document deleted"})
}
