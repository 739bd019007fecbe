// Package httpserver exposes the upload and retrieval endpoints over the
// storage service.
package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/harlley/mekane-share/internal/database"
	"github.com/harlley/mekane-share/internal/logger"
	"github.com/harlley/mekane-share/internal/storage"
	"github.com/harlley/mekane-share/internal/types"
)

// multipartMemoryLimit bounds how much of a multipart body is held in memory
// before spilling to disk. Slightly above the file limit so an oversized
// upload still parses far enough to be rejected with the right code.
const multipartMemoryLimit = types.MaxFileSize + 1<<20

// Server holds dependencies for handling HTTP requests.
type Server struct {
	svc   *storage.Service
	audit *database.Client
}

// NewServer constructs the handler set over a storage service. The audit
// client may be nil when no database is configured.
func NewServer(svc *storage.Service, audit *database.Client) *Server {
	return &Server{svc: svc, audit: audit}
}

// Routes registers all endpoints on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.HealthHandler)
	mux.HandleFunc("/upload", s.UploadHandler)
	mux.HandleFunc("/upload/", s.RetrieveHandler)
	mux.HandleFunc("/", s.RootHandler)
	return mux
}

// Recoverer converts panics into a 500 with a stable error body.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error(r.Context(), "handler panic", fmt.Errorf("%v", rec))
				writeError(w, http.StatusInternalServerError, "Internal server error", types.CodeInternalError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// HealthHandler responds to health checks.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// UploadHandler accepts a multipart screenshot upload and returns the share URL.
func (s *Server) UploadHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", types.CodeUploadError)
		return
	}

	if s.svc == nil {
		writeError(w, http.StatusInternalServerError, "Storage is not configured", types.CodeStorageError)
		return
	}

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		logger.Warn(ctx, "multipart parse failed", logger.Fields{"error": err.Error()})
		writeError(w, http.StatusBadRequest, "Screenshot is required", types.CodeMissingFile)
		return
	}

	file, header, err := r.FormFile("screenshot")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Screenshot is required", types.CodeMissingFile)
		return
	}
	defer file.Close()

	// Same checks the storage service performs, done here first so oversized
	// or mistyped uploads get a fast 400 without buffering the whole body.
	if header.Size > types.MaxFileSize {
		writeError(w, http.StatusBadRequest, tooLargeMessage(), types.CodeFileTooLarge)
		return
	}
	declaredType := header.Header.Get("Content-Type")
	if declaredType == "application/octet-stream" {
		// Generic default set by clients that never declared a type.
		declaredType = ""
	}
	if !types.AllowedMIMEType(declaredType) {
		writeError(w, http.StatusBadRequest, invalidFormatMessage(), types.CodeInvalidFormat)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, types.MaxFileSize+1))
	if err != nil {
		logger.Error(ctx, "reading upload body failed", err)
		writeError(w, http.StatusInternalServerError, "Failed to process upload", types.CodeUploadError)
		return
	}
	if int64(len(data)) > types.MaxFileSize {
		writeError(w, http.StatusBadRequest, tooLargeMessage(), types.CodeFileTooLarge)
		return
	}

	meta := types.ParseUploadMetadata(r.FormValue("metadata"))
	logger.Debug(ctx, "upload request", logger.Fields{
		"size":         len(data),
		"has_metadata": !meta.IsZero(),
	})

	result, err := s.svc.Save(ctx, data, declaredType, meta)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrFileTooLarge):
			writeError(w, http.StatusBadRequest, tooLargeMessage(), types.CodeFileTooLarge)
		case errors.Is(err, types.ErrInvalidFormat):
			writeError(w, http.StatusBadRequest, invalidFormatMessage(), types.CodeInvalidFormat)
		default:
			logger.Error(ctx, "upload failed", err)
			writeError(w, http.StatusInternalServerError, "Failed to process upload", types.CodeUploadError)
		}
		return
	}

	if s.audit != nil {
		rec := database.UploadRecord{
			ID:          result.ID,
			SizeBytes:   int64(len(data)),
			ContentType: declaredType,
			UploadedAt:  result.UploadedAt,
			ExpiresAt:   result.ExpiresAt,
		}
		if err := s.audit.RecordUpload(ctx, rec); err != nil {
			logger.Warn(ctx, "upload audit insert failed", logger.Fields{"id": result.ID, "error": err.Error()})
		}
	}

	logger.Info(ctx, "screenshot stored", logger.Fields{"id": result.ID, "url": result.URL})
	writeJSON(w, http.StatusCreated, types.UploadResponse{
		Success:   true,
		URL:       result.URL,
		ID:        result.ID,
		ExpiresAt: result.ExpiresAt.Format(rfc3339),
	})
}

// RetrieveHandler serves GET /upload/{id}.
func (s *Server) RetrieveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", types.CodeRetrievalError)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/upload/")
	s.serveScreenshot(w, r, id)
}

// RootHandler serves GET /{id} for direct image links and the 404 fallback
// for anything else.
func (s *Server) RootHandler(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, http.StatusNotFound, "Endpoint not found", types.CodeNotFound)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", types.CodeRetrievalError)
		return
	}
	s.serveScreenshot(w, r, path)
}

func (s *Server) serveScreenshot(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	if id == "" {
		writeError(w, http.StatusBadRequest, "Screenshot ID is required", types.CodeMissingID)
		return
	}

	obj := s.svc.Get(ctx, id)
	if obj == nil {
		writeError(w, http.StatusNotFound, "Screenshot not found", types.CodeNotFound)
		return
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		logger.Error(ctx, "reading stored screenshot failed", err, logger.Fields{"id": id})
		writeError(w, http.StatusInternalServerError, "Failed to retrieve screenshot", types.CodeRetrievalError)
		return
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "image/png"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

const rfc3339 = "2006-01-02T15:04:05Z07:00"

func tooLargeMessage() string {
	return fmt.Sprintf("Screenshot size exceeds maximum allowed (%dMB)", types.MaxFileSize/1024/1024)
}

func invalidFormatMessage() string {
	return fmt.Sprintf("Invalid file format. Only %s are supported", strings.Join(types.AllowedMIMETypes, ", "))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, types.APIError{Error: message, Code: code})
}
