package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	maxUploadSize  = 5 << 20 // 5 MB per file
	maxFormMemory  = 32 << 20
	uploadsURLBase = "uploads"
)

// saveUploads writes every uploaded file to the upload directory under
// a random name and returns their public paths, keyed by form field.
func (s *Server) saveUploads(r *http.Request) (map[string][]string, error) {
	if r.MultipartForm == nil || r.MultipartForm.File == nil {
		return nil, nil
	}

	if err := os.MkdirAll(s.Config.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}

	saved := make(map[string][]string)
	for field, headers := range r.MultipartForm.File {
		for _, header := range headers {
			if header.Size > maxUploadSize {
				return nil, fmt.Errorf("file %s exceeds the 5 MB limit", header.Filename)
			}
			path, err := s.saveFile(header)
			if err != nil {
				return nil, err
			}
			saved[field] = append(saved[field], path)
		}
	}
	return saved, nil
}

func (s *Server) saveFile(header *multipart.FileHeader) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("opening upload: %w", err)
	}
	defer src.Close()

	name := uuid.NewString() + filepath.Ext(header.Filename)
	dst, err := os.Create(filepath.Join(s.Config.UploadDir, name))
	if err != nil {
		return "", fmt.Errorf("creating upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("writing upload file: %w", err)
	}
	return uploadsURLBase + "/" + name, nil
}

// isImage reports whether an uploaded file claims an image mime type.
func isImage(header *multipart.FileHeader) bool {
	return strings.HasPrefix(header.Header.Get("Content-Type"), "image/")
}

func isVideo(header *multipart.FileHeader) bool {
	return strings.HasPrefix(header.Header.Get("Content-Type"), "video/")
}
