package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/matheodrd/httphelper/handler"

	"rescuegrid/internal/blog"
)

func (s *Server) createBlog() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		in, err := s.decodeCreateBlog(r)
		if err != nil {
			return writeError(w, http.StatusBadRequest, err.Error())
		}

		user := userFrom(r)
		b, err := s.blogs.Create(r.Context(), user.ID, user.Username, *in)
		if errors.Is(err, blog.ErrMissingFields) {
			return writeError(w, http.StatusBadRequest, "title and content are required")
		}
		if err != nil {
			s.logger.Error("create blog failed", "error", err, "userID", user.ID)
			return writeDomainError(w, err)
		}

		return writeJSON(w, http.StatusCreated, map[string]any{"blog": b})
	})
}

func (s *Server) decodeCreateBlog(r *http.Request) (*blog.CreateInput, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			Title   string   `json:"title"`
			Content string   `json:"content"`
			Tags    []string `json:"tags"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, errInvalidBody
		}
		return &blog.CreateInput{Title: req.Title, Content: req.Content, Tags: req.Tags}, nil
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return nil, errInvalidBody
	}

	in := &blog.CreateInput{
		Title:   r.FormValue("title"),
		Content: r.FormValue("content"),
		Tags:    splitTags(r.FormValue("tags")),
	}

	// Attached media splits into photos and videos by mime type.
	if r.MultipartForm != nil {
		for _, headers := range r.MultipartForm.File {
			for _, header := range headers {
				if header.Size > maxUploadSize {
					return nil, errors.New("file exceeds the 5 MB limit")
				}
				path, err := s.saveFile(header)
				if err != nil {
					return nil, err
				}
				switch {
				case isImage(header):
					in.Photos = append(in.Photos, path)
				case isVideo(header):
					in.Videos = append(in.Videos, path)
				}
			}
		}
	}
	return in, nil
}

func (s *Server) listBlogs() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		blogs, err := s.blogs.Feed(r.Context())
		if err != nil {
			s.logger.Error("fetch blogs failed", "error", err)
			return writeDomainError(w, err)
		}
		if blogs == nil {
			blogs = []*blog.Blog{}
		}
		return writeJSON(w, http.StatusOK, map[string]any{"blogs": blogs})
	})
}

func (s *Server) myBlogs() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		user := userFrom(r)
		blogs, err := s.blogs.Mine(r.Context(), user.ID)
		if err != nil {
			s.logger.Error("fetch own blogs failed", "error", err, "userID", user.ID)
			return writeDomainError(w, err)
		}
		if blogs == nil {
			blogs = []*blog.Blog{}
		}
		return writeJSON(w, http.StatusOK, map[string]any{"blogs": blogs})
	})
}

// splitTags turns "tag1, tag2" into ["tag1","tag2"].
func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
