// Package blog is the update feed: users post stories with media,
// everyone sees them. Posts have no location, so the new_blog event
// goes to all live connections.
package blog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rescuegrid/internal/realtime"
)

var ErrMissingFields = errors.New("title and content are required")

type Blog struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Author    string    `json:"author"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	Photos    []string  `json:"photos"`
	Videos    []string  `json:"videos"`
	CreatedAt time.Time `json:"created_at"`
}

type Store interface {
	CreateBlog(ctx context.Context, b *Blog) error
	ListBlogs(ctx context.Context, limit int) ([]*Blog, error)
	BlogsByAuthor(ctx context.Context, authorID string) ([]*Blog, error)
}

type Notifier interface {
	NotifyNearby(event realtime.Event)
}

type Service struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger
}

func NewService(store Store, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{store: store, notifier: notifier, logger: logger}
}

type CreateInput struct {
	Title   string
	Content string
	Tags    []string
	Photos  []string
	Videos  []string
}

func (s *Service) Create(ctx context.Context, authorID, authorName string, in CreateInput) (*Blog, error) {
	if in.Title == "" || in.Content == "" {
		return nil, ErrMissingFields
	}

	b := &Blog{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		Author:    authorName,
		Title:     in.Title,
		Content:   in.Content,
		Tags:      in.Tags,
		Photos:    in.Photos,
		Videos:    in.Videos,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateBlog(ctx, b); err != nil {
		return nil, fmt.Errorf("creating blog: %w", err)
	}

	s.notifier.NotifyNearby(realtime.Event{
		Kind:    realtime.EventNewBlog,
		Payload: b,
	})
	return b, nil
}

// Feed returns the latest posts, newest first.
func (s *Service) Feed(ctx context.Context) ([]*Blog, error) {
	return s.store.ListBlogs(ctx, 50)
}

func (s *Service) Mine(ctx context.Context, authorID string) ([]*Blog, error) {
	return s.store.BlogsByAuthor(ctx, authorID)
}
