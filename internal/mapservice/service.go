// Package mapservice enforces ownership and content rules for mind maps.
package mapservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/mindmaps/internal/apperr"
	"github.com/starford/mindmaps/internal/mindmap"
	"github.com/starford/mindmaps/internal/models"
)

const (
	// DefaultCopyPrefix is prepended to the title of a copied map.
	DefaultCopyPrefix = "copy-"
	// MaxTitleLength bounds map titles, in characters.
	MaxTitleLength = 200
	// MaxSearchLimit caps the number of search hits per call.
	MaxSearchLimit = 100
)

// MapStore is the persistence the service needs. Lookups scoped to an owner
// report someone else's map as apperr.ErrNotFound.
type MapStore interface {
	FindByIDAndOwner(ctx context.Context, id, ownerID int64) (*models.MindMap, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]models.MindMap, error)
	Insert(ctx context.Context, m *models.MindMap, searchText string) error
	Update(ctx context.Context, m *models.MindMap, searchText string) error
	Delete(ctx context.Context, id, ownerID int64) error
	Search(ctx context.Context, ownerID int64, query string, limit int) ([]models.MapSummary, error)
}

// CreateInput is a new map.
type CreateInput struct {
	Title string `json:"title"`
	Data  string `json:"data"`
}

// UpdateInput changes only the fields that are set.
type UpdateInput struct {
	Title *string `json:"title"`
	Data  *string `json:"data"`
}

// Config holds the content limits.
type Config struct {
	MaxDescriptionLength int
	CopyPrefix           string
}

// Service runs mind-map operations on behalf of an authenticated user.
type Service struct {
	maps   MapStore
	maxLen int
	prefix string
	now    func() time.Time
	log    *slog.Logger
	notify Notifier
}

// Change kinds passed to a Notifier.
const (
	ChangeCreated = "map.created"
	ChangeUpdated = "map.updated"
	ChangeDeleted = "map.deleted"
)

// Notifier is told about every successful write to a user's maps.
type Notifier interface {
	MapChanged(userID int64, kind string, mapID int64, title string)
}

type nopNotifier struct{}

func (nopNotifier) MapChanged(int64, string, int64, string) {}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNotifier sets the receiver of change events.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates a map service.
func NewService(maps MapStore, cfg Config, opts ...Option) *Service {
	s := &Service{
		maps:   maps,
		maxLen: cfg.MaxDescriptionLength,
		prefix: cfg.CopyPrefix,
		now:    time.Now,
		log:    slog.Default(),
		notify: nopNotifier{},
	}
	if s.maxLen <= 0 {
		s.maxLen = mindmap.DefaultMaxDescriptionLength
	}
	if s.prefix == "" {
		s.prefix = DefaultCopyPrefix
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxDescriptionLength reports the description limit in force.
func (s *Service) MaxDescriptionLength() int {
	return s.maxLen
}

// ValidateData checks a document body without storing it.
func (s *Service) ValidateData(data string) error {
	return mindmap.Validate(data, s.maxLen)
}

func validateTitle(title string) error {
	err := validation.Validate(title, validation.Required, validation.RuneLength(1, MaxTitleLength))
	if err != nil {
		return apperr.Validation("title", err.Error())
	}
	return nil
}

// List returns the caller's maps.
func (s *Service) List(ctx context.Context, user *models.User) ([]models.MindMap, error) {
	maps, err := s.maps.ListByOwner(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("mapservice: list: %w", err)
	}
	return maps, nil
}

// Create validates and stores a new map owned by the caller. Data is kept
// exactly as sent.
func (s *Service) Create(ctx context.Context, user *models.User, in CreateInput) (*models.MindMap, error) {
	if err := validateTitle(in.Title); err != nil {
		return nil, err
	}
	if err := mindmap.Validate(in.Data, s.maxLen); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	m := &models.MindMap{
		Title:     in.Title,
		Data:      in.Data,
		UserID:    user.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.maps.Insert(ctx, m, mindmap.SearchText(in.Data)); err != nil {
		return nil, fmt.Errorf("mapservice: create: %w", err)
	}
	s.log.Info("map created", slog.Int64("user_id", user.ID), slog.Int64("map_id", m.ID))
	s.notify.MapChanged(user.ID, ChangeCreated, m.ID, m.Title)
	return m, nil
}

// Get returns one of the caller's maps.
func (s *Service) Get(ctx context.Context, user *models.User, id int64) (*models.MindMap, error) {
	m, err := s.maps.FindByIDAndOwner(ctx, id, user.ID)
	if err != nil {
		return nil, notFoundOr("get", err)
	}
	return m, nil
}

// Update merges the set fields of in into the caller's map. Only supplied
// fields are validated.
func (s *Service) Update(ctx context.Context, user *models.User, id int64, in UpdateInput) (*models.MindMap, error) {
	if in.Title != nil {
		if err := validateTitle(*in.Title); err != nil {
			return nil, err
		}
	}
	if in.Data != nil {
		if err := mindmap.Validate(*in.Data, s.maxLen); err != nil {
			return nil, err
		}
	}

	m, err := s.maps.FindByIDAndOwner(ctx, id, user.ID)
	if err != nil {
		return nil, notFoundOr("update", err)
	}
	if in.Title != nil {
		m.Title = *in.Title
	}
	if in.Data != nil {
		m.Data = *in.Data
	}
	m.UpdatedAt = s.now().UTC()
	if err := s.maps.Update(ctx, m, mindmap.SearchText(m.Data)); err != nil {
		return nil, notFoundOr("update", err)
	}
	s.log.Info("map updated", slog.Int64("user_id", user.ID), slog.Int64("map_id", m.ID))
	s.notify.MapChanged(user.ID, ChangeUpdated, m.ID, m.Title)
	return m, nil
}

// Delete removes one of the caller's maps.
func (s *Service) Delete(ctx context.Context, user *models.User, id int64) error {
	if err := s.maps.Delete(ctx, id, user.ID); err != nil {
		return notFoundOr("delete", err)
	}
	s.log.Info("map deleted", slog.Int64("user_id", user.ID), slog.Int64("map_id", id))
	s.notify.MapChanged(user.ID, ChangeDeleted, id, "")
	return nil
}

// Copy duplicates one of the caller's maps under a prefixed title. The data
// is copied as stored, without re-validation.
func (s *Service) Copy(ctx context.Context, user *models.User, id int64) (*models.MindMap, error) {
	src, err := s.maps.FindByIDAndOwner(ctx, id, user.ID)
	if err != nil {
		return nil, notFoundOr("copy", err)
	}
	now := s.now().UTC()
	m := &models.MindMap{
		Title:     s.prefix + src.Title,
		Data:      src.Data,
		UserID:    user.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.maps.Insert(ctx, m, mindmap.SearchText(m.Data)); err != nil {
		return nil, fmt.Errorf("mapservice: copy: %w", err)
	}
	s.log.Info("map copied", slog.Int64("user_id", user.ID), slog.Int64("from", src.ID), slog.Int64("map_id", m.ID))
	s.notify.MapChanged(user.ID, ChangeCreated, m.ID, m.Title)
	return m, nil
}

// Outline returns the flattened tree of one of the caller's maps.
func (s *Service) Outline(ctx context.Context, user *models.User, id int64) ([]mindmap.OutlineItem, error) {
	m, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	return mindmap.Outline(m.Data)
}

// Search finds the caller's maps whose title or text contains query.
func (s *Service) Search(ctx context.Context, user *models.User, query string, limit int) ([]models.MapSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation("q", "cannot be blank")
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	hits, err := s.maps.Search(ctx, user.ID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("mapservice: search: %w", err)
	}
	return hits, nil
}

func notFoundOr(op string, err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.ErrNotFound
	}
	return fmt.Errorf("mapservice: %s: %w", op, err)
}
