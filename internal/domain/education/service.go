// Package education manages the foot-care content catalog. Anyone may read
// it; only privileged accounts may write it.
package education

import (
	"context"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/footcare/footcare/internal/platform/blobstore"
	"github.com/footcare/footcare/internal/platform/middleware"
	"github.com/footcare/footcare/pkg/pagination"
)

const (
	DefaultType     = TypeArticle
	DefaultCategory = CategoryPrevention
	// StatsTop bounds the most viewed and recent lists of Stats.
	StatsTop = 5
)

type Service struct {
	repo     Repository
	files    blobstore.Store
	maxBytes int64
	logger   zerolog.Logger
}

func NewService(repo Repository, files blobstore.Store, maxBytes int64, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		files:    files,
		maxBytes: maxBytes,
		logger:   logger.With().Str("component", "education").Logger(),
	}
}

// Create stores a new item authored by editor. photo is optional.
func (s *Service) Create(ctx context.Context, editor Editor, in Input, photo *multipart.FileHeader) (*Content, error) {
	if !editor.Privileged {
		return nil, ErrCreateForbidden
	}

	c := &Content{
		ContentType: DefaultType,
		Category:    DefaultCategory,
		CreatedBy:   &Author{ID: editor.ID},
	}
	if err := c.apply(in); err != nil {
		return nil, err
	}
	if c.Title == "" || c.Description == "" || c.Body == "" {
		return nil, ErrFieldsRequired
	}

	if photo != nil {
		name, err := blobstore.SaveUpload(ctx, s.files, photo, blobstore.ImageTypes, s.maxBytes)
		if err != nil {
			return nil, err
		}
		c.Photo = name
	}

	if err := s.repo.Create(ctx, c); err != nil {
		s.discard(ctx, c.Photo)
		return nil, err
	}

	s.logger.Info().Str("content_id", c.ID.String()).Str("editor_id", editor.ID.String()).Msg("content created")
	return s.resolve(c), nil
}

// List returns one page of the catalog and the total number of matches.
func (s *Service) List(ctx context.Context, f Filter, p pagination.Params) ([]*Content, pagination.Summary, error) {
	f.Search = strings.TrimSpace(f.Search)
	if _, ok := sortColumns[f.Sort]; !ok {
		f.Sort = "createdAt"
	}

	items, total, err := s.repo.List(ctx, f, p.Limit, p.Offset())
	if err != nil {
		return nil, pagination.Summary{}, err
	}
	return s.resolveAll(items), pagination.NewSummary(p, total), nil
}

// ListByCategory returns every item of category, newest first.
func (s *Service) ListByCategory(ctx context.Context, category string) ([]*Content, error) {
	if !validCategory(category) {
		return nil, InvalidCategory()
	}
	items, _, err := s.repo.List(ctx, Filter{Category: category, Sort: "createdAt", Desc: true}, 0, 0)
	if err != nil {
		return nil, err
	}
	return s.resolveAll(items), nil
}

// View returns the item and counts the read.
func (s *Service) View(ctx context.Context, id uuid.UUID) (*Content, error) {
	c, err := s.repo.GetAndCountView(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.resolve(c), nil
}

// Update changes the fields present in in. A new photo replaces the stored
// one, which is deleted after the row is saved.
func (s *Service) Update(ctx context.Context, id uuid.UUID, editor Editor, in Input, photo *multipart.FileHeader) (*Content, error) {
	if !editor.Privileged {
		return nil, ErrUpdateForbidden
	}

	p, err := in.patch()
	if err != nil {
		return nil, err
	}
	if photo != nil {
		name, err := blobstore.SaveUpload(ctx, s.files, photo, blobstore.ImageTypes, s.maxBytes)
		if err != nil {
			return nil, err
		}
		p.Photo = name
	}

	c, previous, err := s.repo.Update(ctx, id, p)
	if err != nil {
		s.discard(ctx, p.Photo)
		return nil, err
	}
	if p.Photo != "" && previous != p.Photo {
		s.discard(ctx, previous)
	}

	s.logger.Info().Str("content_id", c.ID.String()).Str("editor_id", editor.ID.String()).Msg("content updated")
	return s.resolve(c), nil
}

// Delete removes the item and its photo.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, editor Editor) error {
	if !editor.Privileged {
		return ErrDeleteForbidden
	}
	c, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.discard(ctx, c.Photo)

	s.logger.Info().Str("content_id", id.String()).Str("editor_id", editor.ID.String()).Msg("content deleted")
	return nil
}

// Stats summarises the catalog. Callers restrict it to privileged accounts.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx, StatsTop)
}

// apply copies the non-blank fields of in onto c. Enum fields must hold a
// known value.
func (c *Content) apply(in Input) error {
	if v := middleware.SanitizeString(in.Title); v != "" {
		c.Title = v
	}
	if v := middleware.SanitizeString(in.Description); v != "" {
		c.Description = v
	}
	if v := middleware.SanitizeString(in.Body); v != "" {
		c.Body = v
	}
	if v := strings.TrimSpace(in.ContentType); v != "" {
		if !validType(v) {
			return ErrInvalidType
		}
		c.ContentType = v
	}
	if v := strings.TrimSpace(in.Category); v != "" {
		if !validCategory(v) {
			return InvalidCategory()
		}
		c.Category = v
	}
	return nil
}

// patch validates in and returns the columns it changes.
func (in Input) patch() (Patch, error) {
	var c Content
	if err := c.apply(in); err != nil {
		return Patch{}, err
	}
	return Patch{
		Title:       c.Title,
		Description: c.Description,
		Body:        c.Body,
		ContentType: c.ContentType,
		Category:    c.Category,
	}, nil
}

func (s *Service) resolve(c *Content) *Content {
	if c.Photo != "" {
		c.PhotoURL = s.files.URL(c.Photo)
	}
	return c
}

func (s *Service) resolveAll(items []*Content) []*Content {
	if items == nil {
		return []*Content{}
	}
	for _, c := range items {
		s.resolve(c)
	}
	return items
}

func (s *Service) discard(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := s.files.Delete(ctx, name); err != nil {
		s.logger.Warn().Err(err).Str("file", name).Msg("failed to delete content photo")
	}
}
