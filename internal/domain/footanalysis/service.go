// Package footanalysis forwards foot photos to the external image classifier
// and keeps the history of its verdicts per patient.
package footanalysis

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/footcare/footcare/internal/platform/apperr"
	"github.com/footcare/footcare/internal/platform/blobstore"
)

type Service struct {
	repo       Repository
	classifier Classifier
	files      blobstore.Store
	maxBytes   int64
	logger     zerolog.Logger
}

func NewService(repo Repository, classifier Classifier, files blobstore.Store, maxBytes int64, logger zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		classifier: classifier,
		files:      files,
		maxBytes:   maxBytes,
		logger:     logger.With().Str("component", "footanalysis").Logger(),
	}
}

// Submit stores the photo, classifies it and records the verdict. The
// stored photo is removed again when classification or persistence fails.
func (s *Service) Submit(ctx context.Context, accountID uuid.UUID, image *multipart.FileHeader) (*Record, error) {
	name, err := blobstore.SaveUpload(ctx, s.files, image, blobstore.ImageTypes, s.maxBytes)
	if err != nil {
		return nil, err
	}

	pred, err := s.classify(ctx, image)
	if err != nil {
		s.discard(ctx, name)
		s.logger.Warn().Err(err).Str("account_id", accountID.String()).Msg("classification failed")
		return nil, err
	}

	r := &Record{
		AccountID:  accountID,
		ImageRef:   name,
		Result:     pred.Label,
		Confidence: pred.Confidence,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		s.discard(ctx, name)
		return nil, fmt.Errorf("store foot analysis: %w", err)
	}
	r.ImageURL = s.files.URL(r.ImageRef)

	s.logger.Info().Str("account_id", accountID.String()).Str("result", r.Result).
		Float64("confidence", r.Confidence).Msg("foot analysis recorded")
	return r, nil
}

func (s *Service) classify(ctx context.Context, image *multipart.FileHeader) (*Prediction, error) {
	f, err := image.Open()
	if err != nil {
		return nil, apperr.Internal("open upload", err)
	}
	defer f.Close()

	pred, err := s.classifier.Classify(ctx, image.Filename, f)
	if err != nil {
		return nil, upstreamError(err)
	}
	return pred, nil
}

// ListForAccount returns every analysis of accountID, newest first.
func (s *Service) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]*Record, error) {
	items, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Record{}
	}
	for _, r := range items {
		r.ImageURL = s.files.URL(r.ImageRef)
	}
	return items, nil
}

func (s *Service) discard(ctx context.Context, name string) {
	if err := s.files.Delete(ctx, name); err != nil {
		s.logger.Warn().Err(err).Str("file", name).Msg("failed to delete foot image")
	}
}
