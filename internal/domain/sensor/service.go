// Package sensor stores the temperature and humidity readings pushed by
// in-shoe sensors and serves them back to patients, clinicians and share
// recipients.
package sensor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/footcare/footcare/internal/platform/middleware"
	"github.com/footcare/footcare/pkg/pagination"
)

const (
	// StatsWindow is the period covered by StatsLast24h.
	StatsWindow = 24 * time.Hour
	// MaxClockSkew is how far ahead of the server clock a device timestamp
	// may be.
	MaxClockSkew = 5 * time.Minute
)

// Recorder receives ingest counters. *telemetry.Metrics implements it.
type Recorder interface {
	ReadingIngested()
	IngestThrottled()
}

type nopRecorder struct{}

func (nopRecorder) ReadingIngested() {}
func (nopRecorder) IngestThrottled() {}

type Service struct {
	repo    Repository
	limiter middleware.Limiter
	metrics Recorder
	logger  zerolog.Logger
	now     func() time.Time
}

// NewService wires the telemetry store. limiter and metrics may be nil.
func NewService(repo Repository, limiter middleware.Limiter, metrics Recorder, logger zerolog.Logger) *Service {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Service{
		repo:    repo,
		limiter: limiter,
		metrics: metrics,
		logger:  logger.With().Str("component", "sensor").Logger(),
		now:     time.Now,
	}
}

// Ingest validates and stores a reading reported by a device. The endpoint
// is unauthenticated, so the account id in the payload is the only key the
// rate limit can use.
func (s *Service) Ingest(ctx context.Context, in IngestInput) (*Reading, error) {
	if in.Temperature == nil || in.Humidity == nil {
		return nil, ErrMeasurementsRequired
	}
	rawID := strings.TrimSpace(in.UserID)
	if rawID == "" {
		return nil, ErrUserIDRequired
	}
	accountID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrInvalidUserID
	}
	if *in.Temperature < MinTemperature || *in.Temperature > MaxTemperature {
		return nil, ErrTemperatureRange
	}
	if *in.Humidity < MinHumidity || *in.Humidity > MaxHumidity {
		return nil, ErrHumidityRange
	}

	if err := s.allow(ctx, accountID); err != nil {
		return nil, err
	}

	r := &Reading{
		AccountID:   accountID,
		DeviceID:    strings.TrimSpace(in.DeviceID),
		Temperature: *in.Temperature,
		Humidity:    *in.Humidity,
		Timestamp:   s.now().UTC(),
	}
	if r.DeviceID == "" {
		r.DeviceID = DefaultDeviceID
	}
	if in.Timestamp != nil && !in.Timestamp.IsZero() {
		if in.Timestamp.After(r.Timestamp.Add(MaxClockSkew)) {
			return nil, ErrFutureTimestamp
		}
		r.Timestamp = in.Timestamp.UTC()
	}

	if err := s.repo.Create(ctx, r); err != nil {
		switch {
		case errors.Is(err, errAccountMissing):
			return nil, ErrAccountNotFound
		case errors.Is(err, errOutOfRange):
			return nil, ErrOutOfRange
		}
		return nil, err
	}

	s.metrics.ReadingIngested()
	return r, nil
}

// allow consults the limiter. A limiter failure lets the reading through.
func (s *Service) allow(ctx context.Context, accountID uuid.UUID) error {
	if s.limiter == nil {
		return nil
	}
	ok, wait, err := s.limiter.Allow(ctx, "sensor:"+accountID.String())
	if err != nil {
		s.logger.Warn().Err(err).Str("account_id", accountID.String()).Msg("rate limiter unavailable")
		return nil
	}
	if !ok {
		s.metrics.IngestThrottled()
		return &ThrottledError{RetryAfter: wait}
	}
	return nil
}

// Latest returns the newest reading of accountID, or nil when there is none.
func (s *Service) Latest(ctx context.Context, accountID uuid.UUID) (*Reading, error) {
	return s.repo.Latest(ctx, accountID)
}

// History returns one page of readings, newest first.
func (s *Service) History(ctx context.Context, accountID uuid.UUID, p pagination.Params) ([]*Reading, pagination.Navigation, error) {
	items, total, err := s.repo.List(ctx, accountID, p.Limit, p.Offset())
	if err != nil {
		return nil, pagination.Navigation{}, err
	}
	if items == nil {
		items = []*Reading{}
	}
	return items, pagination.NewNavigation(p, total), nil
}

// StatsLast24h aggregates the readings recorded during the last StatsWindow.
func (s *Service) StatsLast24h(ctx context.Context, accountID uuid.UUID) (*Stats, error) {
	return s.repo.StatsSince(ctx, accountID, s.now().Add(-StatsWindow))
}

// Delete removes a reading owned by accountID.
func (s *Service) Delete(ctx context.Context, id, accountID uuid.UUID) (*Reading, error) {
	return s.repo.Delete(ctx, id, accountID)
}
