package sensor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/footcare/footcare/internal/platform/middleware"
	"github.com/footcare/footcare/pkg/pagination"
)

// -- Mock Repository --

type mockReadingRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]bool
	store    map[uuid.UUID]*Reading
}

func newMockReadingRepo() *mockReadingRepo {
	return &mockReadingRepo{
		accounts: make(map[uuid.UUID]bool),
		store:    make(map[uuid.UUID]*Reading),
	}
}

func (m *mockReadingRepo) addAccount() uuid.UUID {
	id := uuid.New()
	m.mu.Lock()
	m.accounts[id] = true
	m.mu.Unlock()
	return id
}

func (m *mockReadingRepo) Create(_ context.Context, r *Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.accounts[r.AccountID] {
		return errAccountMissing
	}
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	cp := *r
	m.store[r.ID] = &cp
	return nil
}

func (m *mockReadingRepo) sorted(accountID uuid.UUID) []*Reading {
	var out []*Reading
	for _, r := range m.store {
		if r.AccountID == accountID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

func (m *mockReadingRepo) Latest(_ context.Context, accountID uuid.UUID) (*Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted(accountID)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (m *mockReadingRepo) List(_ context.Context, accountID uuid.UUID, limit, offset int) ([]*Reading, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted(accountID)
	if offset >= len(all) {
		return nil, len(all), nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

func (m *mockReadingRepo) StatsSince(_ context.Context, accountID uuid.UUID, since time.Time) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st Stats
	var sumT, sumH float64
	for _, r := range m.sorted(accountID) {
		if r.Timestamp.Before(since) {
			continue
		}
		if st.TotalReadings == 0 || r.Temperature > st.MaxTemperature {
			st.MaxTemperature = r.Temperature
		}
		if st.TotalReadings == 0 || r.Temperature < st.MinTemperature {
			st.MinTemperature = r.Temperature
		}
		if st.TotalReadings == 0 || r.Humidity > st.MaxHumidity {
			st.MaxHumidity = r.Humidity
		}
		if st.TotalReadings == 0 || r.Humidity < st.MinHumidity {
			st.MinHumidity = r.Humidity
		}
		sumT += r.Temperature
		sumH += r.Humidity
		st.TotalReadings++
	}
	if st.TotalReadings > 0 {
		st.AvgTemperature = sumT / float64(st.TotalReadings)
		st.AvgHumidity = sumH / float64(st.TotalReadings)
	}
	return &st, nil
}

func (m *mockReadingRepo) Delete(_ context.Context, id, accountID uuid.UUID) (*Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.store[id]
	if !ok || r.AccountID != accountID {
		return nil, ErrReadingNotFound
	}
	delete(m.store, id)
	return r, nil
}

type countingRecorder struct {
	ingested, throttled int
}

func (r *countingRecorder) ReadingIngested() { r.ingested++ }
func (r *countingRecorder) IngestThrottled() { r.throttled++ }

func newTestService() (*Service, *mockReadingRepo, *countingRecorder) {
	repo := newMockReadingRepo()
	rec := &countingRecorder{}
	return NewService(repo, nil, rec, zerolog.Nop()), repo, rec
}

func f(v float64) *float64 { return &v }

// -- Tests --

func TestIngest_Success(t *testing.T) {
	svc, repo, rec := newTestService()
	id := repo.addAccount()

	r, err := svc.Ingest(context.Background(), IngestInput{Temperature: f(31.5), Humidity: f(40), UserID: id.String()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID == uuid.Nil || r.AccountID != id {
		t.Errorf("unexpected reading %+v", r)
	}
	if r.DeviceID != DefaultDeviceID {
		t.Errorf("expected default device id, got %q", r.DeviceID)
	}
	if r.Timestamp.IsZero() {
		t.Error("expected timestamp to default to now")
	}
	if rec.ingested != 1 {
		t.Errorf("expected 1 ingested, got %d", rec.ingested)
	}
}

func TestIngest_ZeroMeasurementsAreValid(t *testing.T) {
	svc, repo, _ := newTestService()
	id := repo.addAccount()

	if _, err := svc.Ingest(context.Background(), IngestInput{Temperature: f(0), Humidity: f(0), UserID: id.String(), DeviceID: "dev-2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIngest_Validation(t *testing.T) {
	svc, repo, _ := newTestService()
	id := repo.addAccount().String()

	tests := []struct {
		name string
		in   IngestInput
		want error
	}{
		{"missing temperature", IngestInput{Humidity: f(40), UserID: id}, ErrMeasurementsRequired},
		{"missing humidity", IngestInput{Temperature: f(30), UserID: id}, ErrMeasurementsRequired},
		{"missing user", IngestInput{Temperature: f(30), Humidity: f(40)}, ErrUserIDRequired},
		{"malformed user", IngestInput{Temperature: f(30), Humidity: f(40), UserID: "abc"}, ErrInvalidUserID},
		{"too hot", IngestInput{Temperature: f(100.5), Humidity: f(40), UserID: id}, ErrTemperatureRange},
		{"too cold", IngestInput{Temperature: f(-51), Humidity: f(40), UserID: id}, ErrTemperatureRange},
		{"humidity negative", IngestInput{Temperature: f(30), Humidity: f(-1), UserID: id}, ErrHumidityRange},
		{"humidity above 100", IngestInput{Temperature: f(30), Humidity: f(101), UserID: id}, ErrHumidityRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Ingest(context.Background(), tt.in); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestIngest_UnknownAccount(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Ingest(context.Background(), IngestInput{Temperature: f(30), Humidity: f(40), UserID: uuid.NewString()})
	if !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestIngest_FutureTimestamp(t *testing.T) {
	svc, repo, _ := newTestService()
	id := repo.addAccount()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	ahead := now.Add(MaxClockSkew + time.Second)
	_, err := svc.Ingest(context.Background(), IngestInput{Temperature: f(30), Humidity: f(40), UserID: id.String(), Timestamp: &ahead})
	if !errors.Is(err, ErrFutureTimestamp) {
		t.Fatalf("expected ErrFutureTimestamp, got %v", err)
	}

	skewed := now.Add(MaxClockSkew - time.Second)
	r, err := svc.Ingest(context.Background(), IngestInput{Temperature: f(30), Humidity: f(40), UserID: id.String(), Timestamp: &skewed})
	if err != nil {
		t.Fatalf("expected small skew to be accepted, got %v", err)
	}
	if !r.Timestamp.Equal(skewed) {
		t.Errorf("expected device timestamp %s, got %s", skewed, r.Timestamp)
	}
}

func TestIngest_Throttled(t *testing.T) {
	repo := newMockReadingRepo()
	rec := &countingRecorder{}
	svc := NewService(repo, middleware.NewMemoryLimiter(2, time.Minute), rec, zerolog.Nop())
	id := repo.addAccount()
	in := IngestInput{Temperature: f(30), Humidity: f(40), UserID: id.String()}

	for i := 0; i < 2; i++ {
		if _, err := svc.Ingest(context.Background(), in); err != nil {
			t.Fatalf("reading %d: unexpected error: %v", i, err)
		}
	}
	_, err := svc.Ingest(context.Background(), in)
	var te *ThrottledError
	if !errors.As(err, &te) {
		t.Fatalf("expected ThrottledError, got %v", err)
	}
	if te.RetryAfter <= 0 {
		t.Errorf("expected positive retry delay, got %s", te.RetryAfter)
	}
	if rec.throttled != 1 || rec.ingested != 2 {
		t.Errorf("unexpected counters %+v", rec)
	}

	other := repo.addAccount()
	if _, err := svc.Ingest(context.Background(), IngestInput{Temperature: f(30), Humidity: f(40), UserID: other.String()}); err != nil {
		t.Errorf("expected other account to be unaffected, got %v", err)
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return false, 0, errors.New("redis down")
}

func TestIngest_LimiterFailureAllowsReading(t *testing.T) {
	repo := newMockReadingRepo()
	svc := NewService(repo, failingLimiter{}, nil, zerolog.Nop())
	id := repo.addAccount()

	if _, err := svc.Ingest(context.Background(), IngestInput{Temperature: f(30), Humidity: f(40), UserID: id.String()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLatest(t *testing.T) {
	svc, repo, _ := newTestService()
	id := repo.addAccount()
	ctx := context.Background()

	r, err := svc.Latest(ctx, id)
	if err != nil || r != nil {
		t.Fatalf("expected no reading, got %v, %v", r, err)
	}

	old := time.Now().Add(-time.Hour)
	svc.Ingest(ctx, IngestInput{Temperature: f(30), Humidity: f(40), UserID: id.String(), Timestamp: &old})
	svc.Ingest(ctx, IngestInput{Temperature: f(33), Humidity: f(45), UserID: id.String()})

	r, err = svc.Latest(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Temperature != 33 {
		t.Errorf("expected newest reading, got %+v", r)
	}
}

func TestHistory_Pagination(t *testing.T) {
	svc, repo, _ := newTestService()
	id := repo.addAccount()
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		svc.Ingest(ctx, IngestInput{Temperature: f(float64(30 + i)), Humidity: f(40), UserID: id.String(), Timestamp: &ts})
	}

	items, nav, err := svc.History(ctx, id, pagination.Params{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 || items[0].Temperature != 32 {
		t.Errorf("unexpected page %+v", items)
	}
	if nav.TotalRecords != 5 || nav.TotalPages != 3 || !nav.HasNext || !nav.HasPrev {
		t.Errorf("unexpected navigation %+v", nav)
	}

	items, nav, _ = svc.History(ctx, uuid.New(), pagination.Params{Page: 1, Limit: 50})
	if items == nil || len(items) != 0 || nav.HasNext {
		t.Errorf("expected empty page, got %v %+v", items, nav)
	}
}

func TestStatsLast24h(t *testing.T) {
	svc, repo, _ := newTestService()
	id := repo.addAccount()
	ctx := context.Background()

	st, err := svc.StatsLast24h(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *st != (Stats{}) {
		t.Errorf("expected zero stats, got %+v", st)
	}

	stale := time.Now().Add(-25 * time.Hour)
	svc.Ingest(ctx, IngestInput{Temperature: f(90), Humidity: f(90), UserID: id.String(), Timestamp: &stale})
	svc.Ingest(ctx, IngestInput{Temperature: f(30), Humidity: f(40), UserID: id.String()})
	svc.Ingest(ctx, IngestInput{Temperature: f(34), Humidity: f(50), UserID: id.String()})

	st, _ = svc.StatsLast24h(ctx, id)
	if st.TotalReadings != 2 || st.AvgTemperature != 32 || st.MaxHumidity != 50 || st.MinTemperature != 30 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestDelete_Ownership(t *testing.T) {
	svc, repo, _ := newTestService()
	owner := repo.addAccount()
	other := repo.addAccount()
	ctx := context.Background()

	r, _ := svc.Ingest(ctx, IngestInput{Temperature: f(30), Humidity: f(40), UserID: owner.String()})

	if _, err := svc.Delete(ctx, r.ID, other); !errors.Is(err, ErrReadingNotFound) {
		t.Errorf("expected ErrReadingNotFound for foreign reading, got %v", err)
	}
	deleted, err := svc.Delete(ctx, r.ID, owner)
	if err != nil || deleted.ID != r.ID {
		t.Fatalf("expected delete to succeed, got %v, %v", deleted, err)
	}
	if _, err := svc.Delete(ctx, r.ID, owner); !errors.Is(err, ErrReadingNotFound) {
		t.Errorf("expected second delete to fail, got %v", err)
	}
}
