package education

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/footcare/footcare/internal/platform/apperr"
	"github.com/footcare/footcare/internal/platform/blobstore"
	"github.com/footcare/footcare/pkg/pagination"
)

// -- Mock Repository --

type mockContentRepo struct {
	mu      sync.Mutex
	store   map[uuid.UUID]*Content
	lastF   Filter
	failErr error
}

func newMockContentRepo() *mockContentRepo {
	return &mockContentRepo{store: make(map[uuid.UUID]*Content)}
}

func (m *mockContentRepo) Create(_ context.Context, c *Content) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now().Add(time.Duration(len(m.store)) * time.Millisecond)
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.store[c.ID] = &cp
	return nil
}

func (m *mockContentRepo) Get(_ context.Context, id uuid.UUID) (*Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockContentRepo) GetAndCountView(_ context.Context, id uuid.UUID) (*Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.Views++
	cp := *c
	return &cp, nil
}

func (m *mockContentRepo) Update(_ context.Context, id uuid.UUID, p Patch) (*Content, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, "", m.failErr
	}
	c, ok := m.store[id]
	if !ok {
		return nil, "", ErrNotFound
	}
	previous := c.Photo
	for dst, v := range map[*string]string{
		&c.Title: p.Title, &c.Description: p.Description, &c.Body: p.Body,
		&c.ContentType: p.ContentType, &c.Category: p.Category, &c.Photo: p.Photo,
	} {
		if v != "" {
			*dst = v
		}
	}
	c.UpdatedAt = time.Now()
	cp := *c
	return &cp, previous, nil
}

func (m *mockContentRepo) Delete(_ context.Context, id uuid.UUID) (*Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.store, id)
	return c, nil
}

func (m *mockContentRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Content, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastF = f
	var out []*Content
	for _, c := range m.store {
		if f.Category != "" && c.Category != f.Category {
			continue
		}
		if f.ContentType != "" && c.ContentType != f.ContentType {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(c.Title+" "+c.Description), strings.ToLower(f.Search)) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if f.Sort == "views" && out[i].Views != out[j].Views {
			return (out[i].Views > out[j].Views) == f.Desc
		}
		return out[i].CreatedAt.After(out[j].CreatedAt) == f.Desc
	})
	total := len(out)
	if limit > 0 {
		if offset >= len(out) {
			return nil, total, nil
		}
		out = out[offset:]
		if len(out) > limit {
			out = out[:limit]
		}
	}
	return out, total, nil
}

func (m *mockContentRepo) Stats(_ context.Context, top int) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &Stats{TotalContent: len(m.store)}, nil
}

// -- Helpers --

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

var (
	admin  = Editor{ID: uuid.New(), Privileged: true}
	reader = Editor{ID: uuid.New()}
)

func newTestService() (*Service, *mockContentRepo, *blobstore.MemoryStore) {
	repo := newMockContentRepo()
	files := blobstore.NewMemoryStore()
	return NewService(repo, files, 1<<20, zerolog.Nop()), repo, files
}

func validInput() Input {
	return Input{Title: "Daily checks", Description: "Inspect your feet", Body: "Look for cuts and blisters."}
}

func photoBody(t *testing.T, fields map[string]string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		w.WriteField(k, v)
	}
	if content != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+PhotoField+`"; filename="photo.png"`)
		h.Set("Content-Type", "image/png")
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("CreatePart: %v", err)
		}
		part.Write(content)
	}
	w.Close()
	return &body, w.FormDataContentType()
}

func photoHeader(t *testing.T) *multipart.FileHeader {
	t.Helper()
	body, contentType := photoBody(t, nil, pngBytes)
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("ParseMultipartForm: %v", err)
	}
	return req.MultipartForm.File[PhotoField][0]
}

// -- Tests --

func TestCreate_Defaults(t *testing.T) {
	svc, _, _ := newTestService()

	c, err := svc.Create(context.Background(), admin, validInput(), nil)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if c.ContentType != TypeArticle || c.Category != CategoryPrevention || c.Views != 0 {
		t.Errorf("unexpected defaults %+v", c)
	}
	if c.CreatedBy == nil || c.CreatedBy.ID != admin.ID {
		t.Errorf("expected author %s, got %+v", admin.ID, c.CreatedBy)
	}
	if c.PhotoURL != "" {
		t.Errorf("expected no photo url, got %q", c.PhotoURL)
	}
}

func TestCreate_RequiresPrivilege(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), reader, validInput(), nil)
	if !errors.Is(err, ErrCreateForbidden) {
		t.Errorf("expected ErrCreateForbidden, got %v", err)
	}
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Input)
		want   error
	}{
		{"missing title", func(in *Input) { in.Title = "" }, ErrFieldsRequired},
		{"blank description", func(in *Input) { in.Description = "   " }, ErrFieldsRequired},
		{"missing body", func(in *Input) { in.Body = "" }, ErrFieldsRequired},
		{"unknown type", func(in *Input) { in.ContentType = "podcast" }, ErrInvalidType},
		{"unknown category", func(in *Input) { in.Category = "shoes" }, ErrInvalidCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService()
			in := validInput()
			tt.modify(&in)
			_, err := svc.Create(context.Background(), admin, in, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCreate_WithPhoto(t *testing.T) {
	svc, _, files := newTestService()

	c, err := svc.Create(context.Background(), admin, validInput(), photoHeader(t))
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, _, ok := files.Get(c.Photo); !ok {
		t.Fatal("expected photo to be stored")
	}
	if c.PhotoURL != files.URL(c.Photo) {
		t.Errorf("unexpected photo url %q", c.PhotoURL)
	}
}

func TestCreate_RepoFailureRemovesPhoto(t *testing.T) {
	svc, repo, files := newTestService()
	repo.failErr = errors.New("db down")

	if _, err := svc.Create(context.Background(), admin, validInput(), photoHeader(t)); err == nil {
		t.Fatal("expected error")
	}
	if files.Len() != 0 {
		t.Errorf("expected photo to be removed, %d files left", files.Len())
	}
}

func TestView_CountsViews(t *testing.T) {
	svc, _, _ := newTestService()
	c, _ := svc.Create(context.Background(), admin, validInput(), nil)

	for i := 1; i <= 3; i++ {
		got, err := svc.View(context.Background(), c.ID)
		if err != nil {
			t.Fatalf("View() error: %v", err)
		}
		if got.Views != int64(i) {
			t.Errorf("expected %d views, got %d", i, got.Views)
		}
	}
}

func TestView_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.View(context.Background(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestUpdate_PartialFields(t *testing.T) {
	svc, _, _ := newTestService()
	c, _ := svc.Create(context.Background(), admin, validInput(), nil)

	got, err := svc.Update(context.Background(), c.ID, admin, Input{Category: CategoryNutrition}, nil)
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if got.Category != CategoryNutrition {
		t.Errorf("expected category %s, got %s", CategoryNutrition, got.Category)
	}
	if got.Title != c.Title || got.Body != c.Body {
		t.Errorf("expected untouched fields to be kept, got %+v", got)
	}
}

func TestUpdate_ReplacesPhoto(t *testing.T) {
	svc, _, files := newTestService()
	c, _ := svc.Create(context.Background(), admin, validInput(), photoHeader(t))
	old := c.Photo

	got, err := svc.Update(context.Background(), c.ID, admin, Input{}, photoHeader(t))
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if got.Photo == old {
		t.Fatal("expected a new photo name")
	}
	if _, _, ok := files.Get(old); ok {
		t.Error("expected previous photo to be deleted")
	}
	if files.Len() != 1 {
		t.Errorf("expected 1 stored file, got %d", files.Len())
	}
}

func TestUpdate_Errors(t *testing.T) {
	svc, _, _ := newTestService()
	c, _ := svc.Create(context.Background(), admin, validInput(), nil)

	if _, err := svc.Update(context.Background(), c.ID, reader, Input{Title: "x"}, nil); !errors.Is(err, ErrUpdateForbidden) {
		t.Errorf("expected ErrUpdateForbidden, got %v", err)
	}
	if _, err := svc.Update(context.Background(), uuid.New(), admin, Input{Title: "x"}, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Update(context.Background(), c.ID, admin, Input{ContentType: "podcast"}, nil); !errors.Is(err, ErrInvalidType) {
		t.Errorf("expected ErrInvalidType, got %v", err)
	}
}

func TestUpdate_ConcurrentEditsKeepEachField(t *testing.T) {
	svc, repo, _ := newTestService()
	c, _ := svc.Create(context.Background(), admin, validInput(), nil)

	var wg sync.WaitGroup
	for _, in := range []Input{{Title: "Renamed"}, {Category: CategoryExercise}} {
		wg.Add(1)
		go func(in Input) {
			defer wg.Done()
			if _, err := svc.Update(context.Background(), c.ID, admin, in, nil); err != nil {
				t.Errorf("Update() error: %v", err)
			}
		}(in)
	}
	wg.Wait()

	got, _ := repo.Get(context.Background(), c.ID)
	if got.Title != "Renamed" || got.Category != CategoryExercise {
		t.Errorf("expected both edits to survive, got title %q category %q", got.Title, got.Category)
	}
	if got.Body != c.Body {
		t.Errorf("expected body to be kept, got %q", got.Body)
	}
}

func TestUpdate_FailedSaveDiscardsNewPhoto(t *testing.T) {
	svc, repo, files := newTestService()
	c, _ := svc.Create(context.Background(), admin, validInput(), photoHeader(t))
	repo.failErr = errors.New("db down")

	if _, err := svc.Update(context.Background(), c.ID, admin, Input{}, photoHeader(t)); err == nil {
		t.Fatal("expected an error")
	}
	if files.Len() != 1 {
		t.Errorf("expected only the original photo to remain, got %d files", files.Len())
	}
	if _, _, ok := files.Get(c.Photo); !ok {
		t.Error("expected original photo to be kept")
	}
}

func TestCreate_SanitizesText(t *testing.T) {
	svc, _, _ := newTestService()

	got, err := svc.Create(context.Background(), admin, Input{Title: "  Care\x00 tips\x07 ", Description: "d", Body: "line one\nline two"}, nil)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if got.Title != "Care tips" {
		t.Errorf("expected control characters stripped, got %q", got.Title)
	}
	if got.Body != "line one\nline two" {
		t.Errorf("expected newlines kept, got %q", got.Body)
	}
}

func TestDelete_RemovesPhoto(t *testing.T) {
	svc, repo, files := newTestService()
	c, _ := svc.Create(context.Background(), admin, validInput(), photoHeader(t))

	if err := svc.Delete(context.Background(), c.ID, reader); !errors.Is(err, ErrDeleteForbidden) {
		t.Fatalf("expected ErrDeleteForbidden, got %v", err)
	}
	if err := svc.Delete(context.Background(), c.ID, admin); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if len(repo.store) != 0 || files.Len() != 0 {
		t.Errorf("expected content and photo to be gone, %d rows %d files", len(repo.store), files.Len())
	}
	if err := svc.Delete(context.Background(), c.ID, admin); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestList_PaginatesAndFilters(t *testing.T) {
	svc, repo, _ := newTestService()
	for i := 0; i < 5; i++ {
		in := validInput()
		if i%2 == 0 {
			in.Category = CategoryExercise
		}
		svc.Create(context.Background(), admin, in, nil)
	}

	items, page, err := svc.List(context.Background(), Filter{Category: CategoryExercise, Desc: true}, pagination.Params{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("expected 2 items, got %d", len(items))
	}
	if page.Total != 3 || page.Pages != 2 || page.Page != 1 || page.Limit != 2 {
		t.Errorf("unexpected pagination %+v", page)
	}
	if repo.lastF.Sort != "createdAt" {
		t.Errorf("expected default sort createdAt, got %q", repo.lastF.Sort)
	}
}

func TestList_UnknownSortFallsBack(t *testing.T) {
	svc, repo, _ := newTestService()

	items, _, err := svc.List(context.Background(), Filter{Sort: "password", Search: "  feet "}, pagination.Params{Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if items == nil {
		t.Error("expected empty, non-nil list")
	}
	if repo.lastF.Sort != "createdAt" || repo.lastF.Search != "feet" {
		t.Errorf("unexpected filter %+v", repo.lastF)
	}
}

func TestListByCategory(t *testing.T) {
	svc, _, _ := newTestService()
	in := validInput()
	in.Category = CategoryEmergency
	svc.Create(context.Background(), admin, in, nil)
	svc.Create(context.Background(), admin, validInput(), nil)

	items, err := svc.ListByCategory(context.Background(), CategoryEmergency)
	if err != nil {
		t.Fatalf("ListByCategory() error: %v", err)
	}
	if len(items) != 1 || items[0].Category != CategoryEmergency {
		t.Errorf("unexpected items %+v", items)
	}

	_, err = svc.ListByCategory(context.Background(), "shoes")
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Details["validCategories"] == nil {
		t.Errorf("expected invalid category with details, got %v", err)
	}
}
