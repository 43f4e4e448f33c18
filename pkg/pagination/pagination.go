package pagination

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/footcare/footcare/internal/platform/apperr"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
	// MaxPage keeps (page-1)*limit far from integer overflow.
	MaxPage = 100000
)

var (
	ErrLimitTooLarge = apperr.Validation(fmt.Sprintf("Limit cannot exceed %d records", MaxLimit))
	ErrPageTooLarge  = apperr.Validation(fmt.Sprintf("Page cannot exceed %d", MaxPage))
)

// Params holds page-based pagination parameters extracted from a request.
// Page is 1-based.
type Params struct {
	Page  int
	Limit int
}

// FromContext reads `page` and `limit`, falling back to defaultLimit and
// clamping out-of-range values.
func FromContext(c echo.Context, defaultLimit int) Params {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{Page: page, Limit: limit}
}

// StrictFromContext is like FromContext but rejects a limit outside
// 1..MaxLimit, or a page past MaxPage, instead of clamping it.
func StrictFromContext(c echo.Context, defaultLimit int) (Params, error) {
	page := 1
	if raw := c.QueryParam("page"); raw != "" {
		// Atoi saturates at MaxInt on overflow, which MaxPage rejects.
		n, err := strconv.Atoi(raw)
		if n > MaxPage {
			return Params{}, ErrPageTooLarge
		}
		if err == nil && n > 1 {
			page = n
		}
	}

	limit := defaultLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Params{}, apperr.Validation("Limit must be a positive number")
		}
		if n > MaxLimit {
			return Params{}, ErrLimitTooLarge
		}
		limit = n
	}

	return Params{Page: page, Limit: limit}, nil
}

// Offset returns the number of rows to skip.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pages returns the number of pages needed for total rows.
func (p Params) Pages(total int) int {
	if p.Limit <= 0 || total <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

// Summary is the pagination block of list responses.
type Summary struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

func NewSummary(p Params, total int) Summary {
	return Summary{Total: total, Page: p.Page, Limit: p.Limit, Pages: p.Pages(total)}
}

// Navigation is the pagination block of history responses.
type Navigation struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalRecords int  `json:"totalRecords"`
	HasNext      bool `json:"hasNext"`
	HasPrev      bool `json:"hasPrev"`
}

func NewNavigation(p Params, total int) Navigation {
	pages := p.Pages(total)
	return Navigation{
		CurrentPage:  p.Page,
		TotalPages:   pages,
		TotalRecords: total,
		HasNext:      p.Page < pages,
		HasPrev:      p.Page > 1,
	}
}
