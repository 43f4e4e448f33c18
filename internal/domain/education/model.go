package education

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeArticle = "article"
	TypeVideo   = "video"
	TypeImage   = "image"
	TypeGuide   = "guide"
)

const (
	CategoryPrevention = "prevention"
	CategoryFootCare   = "foot_care"
	CategoryNutrition  = "nutrition"
	CategoryExercise   = "exercise"
	CategoryMonitoring = "monitoring"
	CategoryEmergency  = "emergency"
)

var (
	ContentTypes = []string{TypeArticle, TypeVideo, TypeImage, TypeGuide}
	Categories   = []string{
		CategoryPrevention, CategoryFootCare, CategoryNutrition,
		CategoryExercise, CategoryMonitoring, CategoryEmergency,
	}
)

// Author is the creator of a content item. It is nil once the creating
// account has been deleted.
type Author struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type Content struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Body        string    `json:"content"`
	ContentType string    `json:"contentType"`
	Category    string    `json:"category"`
	Photo       string    `json:"-"`
	PhotoURL    string    `json:"photo"`
	CreatedBy   *Author   `json:"createdBy"`
	Views       int64     `json:"views"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Input carries create and update fields. On update, blank fields keep
// their stored value.
type Input struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	Body        string `json:"content" form:"content"`
	ContentType string `json:"contentType" form:"contentType"`
	Category    string `json:"category" form:"category"`
}

// Patch lists the columns an update writes. Blank fields keep the stored
// value.
type Patch struct {
	Title       string
	Description string
	Body        string
	ContentType string
	Category    string
	Photo       string
}

// Editor identifies the caller of a write operation.
type Editor struct {
	ID         uuid.UUID
	Privileged bool
}

// Filter narrows List. Empty fields do not filter.
type Filter struct {
	Category    string
	ContentType string
	Search      string
	Sort        string
	Desc        bool
}

type CategoryCount struct {
	Category   string `json:"category"`
	Count      int    `json:"count"`
	TotalViews int64  `json:"totalViews"`
}

type TypeCount struct {
	ContentType string `json:"contentType"`
	Count       int    `json:"count"`
}

type ViewedItem struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Views       int64     `json:"views"`
	Category    string    `json:"category"`
	ContentType string    `json:"contentType"`
}

type RecentItem struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
}

type Stats struct {
	TotalContent      int             `json:"totalContent"`
	ContentByCategory []CategoryCount `json:"contentByCategory"`
	ContentByType     []TypeCount     `json:"contentByType"`
	MostViewed        []ViewedItem    `json:"mostViewed"`
	RecentContent     []RecentItem    `json:"recentContent"`
}

func validCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

func validType(t string) bool {
	for _, v := range ContentTypes {
		if v == t {
			return true
		}
	}
	return false
}
