package footanalysis

import (
	"time"

	"github.com/google/uuid"
)

// Record is one stored classification of a foot photo.
type Record struct {
	ID         uuid.UUID `json:"id"`
	AccountID  uuid.UUID `json:"user"`
	ImageRef   string    `json:"-"`
	ImageURL   string    `json:"imageUrl"`
	Result     string    `json:"result"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Prediction is the classifier's verdict. Confidence is in [0,1].
type Prediction struct {
	Label      string
	Confidence float64
}
