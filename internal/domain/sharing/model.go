package sharing

import (
	"time"

	"github.com/google/uuid"

	"github.com/footcare/footcare/internal/domain/account"
)

// SearchLimit caps the candidates returned by Search.
const SearchLimit = 20

// MinQueryLength is the shortest accepted search query.
const MinQueryLength = 2

// Party is the other side of a grant, together with when the grant was made.
type Party struct {
	account.Summary
	SharedSince time.Time `json:"sharedSince"`
}

// Candidate is a search hit annotated with whether the searcher already
// shares with it.
type Candidate struct {
	account.Summary
	CanSeeMyData bool `json:"canSeeMyData"`
}

// GranteeView describes a grantee and everyone currently sharing with it.
type GranteeView struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	SharedWithMe []Party   `json:"sharedWithMe"`
}
