package careteam

import (
	"time"

	"github.com/google/uuid"

	"github.com/footcare/footcare/internal/domain/account"
)

const (
	SearchLimit    = 20
	MinQueryLength = 2
)

// AssignedPatient is a patient on a clinician's list.
type AssignedPatient struct {
	account.Summary
	AssignedAt time.Time `json:"assignedAt"`
}

// Roster is a clinician together with their current patient list.
type Roster struct {
	ID               uuid.UUID         `json:"id"`
	Name             string            `json:"name"`
	AssignedPatients []AssignedPatient `json:"assignedPatients"`
	PatientCount     int               `json:"patientCount"`
}
