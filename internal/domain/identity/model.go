// Package identity manages the clinic's users and patient registry. Patients
// belong to a case owned by one professional; the case status gates clinical
// writes elsewhere in the system.
package identity

import (
	"time"

	"github.com/google/uuid"
)

// CaseStatus of a patient's treatment case.
type CaseStatus string

const (
	CaseOpen   CaseStatus = "open"
	CaseClosed CaseStatus = "closed"
)

// User maps to the app_user table.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"nome"`
	Role         string    `db:"role" json:"papel"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Active       bool      `db:"active" json:"ativo"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Patient maps to the patient table.
type Patient struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	Name           string     `db:"name" json:"nome"`
	BirthDate      *time.Time `db:"birth_date" json:"dataNascimento,omitempty"`
	Phone          *string    `db:"phone" json:"telefone,omitempty"`
	Email          *string    `db:"email" json:"email,omitempty"`
	ProfessionalID uuid.UUID  `db:"professional_id" json:"profissionalId"`
	CaseStatus     CaseStatus `db:"case_status" json:"statusCaso"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}
