// Package scheduling manages professional availability and patient sessions.
package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus follows the session lifecycle. Completed and canceled are
// terminal.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionConfirmed SessionStatus = "confirmed"
	SessionCompleted SessionStatus = "completed"
	SessionCanceled  SessionStatus = "canceled"
)

// CanTransition reports whether a session may move from s to next.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	switch s {
	case SessionScheduled:
		return next == SessionConfirmed || next == SessionCanceled
	case SessionConfirmed:
		return next == SessionCompleted || next == SessionCanceled
	}
	return false
}

// Availability maps to the availability table: one recurring weekly slot in
// which a professional accepts sessions. Times are minutes from midnight,
// local to the clinic.
type Availability struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ProfessionalID uuid.UUID `db:"professional_id" json:"profissionalId"`
	Weekday        int       `db:"weekday" json:"diaSemana"`
	StartMinute    int       `db:"start_minute" json:"inicioMinuto"`
	EndMinute      int       `db:"end_minute" json:"fimMinuto"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Session maps to the session table: one booked encounter between a
// professional and a patient.
type Session struct {
	ID             uuid.UUID     `db:"id" json:"id"`
	PatientID      uuid.UUID     `db:"patient_id" json:"pacienteId"`
	ProfessionalID uuid.UUID     `db:"professional_id" json:"profissionalId"`
	StartsAt       time.Time     `db:"starts_at" json:"inicio"`
	EndsAt         time.Time     `db:"ends_at" json:"fim"`
	Status         SessionStatus `db:"status" json:"status"`
	Notes          *string       `db:"notes" json:"observacoes,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}
