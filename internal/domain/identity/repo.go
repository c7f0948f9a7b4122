package identity

import (
	"context"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	// List returns patients, newest first. A non-nil professionalID
	// restricts the result to that professional's cases.
	List(ctx context.Context, professionalID *uuid.UUID, limit, offset int) ([]*Patient, int, error)
	SetCaseStatus(ctx context.Context, id uuid.UUID, status CaseStatus) error
}
