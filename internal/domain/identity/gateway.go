package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinic/intake/internal/platform/auth"
	"github.com/clinic/intake/internal/platform/fault"
)

// Gateway exposes the patient registry to other domains that need existence
// and access checks without depending on the full service surface.
type Gateway struct {
	patients PatientRepository
}

func NewGateway(patients PatientRepository) *Gateway {
	return &Gateway{patients: patients}
}

// Lookup fails with not_found when the patient does not exist.
func (g *Gateway) Lookup(ctx context.Context, patientID uuid.UUID) error {
	_, err := g.patients.GetByID(ctx, patientID)
	return err
}

// Contact returns the patient's display name and email, if any.
func (g *Gateway) Contact(ctx context.Context, patientID uuid.UUID) (string, *string, error) {
	p, err := g.patients.GetByID(ctx, patientID)
	if err != nil {
		return "", nil, err
	}
	return p.Name, p.Email, nil
}

// CaseOpen fails with conflict when the patient's case is closed, so no new
// records can be written against it.
func (g *Gateway) CaseOpen(ctx context.Context, patientID uuid.UUID) error {
	p, err := g.patients.GetByID(ctx, patientID)
	if err != nil {
		return err
	}
	if p.CaseStatus == CaseClosed {
		return fault.Conflict("case for patient %s is closed", patientID)
	}
	return nil
}

// Authorize allows admins and the professional who owns the patient's case.
// Roles come from the request context set by the auth middleware.
func (g *Gateway) Authorize(ctx context.Context, actorID, patientID uuid.UUID) error {
	for _, role := range auth.RolesFromContext(ctx) {
		if role == auth.RoleAdmin {
			return nil
		}
	}
	p, err := g.patients.GetByID(ctx, patientID)
	if err != nil {
		return err
	}
	if p.ProfessionalID != actorID {
		return fault.Forbidden("patient %s is not in your caseload", patientID)
	}
	return nil
}
