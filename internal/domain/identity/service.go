package identity

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinic/intake/internal/platform/auth"
	"github.com/clinic/intake/internal/platform/fault"
)

// TokenTTL is how long an issued session token stays valid.
const TokenTTL = 12 * time.Hour

type Service struct {
	users    UserRepository
	patients PatientRepository
	jwtCfg   auth.JWTConfig
}

func NewService(users UserRepository, patients PatientRepository, jwtCfg auth.JWTConfig) *Service {
	return &Service{users: users, patients: patients, jwtCfg: jwtCfg}
}

// -- Users --

func validRole(role string) bool {
	switch role {
	case auth.RoleAdmin, auth.RoleProfessional, auth.RoleReceptionist:
		return true
	}
	return false
}

func (s *Service) CreateUser(ctx context.Context, u *User, password string) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Email == "" || u.Name == "" {
		return fault.Invalid("email and name are required")
	}
	if !validRole(u.Role) {
		return fault.Invalid("unknown role %q", u.Role)
	}
	if len(password) < 8 {
		return fault.Invalid("password must have at least 8 characters")
	}
	if existing, err := s.users.GetByEmail(ctx, u.Email); err == nil && existing != nil {
		return fault.Conflict("email %s already registered", u.Email)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fault.Wrap(err, fault.KindInternal, "hash password")
	}
	u.PasswordHash = string(hash)
	u.Active = true
	if err := s.users.Create(ctx, u); err != nil {
		return err
	}
	log.Info().Str("user_id", u.ID.String()).Str("role", u.Role).Msg("user created")
	return nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}

func (s *Service) DeactivateUser(ctx context.Context, id uuid.UUID) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	u.Active = false
	return s.users.Update(ctx, u)
}

// Authenticate verifies the credentials and issues a signed session token.
// Lookup failures and bad passwords return the same forbidden error so the
// endpoint does not reveal which emails exist.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, *User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil || !u.Active {
		return "", nil, fault.Forbidden("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, fault.Forbidden("invalid credentials")
	}
	now := time.Now()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			Issuer:    s.jwtCfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
		Roles: []string{u.Role},
	}
	if s.jwtCfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.jwtCfg.Audience}
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtCfg.SigningKey)
	if err != nil {
		return "", nil, fault.Wrap(err, fault.KindInternal, "sign token")
	}
	return token, u, nil
}

// -- Patients --

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if p.Name == "" {
		return fault.Invalid("name is required")
	}
	if p.ProfessionalID == uuid.Nil {
		return fault.Invalid("professional id is required")
	}
	owner, err := s.users.GetByID(ctx, p.ProfessionalID)
	if err != nil {
		return err
	}
	if owner.Role != auth.RoleProfessional {
		return fault.Invalid("case owner must be a professional")
	}
	p.CaseStatus = CaseOpen
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if p.Name == "" {
		return fault.Invalid("name is required")
	}
	if _, err := s.patients.GetByID(ctx, p.ID); err != nil {
		return err
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) ListPatients(ctx context.Context, professionalID *uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, professionalID, limit, offset)
}

func (s *Service) CloseCase(ctx context.Context, id uuid.UUID) error {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.CaseStatus == CaseClosed {
		return fault.Conflict("case for patient %s is already closed", id)
	}
	return s.patients.SetCaseStatus(ctx, id, CaseClosed)
}

func (s *Service) ReopenCase(ctx context.Context, id uuid.UUID) error {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.CaseStatus == CaseOpen {
		return fault.Conflict("case for patient %s is already open", id)
	}
	return s.patients.SetCaseStatus(ctx, id, CaseOpen)
}
