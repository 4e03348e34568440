// Package people implements the Profile Service (spec §4.6): profile
// creation with sparse-unique-index duplicate detection, server-derived
// full_name, and idempotent role set mutation. Adapted from the teacher's
// internal/users.UserService (account signup/lookup shape) onto the
// Profile document model, with the teacher's threat scorer reused for
// self-service registration abuse detection (SPEC_FULL.md §5).
package people

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nexusgateway/mcp-gateway/internal/email"
	"github.com/nexusgateway/mcp-gateway/internal/errorsx"
	"github.com/nexusgateway/mcp-gateway/internal/store"
	"github.com/nexusgateway/mcp-gateway/internal/threat"
)

// Service implements profile lifecycle operations.
type Service struct {
	repo    *store.ProfileRepository
	scorer  threat.Scorer // optional; nil disables abuse scoring
	mailer  email.EmailSender // optional; nil disables verification email
	logger  *zap.Logger
}

// NewService wires a Service from the shared-services bundle. scorer and
// mailer are optional (nil-able, teacher's Set*-configuration pattern).
func NewService(repo *store.ProfileRepository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// SetScorer enables abuse scoring on self-service registration.
func (s *Service) SetScorer(scorer threat.Scorer) { s.scorer = scorer }

// SetMailer enables email-verification-gated activation.
func (s *Service) SetMailer(mailer email.EmailSender) { s.mailer = mailer }

// CreateProfileInput groups the fields accepted by profile creation.
type CreateProfileInput struct {
	UserID     *string
	ExternalID *string
	WhatsAppID *string
	Email      *string
	Phone      *string
	FirstName  string
	LastName   string
	Type       store.ProfileType
	Roles      []string
	SelfService bool // true when this is an end-user self-registration path
}

// CreateProfile validates at least one external identifier is present,
// derives full_name, optionally scores self-service registrations for
// abuse, and rejects with DuplicateProfile(field) on a unique-index hit.
func (s *Service) CreateProfile(ctx context.Context, in CreateProfileInput) (*store.Profile, error) {
	if in.UserID == nil && in.ExternalID == nil && in.WhatsAppID == nil && in.Email == nil && in.Phone == nil {
		return nil, errorsx.ValidationFailed(map[string]string{"identifier": "at least one of user_id/external_id/whatsapp_id/email/phone is required"})
	}
	if in.FirstName == "" {
		return nil, errorsx.ValidationFailed(map[string]string{"first_name": "required"})
	}

	if in.SelfService && s.scorer != nil {
		report, err := s.scorer.Score(ctx, in.FirstName+" "+in.LastName, "profile self-registration", "", in.Roles)
		if err != nil {
			s.logger.Warn("threat scoring failed, allowing registration", zap.Error(err))
		} else if report.Rejected {
			return nil, errorsx.Conflict(fmt.Sprintf("registration rejected: risk score %d (%s)", report.Score, report.Severity))
		}
	}

	now := time.Now().UTC()
	p := &store.Profile{
		UserID:     in.UserID,
		ExternalID: in.ExternalID,
		WhatsAppID: in.WhatsAppID,
		Email:      in.Email,
		Phone:      in.Phone,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		FullName:   deriveFullName(in.FirstName, in.LastName),
		Type:       in.Type,
		Roles:      dedupRoles(in.Roles),
		Active:     !s.requiresEmailVerification(in),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	dupField, err := s.repo.Create(ctx, p)
	if err != nil {
		if dupField != "" {
			return nil, errorsx.Conflict(fmt.Sprintf("duplicate profile: %s already in use", dupField))
		}
		return nil, errorsx.InternalWrap(err)
	}

	if !p.Active && s.mailer != nil && in.Email != nil {
		subject, body := email.VerificationEmail(p.FirstName)
		if err := s.mailer.Send(ctx, *in.Email, subject, body); err != nil {
			s.logger.Warn("verification email send failed", zap.Error(err), zap.String("profile_id", p.ID.Hex()))
		}
	}

	return p, nil
}

func (s *Service) requiresEmailVerification(in CreateProfileInput) bool {
	return in.SelfService && s.mailer != nil && in.Email != nil
}

func deriveFullName(first, last string) string {
	full := strings.TrimSpace(first + " " + last)
	return full
}

func dedupRoles(roles []string) []string {
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// GetByID implements the by-id round-trip lookup from spec §8.
func (s *Service) GetByID(ctx context.Context, id string) (*store.Profile, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, errorsx.EntityNotFound("profile", id)
		}
		return nil, errorsx.DependencyUnavailable("profile lookup failed")
	}
	return p, nil
}

// IdentifierType names which unique identifier LookupProfile should
// resolve against.
type IdentifierType string

const (
	IdentifierEmail      IdentifierType = "email"
	IdentifierWhatsAppID IdentifierType = "whatsapp_id"
	IdentifierUserID     IdentifierType = "user_id"
)

// LookupProfile resolves the by-email/by-whatsapp_id/by-user_id round-trip
// lookups from spec §8: "profile create then get by each unique identifier
// returns the same object".
func (s *Service) LookupProfile(ctx context.Context, kind IdentifierType, value string) (*store.Profile, error) {
	var p *store.Profile
	var err error
	switch kind {
	case IdentifierEmail:
		p, err = s.repo.GetByEmail(ctx, value)
	case IdentifierWhatsAppID:
		p, err = s.repo.GetByWhatsAppID(ctx, value)
	case IdentifierUserID:
		p, err = s.repo.GetByUserID(ctx, value)
	default:
		return nil, errorsx.ValidationFailed(map[string]string{"identifier_type": "must be one of email, whatsapp_id, user_id"})
	}
	if err != nil {
		if err == store.ErrNotFound {
			return nil, errorsx.EntityNotFound("profile", value)
		}
		return nil, errorsx.DependencyUnavailable("profile lookup failed")
	}
	return p, nil
}

// GetActiveClientByID implements sales.ProfileLookup.
func (s *Service) GetActiveClientByID(ctx context.Context, clientID string) (*store.Profile, error) {
	return s.GetByID(ctx, clientID)
}

// AddRole idempotently adds role to a profile.
func (s *Service) AddRole(ctx context.Context, id, role string) (*store.Profile, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, r := range p.Roles {
		if r == role {
			return p, nil
		}
	}
	p.Roles = append(p.Roles, role)
	p.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, errorsx.InternalWrap(err)
	}
	return p, nil
}

// RemoveRole idempotently removes role from a profile.
func (s *Service) RemoveRole(ctx context.Context, id, role string) (*store.Profile, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		if r != role {
			out = append(out, r)
		}
	}
	p.Roles = out
	p.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, errorsx.InternalWrap(err)
	}
	return p, nil
}

// UpdateName re-derives full_name whenever first/last name changes.
func (s *Service) UpdateName(ctx context.Context, id, firstName, lastName string) (*store.Profile, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.FirstName = firstName
	p.LastName = lastName
	p.FullName = deriveFullName(firstName, lastName)
	p.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, errorsx.InternalWrap(err)
	}
	return p, nil
}
