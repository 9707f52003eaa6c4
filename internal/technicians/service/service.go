// Package service manages the technician roster and resolves who attends a
// visit.
package service

import (
	"context"
	"fmt"
	"strings"

	"fm_servicios_backend/internal/technicians/repository"
	"fm_servicios_backend/internal/technicians/transport"
	"fm_servicios_backend/platform/apperr"
	"fm_servicios_backend/platform/logger"
	"fm_servicios_backend/platform/phone"
	"fm_servicios_backend/platform/rut"
	"fm_servicios_backend/platform/slug"
)

const (
	maxSlugLen      = 80
	maxSlugAttempts = 100
)

type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Create registers a technician. RUT and phone are stored in canonical form
// and the slug is derived from the name, or the email when the name is blank.
func (s *Service) Create(ctx context.Context, req transport.CreateTechnicianRequest) (transport.TechnicianResponse, error) {
	normRUT, err := rut.Normalize(req.RUT)
	if err != nil {
		return transport.TechnicianResponse{}, apperr.Validation("invalid RUT").WithField("rut")
	}
	var normPhone string
	if strings.TrimSpace(req.Phone) != "" {
		normPhone, err = phone.NormalizeCL(req.Phone)
		if err != nil {
			return transport.TechnicianResponse{}, apperr.Validation("invalid phone number").WithField("phone")
		}
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	first := strings.TrimSpace(req.FirstName)
	last := strings.TrimSpace(req.LastName)

	source := strings.TrimSpace(first + " " + last)
	if source == "" {
		source = email
	}
	techSlug, err := s.uniqueSlug(ctx, slug.Make(source, maxSlugLen))
	if err != nil {
		return transport.TechnicianResponse{}, err
	}

	t, err := s.repo.Create(ctx, repository.CreateParams{
		Slug:      techSlug,
		FirstName: first,
		LastName:  last,
		Email:     email,
		RUT:       normRUT,
		Phone:     normPhone,
		UserID:    req.UserID,
		ServiceID: req.ServiceID,
		Specialty: strings.TrimSpace(req.Specialty),
	})
	if err != nil {
		return transport.TechnicianResponse{}, err
	}

	s.log.Info("technician registered", "slug", t.Slug)
	return toResponse(t), nil
}

func (s *Service) uniqueSlug(ctx context.Context, base string) (string, error) {
	if base == "" {
		base = "tecnico"
	}
	for i := 0; i < maxSlugAttempts; i++ {
		candidate := base
		if i > 0 {
			suffix := fmt.Sprintf("-%d", i+1)
			candidate = strings.TrimRight(truncate(base, maxSlugLen-len(suffix)), "-") + suffix
		}
		exists, err := s.repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", apperr.Conflict("could not allocate a technician slug")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func (s *Service) Get(ctx context.Context, techSlug string) (transport.TechnicianResponse, error) {
	t, err := s.repo.GetBySlug(ctx, techSlug)
	if err != nil {
		return transport.TechnicianResponse{}, err
	}
	return toResponse(t), nil
}

func (s *Service) List(ctx context.Context, activeOnly bool) (transport.ListResponse, error) {
	items, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return transport.ListResponse{}, err
	}
	resp := transport.ListResponse{Items: make([]transport.TechnicianResponse, 0, len(items))}
	for _, t := range items {
		resp.Items = append(resp.Items, toResponse(t))
	}
	return resp, nil
}

func (s *Service) SetActive(ctx context.Context, techSlug string, active bool) error {
	if err := s.repo.SetActive(ctx, techSlug, active); err != nil {
		return err
	}
	s.log.Info("technician availability changed", "slug", techSlug, "active", active)
	return nil
}

// ResolveActive returns the technician for slug, failing when the slug is
// unknown or the technician is inactive.
func (s *Service) ResolveActive(ctx context.Context, techSlug string) (repository.Technician, error) {
	t, err := s.repo.GetBySlug(ctx, strings.TrimSpace(techSlug))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return repository.Technician{}, apperr.Validation("unknown technician").WithField("technician")
		}
		return repository.Technician{}, err
	}
	if !t.Active {
		return repository.Technician{}, apperr.Validation("technician is not active").WithField("technician")
	}
	return t, nil
}

// ForService picks the technician for a service: an active one assigned to
// it, otherwise the first active technician. ok is false when the roster has
// no active technicians.
func (s *Service) ForService(ctx context.Context, serviceID *int64) (t repository.Technician, ok bool, err error) {
	t, err = s.repo.FirstActive(ctx, serviceID)
	if apperr.Is(err, apperr.KindNotFound) {
		return repository.Technician{}, false, nil
	}
	if err != nil {
		return repository.Technician{}, false, err
	}
	return t, true, nil
}

// ForUser maps a TECNICO account to its technician record.
func (s *Service) ForUser(ctx context.Context, userID int64) (repository.Technician, error) {
	t, err := s.repo.GetByUserID(ctx, userID)
	if apperr.Is(err, apperr.KindNotFound) {
		return repository.Technician{}, apperr.Forbidden("account is not linked to an active technician")
	}
	return t, err
}

func toResponse(t repository.Technician) transport.TechnicianResponse {
	return transport.TechnicianResponse{
		Slug:      t.Slug,
		Name:      t.FullName(),
		Email:     t.Email,
		RUT:       t.RUT,
		Phone:     t.Phone,
		ServiceID: t.ServiceID,
		Specialty: t.SpecialtyLabel(),
		Active:    t.Active,
		CreatedAt: t.CreatedAt,
	}
}
