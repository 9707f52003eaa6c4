// Package service provisions and looks up customers.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"fm_servicios_backend/internal/customers/repository"
	"fm_servicios_backend/platform/apperr"
	"fm_servicios_backend/platform/logger"
	"fm_servicios_backend/platform/sanitize"
	"fm_servicios_backend/platform/slug"

	"golang.org/x/crypto/bcrypt"
)

const (
	maxUsernameLen      = 150
	maxUsernameAttempts = 50
	placeholderDomain   = "contact.fm"
)

// ProvisionInput identifies a person who may or may not have an account.
type ProvisionInput struct {
	Email string
	Name  string
	Phone string // already normalized, may be empty
}

// Service provides customer identity operations.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) Get(ctx context.Context, id int64) (repository.Customer, error) {
	return s.repo.GetByID(ctx, id)
}

// FindOrProvision returns the customer owning in.Email, creating one when
// none exists. Calling it twice with the same email yields the same customer.
// Without an email a new account with a unique placeholder address is created.
func (s *Service) FindOrProvision(ctx context.Context, in ProvisionInput) (repository.Customer, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)

	if email != "" {
		existing, err := s.repo.GetByEmail(ctx, email)
		if err == nil {
			if in.Phone != "" && existing.Phone == "" {
				if err := s.repo.FillPhone(ctx, existing.ID, in.Phone); err != nil {
					return repository.Customer{}, err
				}
				existing.Phone = in.Phone
			}
			return existing, nil
		}
		if !apperr.Is(err, apperr.KindNotFound) {
			return repository.Customer{}, err
		}
	}

	base := slug.Make(name, maxUsernameLen)
	if base == "" && email != "" {
		base = slug.Make(strings.SplitN(email, "@", 2)[0], maxUsernameLen)
	}
	if base == "" {
		base = "cliente"
	}

	hash, err := randomPasswordHash()
	if err != nil {
		return repository.Customer{}, err
	}
	first, last := splitName(name)

	for attempt := 0; attempt < maxUsernameAttempts; attempt++ {
		username := base
		if attempt > 0 {
			username = fmt.Sprintf("%s-%d", base, attempt)
		}
		addr := email
		if addr == "" {
			suffix, err := randomHex(3)
			if err != nil {
				return repository.Customer{}, err
			}
			addr = fmt.Sprintf("%s-%s@%s", username, suffix, placeholderDomain)
		}

		c, created, err := s.repo.TryCreate(ctx, repository.CreateParams{
			Username:     username,
			Email:        addr,
			FirstName:    first,
			LastName:     last,
			Phone:        in.Phone,
			PasswordHash: hash,
		})
		if err != nil {
			return repository.Customer{}, err
		}
		if created {
			s.log.Info("customer provisioned", "customerId", c.ID, "email", sanitize.MaskEmail(c.Email))
			return c, nil
		}

		// Lost a race on the email: the other writer's row is the answer.
		if email != "" {
			if existing, err := s.repo.GetByEmail(ctx, email); err == nil {
				return existing, nil
			}
		}
	}

	return repository.Customer{}, apperr.Conflict("could not allocate a username for the customer")
}

func splitName(name string) (string, string) {
	first, last, _ := strings.Cut(name, " ")
	return first, strings.TrimSpace(last)
}

func randomPasswordHash() (string, error) {
	secret, err := randomHex(12)
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash provisioned password: %w", err)
	}
	return string(hash), nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
