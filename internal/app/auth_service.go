package app

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"payment_batch_service/internal/domain/organization"
	idb "payment_batch_service/internal/infra/database"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const tokenBytes = 32

// AuthService resolves bearer credentials to organizations and provisions them.
type AuthService struct {
	orgRepo organization.Repository
	logger  *logrus.Entry
}

func NewAuthService(repo organization.Repository, logger *logrus.Entry) *AuthService {
	return &AuthService{orgRepo: repo, logger: logger}
}

// DigestToken returns the stored form of a bearer token.
func DigestToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// AuthenticateCaller returns the organization owning token.
func (s *AuthService) AuthenticateCaller(ctx context.Context, token string) (uuid.UUID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return uuid.Nil, ErrUnauthenticated
	}

	org, err := s.orgRepo.GetByTokenDigest(ctx, DigestToken(token))
	if err != nil {
		if errors.Is(err, idb.ErrOrganizationNotFound) {
			return uuid.Nil, ErrUnauthenticated
		}
		return uuid.Nil, fmt.Errorf("failed to look up credential: %w", err)
	}
	return org.ID, nil
}

// EnsureOrganization creates the organization named name unless it exists.
// Running it repeatedly is safe.
func (s *AuthService) EnsureOrganization(ctx context.Context, name string) (*organization.Organization, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, fmt.Errorf("organization name is required")
	}
	org, created, err := s.orgRepo.Upsert(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure organization: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"org_id": org.ID, "name": org.Name, "created": created}).Info("Organization ensured")
	return org, created, nil
}

// RotateCredential issues a new bearer token for the organization, replacing
// any previous one. The plaintext token is returned once and never stored.
func (s *AuthService) RotateCredential(ctx context.Context, orgID uuid.UUID) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := hex.EncodeToString(buf)

	if err := s.orgRepo.SetTokenDigest(ctx, orgID, DigestToken(token)); err != nil {
		return "", fmt.Errorf("failed to store credential: %w", err)
	}
	s.logger.WithField("org_id", orgID).Info("Organization credential rotated")
	return token, nil
}
