package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"

	"phasegate/internal/domain"
	"phasegate/internal/repo"
)

const apiKeyPrefix = "pg_"

// CreateAPIKey mints a key for the user. The plaintext is returned once;
// only its hash is stored.
func (s Service) CreateAPIKey(ctx context.Context, userID, name string) (domain.APIKey, string, error) {
	if _, err := s.Repo.GetUser(ctx, nil, userID); err != nil {
		return domain.APIKey{}, "", err
	}
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return domain.APIKey{}, "", err
	}
	plain := apiKeyPrefix + hex.EncodeToString(buf)
	key := domain.APIKey{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		KeyHash:   repo.HashAPIKey(plain),
		CreatedAt: s.stamp(),
	}
	if err := s.Repo.InsertAPIKey(ctx, nil, key); err != nil {
		return domain.APIKey{}, "", err
	}
	return key, plain, nil
}

// AuthenticateAPIKey resolves a plaintext key to its owner.
func (s Service) AuthenticateAPIKey(ctx context.Context, plain string) (domain.User, error) {
	key, err := s.Repo.GetAPIKeyByHash(ctx, repo.HashAPIKey(plain))
	if err != nil {
		return domain.User{}, err
	}
	return s.Repo.GetUser(ctx, nil, key.UserID)
}
