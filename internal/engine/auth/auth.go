// Package auth resolves SSO identities to local user accounts.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"phasegate/internal/domain"
	"phasegate/internal/events"
	"phasegate/internal/repo"
)

// Identity is what the SSO provider asserts about the caller.
type Identity struct {
	ExternalID string
	Provider   string
	Email      string
	Name       string
}

type Outcome string

const (
	OutcomeMatched Outcome = "matched"
	OutcomeLinked  Outcome = "linked"
	OutcomeCreated Outcome = "created"
)

var ErrIncompleteIdentity = errors.New("external_id, provider and email are required")

// Service links SSO identities to users, backed by SQL.
type Service struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Now    func() time.Time
}

func NewService(db *sql.DB) Service {
	return Service{DB: db, Repo: repo.Repo{DB: db}, Events: events.Writer{DB: db}, Now: time.Now}
}

func (s Service) stamp() string {
	if s.Now == nil {
		return time.Now().UTC().Format(time.RFC3339)
	}
	return s.Now().UTC().Format(time.RFC3339)
}

// ResolveSSOUser finds the account for id: first by (external id, provider),
// then by email (linking the external id onto that account), else it
// creates a new account.
func (s Service) ResolveSSOUser(ctx context.Context, id Identity) (domain.User, Outcome, error) {
	id.Email = strings.TrimSpace(strings.ToLower(id.Email))
	if id.ExternalID == "" || id.Provider == "" || id.Email == "" {
		return domain.User{}, "", ErrIncompleteIdentity
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, "", err
	}
	defer tx.Rollback()

	u, err := s.Repo.GetUserByExternalID(ctx, tx, id.ExternalID, id.Provider)
	if err == nil {
		return u, OutcomeMatched, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, "", err
	}

	now := s.stamp()
	u, err = s.Repo.GetUserByEmail(ctx, tx, id.Email)
	switch {
	case err == nil:
		if err := s.Repo.LinkExternalID(ctx, tx, u.ID, id.ExternalID, id.Provider, now); err != nil {
			return domain.User{}, "", err
		}
		u.ExternalID, u.Provider, u.UpdatedAt = &id.ExternalID, &id.Provider, now
		if err := s.Events.Append(ctx, tx, events.UserLinked, "", "user", u.ID, u.ID, events.EventPayload{"provider": id.Provider}); err != nil {
			return domain.User{}, "", err
		}
		if err := tx.Commit(); err != nil {
			return domain.User{}, "", err
		}
		return u, OutcomeLinked, nil
	case !errors.Is(err, repo.ErrNotFound):
		return domain.User{}, "", err
	}

	u = domain.User{
		ID:         uuid.NewString(),
		Email:      id.Email,
		Name:       id.Name,
		ExternalID: &id.ExternalID,
		Provider:   &id.Provider,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Repo.InsertUser(ctx, tx, u); err != nil {
		return domain.User{}, "", err
	}
	if err := s.Events.Append(ctx, tx, events.UserCreated, "", "user", u.ID, u.ID, events.EventPayload{"provider": id.Provider}); err != nil {
		return domain.User{}, "", err
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, "", err
	}
	return u, OutcomeCreated, nil
}

// EnsureUser returns the account for email, creating a local one if needed.
func (s Service) EnsureUser(ctx context.Context, email, name string) (domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return domain.User{}, errors.New("email required")
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()
	u, err := s.Repo.GetUserByEmail(ctx, tx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, err
	}
	now := s.stamp()
	u = domain.User{ID: uuid.NewString(), Email: email, Name: name, CreatedAt: now, UpdatedAt: now}
	if err := s.Repo.InsertUser(ctx, tx, u); err != nil {
		return domain.User{}, err
	}
	if err := s.Events.Append(ctx, tx, events.UserCreated, "", "user", u.ID, u.ID, events.EventPayload{"provider": "local"}); err != nil {
		return domain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	return u, nil
}
