package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"phasegate/internal/domain"
	"phasegate/internal/engine"
	"phasegate/internal/engine/auth"
	"phasegate/internal/repo"
)

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/events",
		Summary:     "List recent project events, newest first",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID  string `path:"project_id"`
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind" enum:"project,phase,task,quality_gate"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50"`
		Cursor     string `query:"cursor"`
	}) (*output[paginatedEvents], error) {
		if _, err := e.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		limit := normalizeLimit(input.Limit)
		var before int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			before = parsed
		}
		items, err := e.Repo.LatestEvents(ctx, repo.EventFilters{
			ProjectID:  input.ProjectID,
			Type:       input.Type,
			EntityKind: input.EntityKind,
			EntityID:   input.EntityID,
			Before:     before,
			Limit:      limit + 1,
		})
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedEvents{Items: []EventResponse{}}
		if len(items) > limit {
			items = items[:limit]
			resp.NextCursor = fmt.Sprintf("%d", items[limit-1].ID)
		}
		for _, evt := range items {
			resp.Items = append(resp.Items, eventResponse(evt))
		}
		return respond(resp), nil
	})
}

func eventResponse(evt domain.Event) EventResponse {
	payload := map[string]any{}
	if evt.Payload != "" {
		_ = json.Unmarshal([]byte(evt.Payload), &payload)
	}
	return EventResponse{
		ID:         evt.ID,
		TS:         evt.TS,
		Type:       evt.Type,
		ProjectID:  evt.ProjectID,
		EntityKind: evt.EntityKind,
		EntityID:   evt.EntityID,
		ActorID:    evt.ActorID,
		Payload:    payload,
	}
}

func registerMe(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current principal",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*output[MeResponse], error) {
		p, ok := principalFromContext(ctx)
		if !ok {
			return nil, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		}
		return respond(MeResponse{UserID: p.UserID, Email: p.Email, Source: p.Source}), nil
	})
}

func registerAuth(api huma.API, svc auth.Service, cfg AuthConfig) {
	now := func() time.Time {
		if svc.Now != nil {
			return svc.Now()
		}
		return time.Now()
	}
	issue := func(u domain.User, outcome string) (*output[TokenResponse], error) {
		token, exp, err := auth.IssueToken(cfg.Token, u.ID, u.Email, now())
		if err != nil {
			return nil, handleError(err)
		}
		return respond(TokenResponse{Token: token, ExpiresAt: exp.Format(time.RFC3339), User: u, Outcome: outcome}), nil
	}

	if cfg.DevLogin {
		huma.Register(api, huma.Operation{
			OperationID: "dev-login",
			Method:      http.MethodPost,
			Path:        "/auth/dev/login",
			Summary:     "DEV ONLY: mint a JWT for a local user",
			Errors:      []int{http.StatusBadRequest, http.StatusServiceUnavailable},
		}, func(ctx context.Context, input *struct {
			Body DevLoginRequest `json:"body"`
		}) (*output[TokenResponse], error) {
			if strings.TrimSpace(input.Body.Email) == "" {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "email is required", nil)
			}
			u, err := svc.EnsureUser(ctx, input.Body.Email, input.Body.Name)
			if err != nil {
				return nil, handleError(err)
			}
			return issue(u, "")
		})
	}

	huma.Register(api, huma.Operation{
		OperationID: "sso-callback",
		Method:      http.MethodPost,
		Path:        "/auth/sso/callback",
		Summary:     "Exchange an identity asserted by the SSO bridge for a token",
		Description: "The bridge authenticates with X-SSO-Secret. Users are matched by external id, then by email, else created.",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		Secret string             `header:"X-SSO-Secret"`
		Body   SSOCallbackRequest `json:"body"`
	}) (*output[TokenResponse], error) {
		if cfg.SSOSharedSecret == "" {
			return nil, newAPIError(http.StatusServiceUnavailable, "sso_disabled", "sso is not configured", nil)
		}
		if subtle.ConstantTimeCompare([]byte(input.Secret), []byte(cfg.SSOSharedSecret)) != 1 {
			return nil, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil)
		}
		u, outcome, err := svc.ResolveSSOUser(ctx, auth.Identity{
			ExternalID: input.Body.ExternalID,
			Provider:   input.Body.Provider,
			Email:      input.Body.Email,
			Name:       input.Body.Name,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return issue(u, string(outcome))
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          "/me/api-keys",
		Summary:       "Create an API key for the current user",
		Description:   "The plaintext key is only returned here.",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateAPIKeyRequest `json:"body" required:"false"`
	}) (*output[APIKeyResponse], error) {
		userID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		key, plain, err := svc.CreateAPIKey(ctx, userID, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(apiKeyResponse(key, plain)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-api-keys",
		Method:      http.MethodGet,
		Path:        "/me/api-keys",
		Summary:     "List the current user's API keys",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*output[[]APIKeyResponse], error) {
		userID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		keys, err := svc.Repo.ListAPIKeys(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]APIKeyResponse, 0, len(keys))
		for _, k := range keys {
			out = append(out, apiKeyResponse(k, ""))
		}
		return respond(out), nil
	})
}
