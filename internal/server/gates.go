package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"phasegate/internal/engine"
)

func registerQualityGates(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "initialize-quality-gates",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/quality-gates/init",
		Summary:       "Create the five quality gates with seeded checklists",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *projectPath) (*output[[]engine.GateView], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		gates, err := e.InitializeQualityGates(ctx, input.ProjectID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(mapGates(gates)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-quality-gates",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/quality-gates",
		Summary:     "List project quality gates in gate order",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *projectPath) (*output[[]engine.GateView], error) {
		gates, err := e.GetProjectQualityGates(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(mapGates(gates)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-quality-gate",
		Method:      http.MethodGet,
		Path:        "/quality-gates/{id}",
		Summary:     "Get quality gate",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*output[engine.GateView], error) {
		g, err := e.GetQualityGate(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(engine.NewGateView(g)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-quality-gate",
		Method:      http.MethodPatch,
		Path:        "/quality-gates/{id}",
		Summary:     "Update gate status, deliverables or notes",
		Description: "Status is operator-set and independent of checklist completion. " +
			"Deliverables replace the whole checklist and may be sent as an object or a JSON string.",
		Errors: mutationErrors,
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body UpdateGateRequest `json:"body"`
	}) (*output[engine.GateView], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		var deliverables []byte
		if raw, ok := rawBodyMap(ctx)["deliverables"]; ok && !isNullRaw(raw) {
			deliverables = raw
		}
		g, err := e.UpdateQualityGate(ctx, engine.GateUpdateOptions{
			ID:           input.ID,
			Status:       input.Body.Status,
			Deliverables: deliverables,
			Notes:        input.Body.Notes,
			ActorID:      actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return respond(engine.NewGateView(g)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-gate-deliverable",
		Method:      http.MethodPut,
		Path:        "/quality-gates/{id}/deliverables/{key}",
		Summary:     "Set one checklist entry",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ID   string                `path:"id"`
		Key  string                `path:"key"`
		Body SetDeliverableRequest `json:"body"`
	}) (*output[engine.GateView], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		g, err := e.SetDeliverable(ctx, input.ID, input.Key, input.Body.Completed, input.Body.Link, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(engine.NewGateView(g)), nil
	})
}
