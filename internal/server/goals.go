package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"phasegate/internal/domain"
	"phasegate/internal/engine"
)

func registerGoals(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-goal",
		Method:        http.MethodPost,
		Path:          "/goals",
		Summary:       "Create strategic goal",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateGoalRequest `json:"body"`
	}) (*output[domain.StrategicGoal], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		g, err := e.CreateGoal(ctx, input.Body.Title, input.Body.Description, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(g), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-goals",
		Method:      http.MethodGet,
		Path:        "/goals",
		Summary:     "List strategic goals",
	}, func(ctx context.Context, _ *struct{}) (*output[[]domain.StrategicGoal], error) {
		items, err := e.ListGoals(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(nonNilSlice(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-goal",
		Method:      http.MethodGet,
		Path:        "/goals/{id}",
		Summary:     "Get strategic goal",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*output[domain.StrategicGoal], error) {
		g, err := e.GetGoal(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(g), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-goal",
		Method:        http.MethodDelete,
		Path:          "/goals/{id}",
		Summary:       "Delete goal with its objectives and key results",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteGoal(ctx, input.ID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-objective",
		Method:        http.MethodPost,
		Path:          "/goals/{id}/objectives",
		Summary:       "Create objective under a goal",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		ID   string                 `path:"id"`
		Body CreateObjectiveRequest `json:"body"`
	}) (*output[domain.Objective], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		o, err := e.CreateObjective(ctx, input.ID, input.Body.Title, input.Body.Description, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(o), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-objectives",
		Method:      http.MethodGet,
		Path:        "/goals/{id}/objectives",
		Summary:     "List objectives of a goal",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*output[[]domain.Objective], error) {
		items, err := e.ListObjectives(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(nonNilSlice(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-objective",
		Method:      http.MethodGet,
		Path:        "/objectives/{id}",
		Summary:     "Get objective with key results and rolled-up progress",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*output[engine.ObjectiveView], error) {
		v, err := e.GetObjective(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		v.KeyResults = nonNilSlice(v.KeyResults)
		v.Projects = nonNilSlice(v.Projects)
		return respond(v), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-objective",
		Method:      http.MethodPatch,
		Path:        "/objectives/{id}",
		Summary:     "Update objective",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ID   string                 `path:"id"`
		Body UpdateObjectiveRequest `json:"body"`
	}) (*output[domain.Objective], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		o, err := e.UpdateObjective(ctx, input.ID, input.Body.Title, input.Body.Description, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(o), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-objective",
		Method:        http.MethodDelete,
		Path:          "/objectives/{id}",
		Summary:       "Delete objective and its key results",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteObjective(ctx, input.ID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-key-result",
		Method:        http.MethodPost,
		Path:          "/objectives/{id}/key-results",
		Summary:       "Create key result",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		ID   string                 `path:"id"`
		Body CreateKeyResultRequest `json:"body"`
	}) (*output[engine.KeyResultView], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		kr, err := e.CreateKeyResult(ctx, engine.KeyResultCreateOptions{
			ObjectiveID:  input.ID,
			Title:        input.Body.Title,
			MetricType:   input.Body.MetricType,
			Unit:         input.Body.Unit,
			StartValue:   input.Body.StartValue,
			TargetValue:  input.Body.TargetValue,
			CurrentValue: input.Body.CurrentValue,
			ActorID:      actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return respond(engine.NewKeyResultView(kr)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-key-results",
		Method:      http.MethodGet,
		Path:        "/objectives/{id}/key-results",
		Summary:     "List key results with progress",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*output[[]engine.KeyResultView], error) {
		items, err := e.ListKeyResults(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(nonNilSlice(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-key-result",
		Method:      http.MethodGet,
		Path:        "/key-results/{id}",
		Summary:     "Get key result",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*output[engine.KeyResultView], error) {
		kr, err := e.GetKeyResult(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(kr), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-key-result",
		Method:      http.MethodPatch,
		Path:        "/key-results/{id}",
		Summary:     "Update key result",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ID   string                 `path:"id"`
		Body UpdateKeyResultRequest `json:"body"`
	}) (*output[engine.KeyResultView], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		kr, err := e.UpdateKeyResult(ctx, engine.KeyResultUpdateOptions{
			ID:           input.ID,
			Title:        input.Body.Title,
			MetricType:   input.Body.MetricType,
			Unit:         input.Body.Unit,
			StartValue:   input.Body.StartValue,
			TargetValue:  input.Body.TargetValue,
			CurrentValue: input.Body.CurrentValue,
			ActorID:      actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return respond(engine.NewKeyResultView(kr)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-key-result",
		Method:        http.MethodDelete,
		Path:          "/key-results/{id}",
		Summary:       "Delete key result",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteKeyResult(ctx, input.ID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
