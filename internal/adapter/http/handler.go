package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/innkeep/internal/app"
	"github.com/neomorfeo/innkeep/internal/domain"
)

// RuleSource serves the cached rule set of an organization.
type RuleSource interface {
	Rules(ctx context.Context, organizationID string) ([]domain.BusinessRule, error)
	Refresh(ctx context.Context, organizationID string) ([]domain.BusinessRule, error)
}

// ApprovalLister lists the approval requests recorded for a reservation.
type ApprovalLister interface {
	ApprovalRequests(ctx context.Context, reservationID string) ([]domain.ApprovalRequest, error)
}

// Deps are the application services exposed over HTTP. Approvals is optional.
type Deps struct {
	Service   *app.ReservationService
	Sweeper   *app.Sweeper
	Rules     RuleSource
	Approvals ApprovalLister
}

// --- Get Reservation ---

type GetReservationInput struct {
	ID string `path:"id" doc:"Reservation ID"`
}

type GetReservationOutput struct {
	Body ReservationResponse
}

// --- Validate / Transition ---

// TransitionBody describes a proposed status change and who proposes it.
type TransitionBody struct {
	Status         string `json:"status" minLength:"1" doc:"Target status" example:"CONFIRMED"`
	Reason         string `json:"reason,omitempty" maxLength:"500" doc:"Free-text reason recorded in the status history"`
	UserID         string `json:"user_id" minLength:"1" doc:"Acting user"`
	Role           string `json:"role" enum:"SUPER_ADMIN,ORG_OWNER,ORG_ADMIN,PROPERTY_MGR,FRONT_DESK,ACCOUNTANT,HOUSEKEEPING,MAINTENANCE" doc:"Role of the acting user; automatic changes come only from sweeps"`
	ExpectedStatus string `json:"expected_status,omitempty" doc:"Reject the change when the stored status differs"`
}

type ValidateInput struct {
	ID   string `path:"id" doc:"Reservation ID"`
	Body TransitionBody
}

type ValidateOutput struct {
	Body ValidationResponse
}

type TransitionInput struct {
	ID   string `path:"id" doc:"Reservation ID"`
	Body TransitionBody
}

type TransitionOutput struct {
	Body struct {
		Reservation ReservationResponse `json:"reservation"`
		Validation  ValidationResponse  `json:"validation"`
	}
}

// --- Integrity ---

type IntegrityInput struct {
	ID string `path:"id" doc:"Reservation ID"`
}

type IntegrityOutput struct {
	Body IntegrityResponse
}

type AutoFixOutput struct {
	Body domain.AutoFixResult
}

// --- Approvals ---

type ListApprovalsOutput struct {
	Body []ApprovalResponse
}

// --- Resolve ---

type ResolveInput struct {
	Body struct {
		Status            string    `json:"status" minLength:"1" doc:"Current stored status"`
		PaymentPercentage float64   `json:"payment_percentage" minimum:"0" maximum:"100" doc:"Paid share of the deposit"`
		CheckIn           time.Time `json:"check_in" doc:"Check-in instant"`
		CheckOut          time.Time `json:"check_out" doc:"Check-out instant"`
		Now               time.Time `json:"now,omitempty" required:"false" doc:"Evaluation instant; defaults to the server clock"`
	}
}

type ResolveOutput struct {
	Body struct {
		Status  string `json:"status" doc:"Inferred status"`
		Changed bool   `json:"changed"`
	}
}

// --- Sweeps ---

type SweepInput struct {
	Body struct {
		OrganizationID string `json:"organization_id,omitempty" doc:"Limit the sweep to one organization"`
		PropertyID     string `json:"property_id,omitempty" doc:"Limit the sweep to one property"`
		DryRun         bool   `json:"dry_run,omitempty" doc:"Validate planned changes without applying them"`
	} `required:"false"`
}

type SweepOutput struct {
	Body SweepResponse
}

// --- Rules ---

type ListRulesInput struct {
	ID      string `path:"id" doc:"Organization ID"`
	Refresh bool   `query:"refresh" required:"false" doc:"Reload the rule set instead of serving the cached one"`
}

type ListRulesOutput struct {
	Body []RuleResponse
}

// Register adds all reservation engine routes to the Huma API.
func Register(api huma.API, deps Deps) {
	svc := deps.Service

	huma.Register(api, huma.Operation{
		OperationID: "get-reservation",
		Method:      http.MethodGet,
		Path:        "/api/v1/reservations/{id}",
		Summary:     "Get a reservation by ID",
		Tags:        []string{"Reservations"},
	}, func(ctx context.Context, input *GetReservationInput) (*GetReservationOutput, error) {
		res, err := svc.GetByID(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetReservationOutput{Body: toReservationResponse(res, svc.Now())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "validate-transition",
		Method:      http.MethodPost,
		Path:        "/api/v1/reservations/{id}/validate",
		Summary:     "Validate a status change without applying it",
		Tags:        []string{"Reservations"},
	}, func(ctx context.Context, input *ValidateInput) (*ValidateOutput, error) {
		req, err := toTransitionRequest(input.ID, input.Body)
		if err != nil {
			return nil, err
		}
		result, err := svc.Validate(ctx, req)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ValidateOutput{Body: toValidationResponse(result)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-reservation",
		Method:      http.MethodPost,
		Path:        "/api/v1/reservations/{id}/transitions",
		Summary:     "Validate and apply a status change",
		Description: "Returns 422 when the change is rejected and 409 when it was routed for manager approval.",
		Tags:        []string{"Reservations"},
	}, func(ctx context.Context, input *TransitionInput) (*TransitionOutput, error) {
		req, err := toTransitionRequest(input.ID, input.Body)
		if err != nil {
			return nil, err
		}
		res, result, err := svc.Transition(ctx, req)
		if err != nil {
			return nil, toHumaError(err)
		}
		out := &TransitionOutput{}
		out.Body.Reservation = toReservationResponse(res, svc.Now())
		out.Body.Validation = toValidationResponse(result)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "check-integrity",
		Method:      http.MethodPost,
		Path:        "/api/v1/reservations/{id}/integrity",
		Summary:     "Run consistency checks on a reservation",
		Tags:        []string{"Integrity"},
	}, func(ctx context.Context, input *IntegrityInput) (*IntegrityOutput, error) {
		result, err := svc.CheckIntegrity(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &IntegrityOutput{Body: toIntegrityResponse(result)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "auto-fix",
		Method:      http.MethodPost,
		Path:        "/api/v1/reservations/{id}/auto-fix",
		Summary:     "Apply safe fixes for detected consistency issues",
		Tags:        []string{"Integrity"},
	}, func(ctx context.Context, input *IntegrityInput) (*AutoFixOutput, error) {
		result, err := svc.AutoFix(ctx, input.ID, nil)
		if err != nil {
			return nil, toHumaError(err)
		}
		if result.Errors == nil {
			result.Errors = []string{}
		}
		return &AutoFixOutput{Body: result}, nil
	})

	if deps.Approvals != nil {
		huma.Register(api, huma.Operation{
			OperationID: "list-approvals",
			Method:      http.MethodGet,
			Path:        "/api/v1/reservations/{id}/approvals",
			Summary:     "List approval requests of a reservation",
			Tags:        []string{"Reservations"},
		}, func(ctx context.Context, input *GetReservationInput) (*ListApprovalsOutput, error) {
			if _, err := svc.GetByID(ctx, input.ID); err != nil {
				return nil, toHumaError(err)
			}
			requests, err := deps.Approvals.ApprovalRequests(ctx, input.ID)
			if err != nil {
				return nil, toHumaError(err)
			}
			resp := make([]ApprovalResponse, len(requests))
			for i, r := range requests {
				resp[i] = toApprovalResponse(r)
			}
			return &ListApprovalsOutput{Body: resp}, nil
		})
	}

	huma.Register(api, huma.Operation{
		OperationID: "resolve-status",
		Method:      http.MethodPost,
		Path:        "/api/v1/status/resolve",
		Summary:     "Infer the status a reservation should have",
		Tags:        []string{"Status"},
	}, func(_ context.Context, input *ResolveInput) (*ResolveOutput, error) {
		current, err := domain.ParseStatus(input.Body.Status)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		now := input.Body.Now
		if now.IsZero() {
			now = svc.Now()
		}
		resolved := domain.ResolveStatus(current, input.Body.PaymentPercentage, input.Body.CheckIn, input.Body.CheckOut, now)

		out := &ResolveOutput{}
		out.Body.Status = string(resolved)
		out.Body.Changed = resolved != current
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "run-sweep",
		Method:      http.MethodPost,
		Path:        "/api/v1/sweeps",
		Summary:     "Run the reservation cleanup sweep",
		Tags:        []string{"Status"},
	}, func(ctx context.Context, input *SweepInput) (*SweepOutput, error) {
		report, err := deps.Sweeper.Run(ctx, app.SweepOptions{
			OrganizationID: input.Body.OrganizationID,
			PropertyID:     input.Body.PropertyID,
			DryRun:         input.Body.DryRun,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SweepOutput{Body: toSweepResponse(report)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-rules",
		Method:      http.MethodGet,
		Path:        "/api/v1/organizations/{id}/rules",
		Summary:     "List the active business rules of an organization",
		Tags:        []string{"Rules"},
	}, func(ctx context.Context, input *ListRulesInput) (*ListRulesOutput, error) {
		load := deps.Rules.Rules
		if input.Refresh {
			load = deps.Rules.Refresh
		}
		set, err := load(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]RuleResponse, 0, len(set))
		for _, r := range set {
			if r.Active {
				resp = append(resp, toRuleResponse(r))
			}
		}
		return &ListRulesOutput{Body: resp}, nil
	})
}

func toTransitionRequest(id string, body TransitionBody) (app.TransitionRequest, error) {
	status, err := domain.ParseStatus(body.Status)
	if err != nil {
		return app.TransitionRequest{}, huma.Error422UnprocessableEntity(err.Error())
	}
	req := app.TransitionRequest{
		ReservationID: id,
		NewStatus:     status,
		Reason:        body.Reason,
		UserID:        body.UserID,
		UserRole:      domain.Role(body.Role),
	}
	if body.ExpectedStatus != "" {
		expected, err := domain.ParseStatus(body.ExpectedStatus)
		if err != nil {
			return app.TransitionRequest{}, huma.Error422UnprocessableEntity(err.Error())
		}
		req.ExpectedStatus = expected
	}
	return req, nil
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	switch {
	case errors.Is(err, domain.ErrReservationNotFound):
		return huma.Error404NotFound("reservation not found")
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrPropertyNotFound):
		return huma.Error404NotFound(err.Error())
	}

	var rejected *domain.TransitionRejectedError
	if errors.As(err, &rejected) {
		details := make([]error, len(rejected.Result.Errors))
		for i, msg := range rejected.Result.Errors {
			details[i] = &huma.ErrorDetail{Message: msg, Location: "body.status"}
		}
		return huma.Error422UnprocessableEntity("transition rejected", details...)
	}

	var approval *domain.ApprovalRequiredError
	if errors.As(err, &approval) {
		return huma.Error409Conflict(approval.Error())
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error422UnprocessableEntity(trErr.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
