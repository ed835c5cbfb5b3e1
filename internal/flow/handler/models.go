package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"ticketflow/internal/flow/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("flow_kind", func(fl validator.FieldLevel) bool {
		return models.FlowKind(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("action", func(fl validator.FieldLevel) bool {
		return models.Action(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("overlay", func(fl validator.FieldLevel) bool {
		return models.Overlay(fl.Field().String()).IsValid()
	})
	return v
}

// violation returns the message for the first failed rule, keyed by
// "Field.tag", or "" when req is valid.
func violation(req any, messages map[string]string) string {
	err := validate.Struct(req)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg, ok := messages[verrs[0].Field()+"."+verrs[0].Tag()]; ok {
			return msg
		}
	}
	return "invalid request"
}

// CreateFlowResponse is returned when a new flow starts.
type CreateFlowResponse struct {
	FlowID uuid.UUID   `json:"flow_id"`
	Token  string      `json:"token"`
	View   models.View `json:"view"`
}

// EditFieldsRequest carries display-layer field edits for one journey.
type EditFieldsRequest struct {
	Flow   models.FlowKind `json:"flow" validate:"flow_kind"`
	Fields map[string]any  `json:"fields" validate:"required,min=1"`
}

func (r *EditFieldsRequest) Validate() string {
	return violation(r, map[string]string{
		"Flow.flow_kind":  "flow must be student or guest",
		"Fields.required": "fields are required",
		"Fields.min":      "fields are required",
	})
}

// ActionRequest is a button press.
type ActionRequest struct {
	Action models.Action `json:"action" validate:"required,action"`
}

func (r *ActionRequest) Validate() string {
	return violation(r, map[string]string{
		"Action.required": "action is required",
		"Action.action":   "unknown action",
	})
}

type OverlayRequest struct {
	Overlay models.Overlay `json:"overlay" validate:"overlay"`
}

func (r *OverlayRequest) Validate() string {
	return violation(r, map[string]string{
		"Overlay.overlay": "unknown overlay",
	})
}
