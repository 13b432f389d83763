package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftmeals/preorder-backend/api/responses"
	"github.com/craftmeals/preorder-backend/api/validators"
	optionsvc "github.com/craftmeals/preorder-backend/internal/deliveryoptions"
	"github.com/craftmeals/preorder-backend/pkg/db/models"
	"github.com/craftmeals/preorder-backend/pkg/enums"
	pkgerrors "github.com/craftmeals/preorder-backend/pkg/errors"
	"github.com/craftmeals/preorder-backend/pkg/logger"
	"github.com/craftmeals/preorder-backend/pkg/types"
)

// AdminListDeliveryOptions serves every delivery option, active or not.
func AdminListDeliveryOptions(svc optionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery options service unavailable"))
			return
		}

		options, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, options)
	}
}

type saveDeliveryOptionRequest struct {
	ID          *uuid.UUID          `json:"id,omitempty"`
	Method      string              `json:"method" validate:"required"`
	Label       types.LocalizedText `json:"label" validate:"required"`
	Description types.LocalizedText `json:"description"`
	Address     *string             `json:"address,omitempty"`
	MapURL      *string             `json:"map_url,omitempty"`
	Fee         string              `json:"fee,omitempty"`
	IsActive    *bool               `json:"is_active,omitempty"`
	SortOrder   int                 `json:"sort_order,omitempty"`
}

func (req saveDeliveryOptionRequest) toModel() (*models.DeliveryOption, error) {
	method, err := enums.ParseDeliveryMethod(strings.TrimSpace(req.Method))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid method")
	}

	fee := decimal.Zero
	if req.Fee != "" {
		fee, err = decimal.NewFromString(req.Fee)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid fee")
		}
	}

	option := &models.DeliveryOption{
		Method:      method,
		Label:       req.Label,
		Description: req.Description,
		Address:     req.Address,
		MapURL:      req.MapURL,
		Fee:         fee,
		IsActive:    true,
		SortOrder:   req.SortOrder,
	}
	if req.ID != nil {
		option.ID = *req.ID
	}
	if req.IsActive != nil {
		option.IsActive = *req.IsActive
	}
	return option, nil
}

// AdminSaveDeliveryOption creates or updates a delivery option.
func AdminSaveDeliveryOption(svc optionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery options service unavailable"))
			return
		}

		var payload saveDeliveryOptionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		option, err := payload.toModel()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		saved, err := svc.Save(r.Context(), option)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, saved)
	}
}

// AdminDeleteDeliveryOption removes an option no schedule slot references.
func AdminDeleteDeliveryOption(svc optionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery options service unavailable"))
			return
		}

		optionID, err := uuid.Parse(chi.URLParam(r, "optionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery option id"))
			return
		}

		if err := svc.Delete(r.Context(), optionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"deleted": optionID.String()})
	}
}
