package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/craftmeals/preorder-backend/api/responses"
	"github.com/craftmeals/preorder-backend/api/validators"
	"github.com/craftmeals/preorder-backend/internal/inventory"
	schedulesvc "github.com/craftmeals/preorder-backend/internal/schedules"
	pkgerrors "github.com/craftmeals/preorder-backend/pkg/errors"
	"github.com/craftmeals/preorder-backend/pkg/logger"
)

// AdminListSchedules serves all production schedules with their lines and
// slots preloaded.
func AdminListSchedules(svc schedulesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "schedules service unavailable"))
			return
		}

		schedules, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, schedules)
	}
}

// AdminGetSchedule serves one schedule by id.
func AdminGetSchedule(svc schedulesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "schedules service unavailable"))
			return
		}

		scheduleID, err := uuid.Parse(chi.URLParam(r, "scheduleId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid schedule id"))
			return
		}

		schedule, err := svc.Get(r.Context(), scheduleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, schedule)
	}
}

// AdminSaveSchedule creates or replaces a schedule definition in one
// transaction. The stored lines and slots are diffed against the payload.
func AdminSaveSchedule(svc schedulesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "schedules service unavailable"))
			return
		}

		var payload schedulesvc.SaveInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		schedule, err := svc.Save(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, schedule)
	}
}

// AdminDeleteSchedule removes a schedule that has no orders against it.
func AdminDeleteSchedule(svc schedulesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "schedules service unavailable"))
			return
		}

		scheduleID, err := uuid.Parse(chi.URLParam(r, "scheduleId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid schedule id"))
			return
		}

		if err := svc.Delete(r.Context(), scheduleID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"deleted": scheduleID.String()})
	}
}

// AdminDeleteScheduleSlot removes one fulfillment slot that has no orders.
func AdminDeleteScheduleSlot(svc schedulesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "schedules service unavailable"))
			return
		}

		slotID, err := uuid.Parse(chi.URLParam(r, "slotId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid slot id"))
			return
		}

		if err := svc.DeleteSlot(r.Context(), slotID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"deleted": slotID.String()})
	}
}

// AdminScheduleInventory reports produced, consumed, and remaining stock
// for one schedule.
func AdminScheduleInventory(calc inventory.Calculator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if calc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory calculator unavailable"))
			return
		}

		scheduleID, err := uuid.Parse(chi.URLParam(r, "scheduleId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid schedule id"))
			return
		}

		remaining, err := calc.RemainingForSchedule(r.Context(), scheduleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, inventoryRows(remaining))
	}
}

// AdminInventoryOverview reports remaining stock across every published
// schedule with a future slot.
func AdminInventoryOverview(calc inventory.Calculator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if calc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory calculator unavailable"))
			return
		}

		remaining, err := calc.RemainingAcrossPublishedFuture(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, inventoryRows(remaining))
	}
}

func inventoryRows(remaining map[uuid.UUID]inventory.Remaining) []inventory.Remaining {
	rows := make([]inventory.Remaining, 0, len(remaining))
	for _, entry := range remaining {
		rows = append(rows, entry)
	}
	return rows
}
