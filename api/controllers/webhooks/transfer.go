package webhooks

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/craftmeals/preorder-backend/api/validators"
	"github.com/craftmeals/preorder-backend/internal/payments"
	"github.com/craftmeals/preorder-backend/pkg/config"
	pkgerrors "github.com/craftmeals/preorder-backend/pkg/errors"
	"github.com/craftmeals/preorder-backend/pkg/logger"
)

// transferResponse is the flat shape the mailbox watcher expects. The
// watcher predates the envelope used elsewhere, so this endpoint keeps its
// original contract.
type transferResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	OrderID   string `json:"order_id,omitempty"`
	NewStatus string `json:"new_status,omitempty"`
}

type transferError struct {
	Error string `json:"error"`
}

// VerifyTransfer reconciles a forwarded e-transfer notification email
// against a pending order.
func VerifyTransfer(svc payments.Service, cfg config.ETransferConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if !authorized(r, cfg.VerifyToken) {
			writeTransferError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}

		if svc == nil {
			writeTransferError(w, http.StatusInternalServerError, "verification service unavailable")
			return
		}

		var payload payments.Notification
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			writeTransferError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := svc.Verify(ctx, payload)
		if err != nil {
			status := http.StatusInternalServerError
			message := "verification failed"
			if typed := pkgerrors.As(err); typed != nil {
				status = pkgerrors.MetadataFor(typed.Code()).HTTPStatus
				message = typed.Message()
			}
			if logg != nil {
				logg.Error(ctx, "transfer verification failed", err)
			}
			writeTransferError(w, status, message)
			return
		}

		resp := transferResponse{Success: true, Message: result.Message}
		if result.OrderID != uuid.Nil {
			resp.OrderID = result.OrderID.String()
			resp.NewStatus = result.NewStatus.String()
		}
		writeTransferJSON(w, http.StatusOK, resp)
	}
}

// authorized compares the bearer token in constant time.
func authorized(r *http.Request, secret string) bool {
	if secret == "" {
		return false
	}
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	token := raw
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

func writeTransferError(w http.ResponseWriter, status int, message string) {
	writeTransferJSON(w, status, transferError{Error: message})
}

func writeTransferJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode webhook response","err":"%v"}`, err)
	}
}
