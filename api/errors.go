package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/fthliqml/badminton-booking-system-api/booking"
)

// statusByKind is the single Kind -> HTTP status table. Malformed requests
// are 400; well-formed requests the rules reject are 422.
var statusByKind = map[booking.Kind]int{
	booking.KindNotFound:            http.StatusNotFound,
	booking.KindInvalidInput:        http.StatusBadRequest,
	booking.KindInvalidRange:        http.StatusBadRequest,
	booking.KindInvalidCustomer:     http.StatusUnprocessableEntity,
	booking.KindPastDateRejected:    http.StatusUnprocessableEntity,
	booking.KindResourceUnavailable: http.StatusUnprocessableEntity,
	booking.KindWindowUnavailable:   http.StatusUnprocessableEntity,
	booking.KindOverlapConflict:     http.StatusConflict,
	booking.KindConflictInUse:       http.StatusConflict,
	booking.KindDuplicateName:       http.StatusConflict,
	booking.KindSlotTaken:           http.StatusConflict,
	booking.KindTerminalState:       http.StatusConflict,
	booking.KindInvalidPrincipal:    http.StatusUnauthorized,
	booking.KindStorageUnavailable:  http.StatusServiceUnavailable,
	booking.KindInternal:            http.StatusInternalServerError,
}

// StatusFor maps err to its HTTP status.
func StatusFor(err error) int {
	if status, ok := statusByKind[booking.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError renders err as {"error", "kind"}. Internal details of 5xx
// errors are logged, not returned.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := booking.KindOf(err)
	status := StatusFor(err)
	if h.metrics != nil {
		h.metrics.Rejected(err)
	}

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		if kind == booking.KindInternal {
			msg = http.StatusText(status)
		}
	}
	writeJSON(w, status, ErrorResponse{Error: msg, Kind: kind})
}

// badRequest wraps a parse failure as invalid input.
func badRequest(msg string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", booking.ErrInvalidInput, msg)
	}
	return fmt.Errorf("%w: %s: %v", booking.ErrInvalidInput, msg, err)
}
