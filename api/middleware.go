package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/fthliqml/badminton-booking-system-api/booking"
)

// PrincipalHeader carries the acting principal id on mutating calls.
const PrincipalHeader = "X-Principal-ID"

type ctxKey int

const principalKey ctxKey = iota

// requestLogger logs one line per request, tagged with chi's request id.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.Info("http request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// requirePrincipal resolves X-Principal-ID to an active principal and stores
// its id on the request context. Missing, malformed or unknown ids are 401.
func (h *Handler) requirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(PrincipalHeader))
		id, err := strconv.ParseInt(raw, 10, 64)
		if raw == "" || err != nil {
			h.writeError(w, r, booking.ErrInvalidPrincipal)
			return
		}
		p, err := h.engine.Principals.Verify(r.Context(), booking.PrincipalID(id))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, p.ID)))
	})
}

func principalFrom(ctx context.Context) booking.PrincipalID {
	id, _ := ctx.Value(principalKey).(booking.PrincipalID)
	return id
}
