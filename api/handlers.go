/*
handlers.go - HTTP API handlers for the court booking engine

PURPOSE:
  Exposes the booking engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the booking and reporting packages.

ENDPOINTS:
  Principals:
    POST   /api/auth/login                    Check credentials
    POST   /api/principals                    Register a principal
    GET    /api/principals/{id}               Get a principal

  Resources:
    GET    /api/resources                     List courts
    POST   /api/resources                     Create court
    GET    /api/resources/{id}                Get court
    PUT    /api/resources/{id}                Partial update
    DELETE /api/resources/{id}                Delete court
    GET    /api/resources/{id}/availability   Windows and whether each is free

  Windows:
    GET    /api/windows                       List windows (?active=true)
    POST   /api/windows                       Create window
    GET    /api/windows/{id}                  Get window
    PUT    /api/windows/{id}                  Partial update
    DELETE /api/windows/{id}                  Delete window

  Reservations:
    GET    /api/reservations                  History (filters + paging)
    POST   /api/reservations                  Book a slot
    GET    /api/reservations/{id}             Get reservation
    GET    /api/reservations/by-reference/{ref}
    PATCH  /api/reservations/{id}/status      Payment and booking status
    PATCH  /api/reservations/{id}/details     Customer details and notes
    POST   /api/reservations/{id}/cancel      Cancel (idempotent)

  Reports:
    GET    /api/reports/daily?date=
    GET    /api/reports/revenue?year=
    GET    /api/reports/utilization?from=&to=
    GET    /api/reports/dashboard?date=

REQUEST FLOW:
  1. Parse HTTP request
  2. Convert DTO to engine input
  3. Call the engine
  4. Serialize response
  5. Map errors through StatusFor

SEE ALSO:
  - dto.go: Request/response data structures
  - errors.go: Kind -> HTTP status mapping
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fthliqml/badminton-booking-system-api/booking"
	"github.com/fthliqml/badminton-booking-system-api/metrics"
	"github.com/fthliqml/badminton-booking-system-api/reporting"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Check is a named readiness probe.
type Check func(ctx context.Context) error

// Options configures a Handler.
type Options struct {
	Reports        *reporting.Service
	Metrics        *metrics.Metrics // nil disables metrics routes and middleware
	MetricsPath    string
	Logger         *zap.Logger
	AllowedOrigins []string
	Checks         map[string]Check
	AllowSeed      bool
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	engine  *booking.Engine
	reports *reporting.Service
	metrics *metrics.Metrics
	log     *zap.Logger

	metricsPath    string
	allowedOrigins []string
	checks         map[string]Check
	allowSeed      bool
}

// NewHandler creates a handler over engine.
func NewHandler(engine *booking.Engine, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Reports == nil {
		opts.Reports = reporting.New(engine.Store(), reporting.Options{Clock: engine.Clock(), Logger: opts.Logger})
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	return &Handler{
		engine:         engine,
		reports:        opts.Reports,
		metrics:        opts.Metrics,
		log:            opts.Logger.Named("api"),
		metricsPath:    opts.MetricsPath,
		allowedOrigins: opts.AllowedOrigins,
		checks:         opts.Checks,
		allowSeed:      opts.AllowSeed,
	}
}

// =============================================================================
// HEALTH
// =============================================================================

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready runs every registered check with a short deadline.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	writeJSON(w, status, map[string]any{"ready": status == http.StatusOK, "checks": results})
}

// =============================================================================
// PRINCIPAL HANDLERS
// =============================================================================

// Login checks credentials and returns the principal whose id the client
// sends as X-Principal-ID.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.engine.Principals.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPrincipalDTO(*p))
}

func (h *Handler) RegisterPrincipal(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.engine.Principals.Register(r.Context(), req.Username, req.DisplayName, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPrincipalDTO(*p))
}

func (h *Handler) GetPrincipal(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	p, err := h.engine.Principals.Get(r.Context(), booking.PrincipalID(id))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPrincipalDTO(*p))
}

// =============================================================================
// RESOURCE HANDLERS
// =============================================================================

func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.engine.Resources.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]ResourceDTO, len(resources))
	for i, res := range resources {
		dtos[i] = toResourceDTO(res)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetResource(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	res, err := h.engine.Resources.Get(r.Context(), booking.ResourceID(id))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResourceDTO(*res))
}

func (h *Handler) CreateResource(w http.ResponseWriter, r *http.Request) {
	var req CreateResourceRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.engine.Resources.Create(r.Context(), booking.NewResource{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Status:      booking.ResourceStatus(req.Status),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResourceDTO(*res))
}

func (h *Handler) UpdateResource(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var req UpdateResourceRequest
	if !h.decode(w, r, &req) {
		return
	}
	upd := booking.ResourceUpdate{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
	}
	if req.Status != nil {
		s := booking.ResourceStatus(*req.Status)
		upd.Status = &s
	}
	res, err := h.engine.Resources.Update(r.Context(), booking.ResourceID(id), upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResourceDTO(*res))
}

func (h *Handler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.engine.Resources.Delete(r.Context(), booking.ResourceID(id)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetResourceAvailability lists active windows for the court on ?date=.
func (h *Handler) GetResourceAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	date, ok := h.dateQuery(w, r, "date", true)
	if !ok {
		return
	}
	ctx := r.Context()
	res, err := h.engine.Resources.Get(ctx, booking.ResourceID(id))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	slots, err := h.engine.Availability.ListAvailable(ctx, res.ID, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	free, err := h.engine.Availability.CountAvailable(ctx, res.ID, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dto := toResourceDTO(*res)
	writeJSON(w, http.StatusOK, AvailabilityDTO{
		Resource:  &dto,
		Date:      date,
		Available: free,
		Slots:     toSlotDTOs(slots),
	})
}

// GetAvailabilityGrid returns availability for every active court on ?date=.
func (h *Handler) GetAvailabilityGrid(w http.ResponseWriter, r *http.Request) {
	date, ok := h.dateQuery(w, r, "date", true)
	if !ok {
		return
	}
	grid, err := h.engine.Availability.Grid(r.Context(), date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]AvailabilityDTO, len(grid))
	for i, ra := range grid {
		dto := toResourceDTO(ra.Resource)
		out[i] = AvailabilityDTO{Resource: &dto, Date: ra.Date, Available: ra.Free, Slots: toSlotDTOs(ra.Slots)}
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// WINDOW HANDLERS
// =============================================================================

func (h *Handler) ListWindows(w http.ResponseWriter, r *http.Request) {
	list := h.engine.Slots.List
	if r.URL.Query().Get("active") == "true" {
		list = h.engine.Slots.ListActive
	}
	windows, err := list(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]WindowDTO, len(windows))
	for i, win := range windows {
		dtos[i] = toWindowDTO(win)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetWindow(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	win, err := h.engine.Slots.Get(r.Context(), booking.WindowID(id))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWindowDTO(*win))
}

func (h *Handler) CreateWindow(w http.ResponseWriter, r *http.Request) {
	var req CreateWindowRequest
	if !h.decode(w, r, &req) {
		return
	}
	win, err := h.engine.Slots.Create(r.Context(), booking.NewWindow{
		Start:  req.StartTime,
		End:    req.EndTime,
		Name:   req.Name,
		Status: booking.WindowStatus(req.Status),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWindowDTO(*win))
}

func (h *Handler) UpdateWindow(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var req UpdateWindowRequest
	if !h.decode(w, r, &req) {
		return
	}
	upd := booking.WindowUpdate{Start: req.StartTime, End: req.EndTime, Name: req.Name}
	if req.Status != nil {
		s := booking.WindowStatus(*req.Status)
		upd.Status = &s
	}
	win, err := h.engine.Slots.Update(r.Context(), booking.WindowID(id), upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWindowDTO(*win))
}

func (h *Handler) DeleteWindow(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.engine.Slots.Delete(r.Context(), booking.WindowID(id)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RESERVATION HANDLERS
// =============================================================================

// ListReservations serves History. Query: resource_id, window_id, status,
// from, to, limit, offset.
func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f booking.HistoryFilter
	var err error

	ints := []struct {
		name string
		dst  *int64
	}{
		{"resource_id", (*int64)(&f.ResourceID)},
		{"window_id", (*int64)(&f.WindowID)},
	}
	for _, p := range ints {
		if *p.dst, err = parseOptionalInt(q.Get(p.name)); err != nil {
			h.writeError(w, r, badRequest("invalid "+p.name, err))
			return
		}
	}
	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		n, err := parseOptionalInt(q.Get(name))
		if err != nil {
			h.writeError(w, r, badRequest("invalid "+name, err))
			return
		}
		*dst = int(n)
	}
	f.Status = booking.BookingStatus(q.Get("status"))

	if f.DateFrom, err = parseOptionalDate(q.Get("from")); err != nil {
		h.writeError(w, r, badRequest("invalid from", err))
		return
	}
	if f.DateTo, err = parseOptionalDate(q.Get("to")); err != nil {
		h.writeError(w, r, badRequest("invalid to", err))
		return
	}

	page, err := h.engine.Ledger.History(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	items := make([]ReservationDTO, len(page.Items))
	for i, res := range page.Items {
		items[i] = toReservationDTO(res)
	}
	writeJSON(w, http.StatusOK, HistoryDTO{Items: items, Total: page.Total, Limit: page.Limit, Offset: page.Offset})
}

func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	res, err := h.engine.Ledger.Get(r.Context(), booking.ReservationID(id))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(*res))
}

func (h *Handler) GetReservationByReference(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.Ledger.GetByReference(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(*res))
}

func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req CreateReservationRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.engine.Ledger.Create(r.Context(), booking.NewReservation{
		ResourceID:    req.ResourceID,
		WindowID:      req.WindowID,
		Date:          req.Date,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		TotalAmount:   req.TotalAmount,
		PaymentStatus: booking.PaymentStatus(req.PaymentStatus),
		Notes:         req.Notes,
		CreatedBy:     principalFrom(r.Context()),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/reservations/%d", res.ID))
	writeJSON(w, http.StatusCreated, toReservationDTO(*res))
}

func (h *Handler) UpdateReservationStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	var upd booking.StatusUpdate
	if req.PaymentStatus != nil {
		s := booking.PaymentStatus(*req.PaymentStatus)
		upd.PaymentStatus = &s
	}
	if req.BookingStatus != nil {
		s := booking.BookingStatus(*req.BookingStatus)
		upd.BookingStatus = &s
	}
	res, err := h.engine.Ledger.UpdateStatus(r.Context(), booking.ReservationID(id), upd, principalFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(*res))
}

func (h *Handler) UpdateReservationDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var req UpdateDetailsRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.engine.Ledger.UpdateDetails(r.Context(), booking.ReservationID(id), booking.DetailsUpdate{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Notes:         req.Notes,
	}, principalFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(*res))
}

func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	res, err := h.engine.Ledger.Cancel(r.Context(), booking.ReservationID(id), principalFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(*res))
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

func (h *Handler) DailyReport(w http.ResponseWriter, r *http.Request) {
	date, ok := h.dateQuery(w, r, "date", false)
	if !ok {
		return
	}
	if date.IsZero() {
		date = h.engine.Today()
	}
	sum, err := h.reports.DailySummary(r.Context(), date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) RevenueReport(w http.ResponseWriter, r *http.Request) {
	year := h.engine.Today().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, r, badRequest("invalid year", err))
			return
		}
		year = n
	}
	rev, err := h.reports.RevenueByMonth(r.Context(), year)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

func (h *Handler) UtilizationReport(w http.ResponseWriter, r *http.Request) {
	from, ok := h.dateQuery(w, r, "from", true)
	if !ok {
		return
	}
	to, ok := h.dateQuery(w, r, "to", true)
	if !ok {
		return
	}
	u, err := h.reports.Utilization(r.Context(), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) DashboardReport(w http.ResponseWriter, r *http.Request) {
	date, ok := h.dateQuery(w, r, "date", false)
	if !ok {
		return
	}
	d, err := h.reports.Dashboard(r.Context(), date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body into dst, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.writeError(w, r, badRequest("invalid request body", err))
		return false
	}
	return true
}

func (h *Handler) idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, r, badRequest("invalid id "+strconv.Quote(chi.URLParam(r, "id")), nil))
		return 0, false
	}
	return id, true
}

func (h *Handler) dateQuery(w http.ResponseWriter, r *http.Request, name string, required bool) (booking.Date, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" && required {
		h.writeError(w, r, badRequest(name+" is required (YYYY-MM-DD)", nil))
		return booking.Date{}, false
	}
	d, err := parseOptionalDate(raw)
	if err != nil {
		h.writeError(w, r, badRequest("invalid "+name, err))
		return booking.Date{}, false
	}
	return d, true
}

func parseOptionalDate(s string) (booking.Date, error) {
	if s == "" {
		return booking.Date{}, nil
	}
	return booking.ParseDate(s)
}

func parseOptionalInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
