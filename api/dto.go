/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Domain types in
  booking carry no JSON tags; these types are the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

FORMATS:
  Dates are YYYY-MM-DD, times of day HH:MM (HH:MM:SS accepted), money is a
  decimal string or number, timestamps are RFC3339.

PARTIAL UPDATES:
  Update requests use pointer fields. An omitted field is left unchanged.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fthliqml/badminton-booking-system-api/booking"
)

// =============================================================================
// RESOURCES
// =============================================================================

type ResourceDTO struct {
	ID          booking.ResourceID `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Price       decimal.Decimal    `json:"price"`
	Status      string             `json:"status"`
	CreatedAt   string             `json:"created_at"`
	UpdatedAt   string             `json:"updated_at"`
}

type CreateResourceRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Status      string          `json:"status"`
}

type UpdateResourceRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Status      *string          `json:"status"`
}

// =============================================================================
// WINDOWS
// =============================================================================

type WindowDTO struct {
	ID        booking.WindowID  `json:"id"`
	StartTime booking.TimeOfDay `json:"start_time"`
	EndTime   booking.TimeOfDay `json:"end_time"`
	Name      string            `json:"name"`
	Status    string            `json:"status"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
}

type CreateWindowRequest struct {
	StartTime booking.TimeOfDay `json:"start_time"`
	EndTime   booking.TimeOfDay `json:"end_time"`
	Name      string            `json:"name"`
	Status    string            `json:"status"`
}

type UpdateWindowRequest struct {
	StartTime *booking.TimeOfDay `json:"start_time"`
	EndTime   *booking.TimeOfDay `json:"end_time"`
	Name      *string            `json:"name"`
	Status    *string            `json:"status"`
}

// =============================================================================
// AVAILABILITY
// =============================================================================

type SlotDTO struct {
	Window      WindowDTO `json:"window"`
	IsAvailable bool      `json:"is_available"`
}

type AvailabilityDTO struct {
	Resource  *ResourceDTO `json:"resource,omitempty"`
	Date      booking.Date `json:"date"`
	Available int          `json:"available"`
	Slots     []SlotDTO    `json:"slots"`
}

// =============================================================================
// RESERVATIONS
// =============================================================================

type ReservationDTO struct {
	ID            booking.ReservationID `json:"id"`
	Reference     string                `json:"reference"`
	ResourceID    *booking.ResourceID   `json:"resource_id"`
	WindowID      booking.WindowID      `json:"window_id"`
	Date          booking.Date          `json:"date"`
	CustomerName  string                `json:"customer_name"`
	CustomerPhone string                `json:"customer_phone,omitempty"`
	TotalAmount   decimal.Decimal       `json:"total_amount"`
	PaymentStatus string                `json:"payment_status"`
	BookingStatus string                `json:"booking_status"`
	Notes         string                `json:"notes,omitempty"`
	CreatedBy     booking.PrincipalID   `json:"created_by"`
	UpdatedBy     booking.PrincipalID   `json:"updated_by"`
	CreatedAt     string                `json:"created_at"`
	UpdatedAt     string                `json:"updated_at"`
}

type CreateReservationRequest struct {
	ResourceID    booking.ResourceID `json:"resource_id"`
	WindowID      booking.WindowID   `json:"window_id"`
	Date          booking.Date       `json:"date"`
	CustomerName  string             `json:"customer_name"`
	CustomerPhone string             `json:"customer_phone"`
	TotalAmount   decimal.Decimal    `json:"total_amount"`
	PaymentStatus string             `json:"payment_status"`
	Notes         string             `json:"notes"`
}

type UpdateStatusRequest struct {
	PaymentStatus *string `json:"payment_status"`
	BookingStatus *string `json:"booking_status"`
}

type UpdateDetailsRequest struct {
	CustomerName  *string `json:"customer_name"`
	CustomerPhone *string `json:"customer_phone"`
	Notes         *string `json:"notes"`
}

type HistoryDTO struct {
	Items  []ReservationDTO `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// =============================================================================
// PRINCIPALS
// =============================================================================

type PrincipalDTO struct {
	ID          booking.PrincipalID `json:"id"`
	Username    string              `json:"username"`
	DisplayName string              `json:"display_name"`
	Active      bool                `json:"active"`
	CreatedAt   string              `json:"created_at"`
}

type RegisterRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// =============================================================================
// MISC
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string       `json:"error"`
	Kind  booking.Kind `json:"kind"`
}

type SeedResultDTO struct {
	PrincipalID booking.PrincipalID `json:"principal_id"`
	Resources   int                 `json:"resources_created"`
	Windows     int                 `json:"windows_created"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toResourceDTO(r booking.Resource) ResourceDTO {
	return ResourceDTO{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Status:      string(r.Status),
		CreatedAt:   formatTimestamp(r.CreatedAt),
		UpdatedAt:   formatTimestamp(r.UpdatedAt),
	}
}

func toWindowDTO(w booking.Window) WindowDTO {
	return WindowDTO{
		ID:        w.ID,
		StartTime: w.Start,
		EndTime:   w.End,
		Name:      w.Name,
		Status:    string(w.Status),
		CreatedAt: formatTimestamp(w.CreatedAt),
		UpdatedAt: formatTimestamp(w.UpdatedAt),
	}
}

func toReservationDTO(r booking.Reservation) ReservationDTO {
	dto := ReservationDTO{
		ID:            r.ID,
		Reference:     r.Reference,
		WindowID:      r.WindowID,
		Date:          r.Date,
		CustomerName:  r.CustomerName,
		CustomerPhone: r.CustomerPhone,
		TotalAmount:   r.TotalAmount,
		PaymentStatus: string(r.PaymentStatus),
		BookingStatus: string(r.BookingStatus),
		Notes:         r.Notes,
		CreatedBy:     r.CreatedBy,
		UpdatedBy:     r.UpdatedBy,
		CreatedAt:     formatTimestamp(r.CreatedAt),
		UpdatedAt:     formatTimestamp(r.UpdatedAt),
	}
	// cleared when the court was deleted
	if r.ResourceID != 0 {
		id := r.ResourceID
		dto.ResourceID = &id
	}
	return dto
}

func toPrincipalDTO(p booking.Principal) PrincipalDTO {
	return PrincipalDTO{
		ID:          p.ID,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		Active:      p.Active,
		CreatedAt:   formatTimestamp(p.CreatedAt),
	}
}

func toSlotDTOs(slots []booking.SlotAvailability) []SlotDTO {
	out := make([]SlotDTO, len(slots))
	for i, s := range slots {
		out[i] = SlotDTO{Window: toWindowDTO(s.Window), IsAvailable: s.IsAvailable}
	}
	return out
}
