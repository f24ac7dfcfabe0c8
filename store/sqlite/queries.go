package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fthliqml/badminton-booking-system-api/booking"
)

// reader implements booking.Reader over a pool or a transaction.
type reader struct {
	q queryer
}

// writer implements booking.Writer over a transaction.
type writer struct {
	q queryer
}

// =============================================================================
// RESOURCES
// =============================================================================

const resourceColumns = `id, name, description, price, status, created_at, updated_at`

func (r reader) GetResource(ctx context.Context, id booking.ResourceID) (*booking.Resource, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id)
	return scanOne(row, scanResource, "get resource")
}

func (r reader) GetResourceByName(ctx context.Context, name string) (*booking.Resource, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE name = ?`, name)
	return scanOne(row, scanResource, "get resource by name")
}

func (r reader) ListResources(ctx context.Context) ([]booking.Resource, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+resourceColumns+` FROM resources ORDER BY name, id`)
	if err != nil {
		return nil, translate("list resources", err)
	}
	return scanAll(rows, scanResource, "list resources")
}

func (w writer) InsertResource(ctx context.Context, res *booking.Resource) error {
	result, err := w.q.ExecContext(ctx, `
		INSERT INTO resources (name, description, price, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		res.Name, res.Description, res.Price.String(), res.Status,
		formatTime(res.CreatedAt), formatTime(res.UpdatedAt))
	if err != nil {
		return translate("insert resource", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return translate("insert resource", err)
	}
	res.ID = booking.ResourceID(id)
	return nil
}

func (w writer) UpdateResource(ctx context.Context, res booking.Resource) error {
	result, err := w.q.ExecContext(ctx, `
		UPDATE resources SET name = ?, description = ?, price = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		res.Name, res.Description, res.Price.String(), res.Status, formatTime(res.UpdatedAt), res.ID)
	if err != nil {
		return translate("update resource", err)
	}
	return requireAffected(result, "update resource")
}

func (w writer) DeleteResource(ctx context.Context, id booking.ResourceID) error {
	result, err := w.q.ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id)
	if err != nil {
		return translate("delete resource", err)
	}
	return requireAffected(result, "delete resource")
}

func scanResource(s scanner) (booking.Resource, error) {
	var (
		res                  booking.Resource
		price                string
		createdAt, updatedAt string
	)
	if err := s.Scan(&res.ID, &res.Name, &res.Description, &price, &res.Status, &createdAt, &updatedAt); err != nil {
		return res, err
	}
	var err error
	if res.Price, err = decimal.NewFromString(price); err != nil {
		return res, fmt.Errorf("resource %d price: %w", res.ID, err)
	}
	if res.CreatedAt, err = parseTime(createdAt); err != nil {
		return res, err
	}
	res.UpdatedAt, err = parseTime(updatedAt)
	return res, err
}

// =============================================================================
// WINDOWS
// =============================================================================

const windowColumns = `id, start_seconds, end_seconds, name, status, created_at, updated_at`

func (r reader) GetWindow(ctx context.Context, id booking.WindowID) (*booking.Window, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+windowColumns+` FROM windows WHERE id = ?`, id)
	return scanOne(row, scanWindow, "get window")
}

func (r reader) ListWindows(ctx context.Context, activeOnly bool) ([]booking.Window, error) {
	query := `SELECT ` + windowColumns + ` FROM windows`
	var args []any
	if activeOnly {
		query += ` WHERE status = ?`
		args = append(args, booking.WindowActive)
	}
	query += ` ORDER BY start_seconds, id`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate("list windows", err)
	}
	return scanAll(rows, scanWindow, "list windows")
}

func (w writer) InsertWindow(ctx context.Context, win *booking.Window) error {
	result, err := w.q.ExecContext(ctx, `
		INSERT INTO windows (start_seconds, end_seconds, name, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		int(win.Start), int(win.End), win.Name, win.Status,
		formatTime(win.CreatedAt), formatTime(win.UpdatedAt))
	if err != nil {
		return translate("insert window", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return translate("insert window", err)
	}
	win.ID = booking.WindowID(id)
	return nil
}

func (w writer) UpdateWindow(ctx context.Context, win booking.Window) error {
	result, err := w.q.ExecContext(ctx, `
		UPDATE windows SET start_seconds = ?, end_seconds = ?, name = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		int(win.Start), int(win.End), win.Name, win.Status, formatTime(win.UpdatedAt), win.ID)
	if err != nil {
		return translate("update window", err)
	}
	return requireAffected(result, "update window")
}

func (w writer) DeleteWindow(ctx context.Context, id booking.WindowID) error {
	result, err := w.q.ExecContext(ctx, `DELETE FROM windows WHERE id = ?`, id)
	if err != nil {
		return translate("delete window", err)
	}
	return requireAffected(result, "delete window")
}

func scanWindow(s scanner) (booking.Window, error) {
	var (
		win                  booking.Window
		start, end           int
		createdAt, updatedAt string
	)
	if err := s.Scan(&win.ID, &start, &end, &win.Name, &win.Status, &createdAt, &updatedAt); err != nil {
		return win, err
	}
	win.Start = booking.TimeOfDay(start)
	win.End = booking.TimeOfDay(end)
	var err error
	if win.CreatedAt, err = parseTime(createdAt); err != nil {
		return win, err
	}
	win.UpdatedAt, err = parseTime(updatedAt)
	return win, err
}

// =============================================================================
// RESERVATIONS
// =============================================================================

const reservationColumns = `r.id, r.reference, r.resource_id, r.window_id, r.date,
	r.customer_name, r.customer_phone, r.total_amount, r.payment_status, r.booking_status,
	r.notes, r.created_by, r.updated_by, r.created_at, r.updated_at`

func (r reader) GetReservation(ctx context.Context, id booking.ReservationID) (*booking.Reservation, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations r WHERE r.id = ?`, id)
	return scanOne(row, scanReservation, "get reservation")
}

func (r reader) GetReservationByReference(ctx context.Context, ref string) (*booking.Reservation, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations r WHERE r.reference = ?`, ref)
	return scanOne(row, scanReservation, "get reservation by reference")
}

func (r reader) FindReservations(ctx context.Context, q booking.ReservationQuery) ([]booking.Reservation, error) {
	where, args := reservationFilter(q)
	query := `SELECT ` + reservationColumns + `
		FROM reservations r
		LEFT JOIN windows w ON w.id = r.window_id` + where + `
		ORDER BY r.date DESC, w.start_seconds ASC, r.id ASC`

	switch {
	case q.Limit > 0:
		query += ` LIMIT ? OFFSET ?`
		args = append(args, q.Limit, q.Offset)
	case q.Offset > 0:
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, q.Offset)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate("find reservations", err)
	}
	return scanAll(rows, scanReservation, "find reservations")
}

func (r reader) CountReservations(ctx context.Context, q booking.ReservationQuery) (int, error) {
	where, args := reservationFilter(q)
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations r`+where, args...).Scan(&n); err != nil {
		return 0, translate("count reservations", err)
	}
	return n, nil
}

// reservationFilter renders q as a WHERE clause over alias r.
func reservationFilter(q booking.ReservationQuery) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, vals ...any) {
		clauses = append(clauses, clause)
		args = append(args, vals...)
	}

	if q.ResourceID != 0 {
		add(`r.resource_id = ?`, q.ResourceID)
	}
	if q.WindowID != 0 {
		add(`r.window_id = ?`, q.WindowID)
	}
	if !q.Date.IsZero() {
		add(`r.date = ?`, q.Date.String())
	}
	if !q.DateFrom.IsZero() {
		add(`r.date >= ?`, q.DateFrom.String())
	}
	if !q.DateTo.IsZero() {
		add(`r.date <= ?`, q.DateTo.String())
	}
	if q.ExcludeCancelled {
		add(`r.booking_status <> ?`, booking.BookingCancelled)
	}
	if len(q.Statuses) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(q.Statuses)), ", ")
		vals := make([]any, len(q.Statuses))
		for i, s := range q.Statuses {
			vals[i] = s
		}
		add(`r.booking_status IN (`+placeholders+`)`, vals...)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return ` WHERE ` + strings.Join(clauses, ` AND `), args
}

func (w writer) InsertReservation(ctx context.Context, res *booking.Reservation) error {
	result, err := w.q.ExecContext(ctx, `
		INSERT INTO reservations
		(reference, resource_id, window_id, date, customer_name, customer_phone, total_amount,
		 payment_status, booking_status, notes, created_by, updated_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.Reference,
		nullInt64(int64(res.ResourceID)),
		res.WindowID,
		res.Date.String(),
		res.CustomerName,
		res.CustomerPhone,
		res.TotalAmount.String(),
		res.PaymentStatus,
		res.BookingStatus,
		res.Notes,
		res.CreatedBy,
		res.UpdatedBy,
		formatTime(res.CreatedAt),
		formatTime(res.UpdatedAt),
	)
	if err != nil {
		return translate("insert reservation", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return translate("insert reservation", err)
	}
	res.ID = booking.ReservationID(id)
	return nil
}

// UpdateReservation rewrites the mutable columns. Slot, amount, reference
// and creator are fixed at creation.
func (w writer) UpdateReservation(ctx context.Context, res booking.Reservation) error {
	result, err := w.q.ExecContext(ctx, `
		UPDATE reservations SET
			customer_name = ?, customer_phone = ?, payment_status = ?, booking_status = ?,
			notes = ?, updated_by = ?, updated_at = ?
		WHERE id = ?`,
		res.CustomerName, res.CustomerPhone, res.PaymentStatus, res.BookingStatus,
		res.Notes, res.UpdatedBy, formatTime(res.UpdatedAt), res.ID)
	if err != nil {
		return translate("update reservation", err)
	}
	return requireAffected(result, "update reservation")
}

func scanReservation(s scanner) (booking.Reservation, error) {
	var (
		res                  booking.Reservation
		resourceID           sql.NullInt64
		date, amount         string
		createdAt, updatedAt string
	)
	err := s.Scan(
		&res.ID, &res.Reference, &resourceID, &res.WindowID, &date,
		&res.CustomerName, &res.CustomerPhone, &amount, &res.PaymentStatus, &res.BookingStatus,
		&res.Notes, &res.CreatedBy, &res.UpdatedBy, &createdAt, &updatedAt,
	)
	if err != nil {
		return res, err
	}
	res.ResourceID = booking.ResourceID(resourceID.Int64)
	if res.Date, err = booking.ParseDate(date); err != nil {
		return res, err
	}
	if res.TotalAmount, err = decimal.NewFromString(amount); err != nil {
		return res, fmt.Errorf("reservation %d amount: %w", res.ID, err)
	}
	if res.CreatedAt, err = parseTime(createdAt); err != nil {
		return res, err
	}
	res.UpdatedAt, err = parseTime(updatedAt)
	return res, err
}

// =============================================================================
// PRINCIPALS
// =============================================================================

const principalColumns = `id, username, display_name, password_hash, active, created_at`

func (r reader) GetPrincipal(ctx context.Context, id booking.PrincipalID) (*booking.Principal, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+principalColumns+` FROM principals WHERE id = ?`, id)
	return scanOne(row, scanPrincipal, "get principal")
}

func (r reader) GetPrincipalByUsername(ctx context.Context, username string) (*booking.Principal, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+principalColumns+` FROM principals WHERE username = ?`, username)
	return scanOne(row, scanPrincipal, "get principal by username")
}

func (w writer) InsertPrincipal(ctx context.Context, p *booking.Principal) error {
	result, err := w.q.ExecContext(ctx, `
		INSERT INTO principals (username, display_name, password_hash, active, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.Username, p.DisplayName, p.PasswordHash, boolInt(p.Active), formatTime(p.CreatedAt))
	if err != nil {
		return translate("insert principal", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return translate("insert principal", err)
	}
	p.ID = booking.PrincipalID(id)
	return nil
}

func scanPrincipal(s scanner) (booking.Principal, error) {
	var (
		p         booking.Principal
		active    int
		createdAt string
	)
	if err := s.Scan(&p.ID, &p.Username, &p.DisplayName, &p.PasswordHash, &active, &createdAt); err != nil {
		return p, err
	}
	p.Active = active != 0
	var err error
	p.CreatedAt, err = parseTime(createdAt)
	return p, err
}

// =============================================================================
// SCANNING
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

// scanOne returns nil, nil when the row does not exist.
func scanOne[T any](row *sql.Row, scan func(scanner) (T, error), op string) (*T, error) {
	v, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(op, err)
	}
	return &v, nil
}

func scanAll[T any](rows *sql.Rows, scan func(scanner) (T, error), op string) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, translate(op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(op, err)
	}
	return out, nil
}

func requireAffected(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return translate(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, booking.ErrNotFound)
	}
	return nil
}
