package booking

// ReservationQuery filters reservations. Zero fields do not constrain.
type ReservationQuery struct {
	ResourceID ResourceID
	WindowID   WindowID
	Date       Date // exact date
	DateFrom   Date // inclusive
	DateTo     Date // inclusive
	Statuses   []BookingStatus

	// ExcludeCancelled keeps only reservations that still hold their slot.
	ExcludeCancelled bool

	Limit  int // 0 = no limit
	Offset int
}

func (q ReservationQuery) ForResource(id ResourceID) ReservationQuery {
	q.ResourceID = id
	return q
}

func (q ReservationQuery) ForWindow(id WindowID) ReservationQuery {
	q.WindowID = id
	return q
}

func (q ReservationQuery) On(d Date) ReservationQuery {
	q.Date = d
	return q
}

func (q ReservationQuery) From(d Date) ReservationQuery {
	q.DateFrom = d
	return q
}

func (q ReservationQuery) Until(d Date) ReservationQuery {
	q.DateTo = d
	return q
}

func (q ReservationQuery) WithStatus(statuses ...BookingStatus) ReservationQuery {
	q.Statuses = append([]BookingStatus(nil), statuses...)
	return q
}

// Active restricts the query to non-cancelled reservations.
func (q ReservationQuery) Active() ReservationQuery {
	q.ExcludeCancelled = true
	return q
}

func (q ReservationQuery) Page(limit, offset int) ReservationQuery {
	q.Limit = limit
	q.Offset = offset
	return q
}

// Matches reports whether r satisfies every filter of q (paging excluded).
// Statuses match stored values, not the effective projection.
func (q ReservationQuery) Matches(r Reservation) bool {
	if q.ResourceID != 0 && r.ResourceID != q.ResourceID {
		return false
	}
	if q.WindowID != 0 && r.WindowID != q.WindowID {
		return false
	}
	if !q.Date.IsZero() && !r.Date.Equal(q.Date) {
		return false
	}
	if !q.DateFrom.IsZero() && r.Date.Before(q.DateFrom) {
		return false
	}
	if !q.DateTo.IsZero() && r.Date.After(q.DateTo) {
		return false
	}
	if q.ExcludeCancelled && r.IsCancelled() {
		return false
	}
	if len(q.Statuses) > 0 {
		found := false
		for _, s := range q.Statuses {
			if r.BookingStatus == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
