// Package store provides an in-memory booking.Store.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/fthliqml/badminton-booking-system-api/booking"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps all state in maps guarded by one lock. Transactions run on a
// private copy of the state that replaces the committed state on success,
// so a failed transaction leaves nothing behind.
type Memory struct {
	mu    sync.RWMutex
	state *memState
}

type memState struct {
	resources    map[booking.ResourceID]booking.Resource
	windows      map[booking.WindowID]booking.Window
	reservations map[booking.ReservationID]booking.Reservation
	principals   map[booking.PrincipalID]booking.Principal

	nextResource    booking.ResourceID
	nextWindow      booking.WindowID
	nextReservation booking.ReservationID
	nextPrincipal   booking.PrincipalID
}

func NewMemory() *Memory {
	return &Memory{state: &memState{
		resources:    make(map[booking.ResourceID]booking.Resource),
		windows:      make(map[booking.WindowID]booking.Window),
		reservations: make(map[booking.ReservationID]booking.Reservation),
		principals:   make(map[booking.PrincipalID]booking.Principal),
	}}
}

var _ booking.Store = (*Memory)(nil)

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a copy + swap on success.
func (m *Memory) WithTx(ctx context.Context, fn func(booking.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return booking.StorageError("begin", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	working := m.state.clone()
	if err := fn(&memTx{s: working}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return booking.StorageError("commit", err)
	}
	m.state = working
	return nil
}

func (m *Memory) read() *memState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// committed states are never mutated after the swap
	return m.state
}

// =============================================================================
// READER (committed state)
// =============================================================================

func (m *Memory) GetResource(_ context.Context, id booking.ResourceID) (*booking.Resource, error) {
	return m.read().getResource(id), nil
}

func (m *Memory) GetResourceByName(_ context.Context, name string) (*booking.Resource, error) {
	return m.read().getResourceByName(name), nil
}

func (m *Memory) ListResources(_ context.Context) ([]booking.Resource, error) {
	return m.read().listResources(), nil
}

func (m *Memory) GetWindow(_ context.Context, id booking.WindowID) (*booking.Window, error) {
	return m.read().getWindow(id), nil
}

func (m *Memory) ListWindows(_ context.Context, activeOnly bool) ([]booking.Window, error) {
	return m.read().listWindows(activeOnly), nil
}

func (m *Memory) GetReservation(_ context.Context, id booking.ReservationID) (*booking.Reservation, error) {
	return m.read().getReservation(id), nil
}

func (m *Memory) GetReservationByReference(_ context.Context, ref string) (*booking.Reservation, error) {
	return m.read().getReservationByReference(ref), nil
}

func (m *Memory) FindReservations(_ context.Context, q booking.ReservationQuery) ([]booking.Reservation, error) {
	return m.read().findReservations(q), nil
}

func (m *Memory) CountReservations(_ context.Context, q booking.ReservationQuery) (int, error) {
	return m.read().countReservations(q), nil
}

func (m *Memory) GetPrincipal(_ context.Context, id booking.PrincipalID) (*booking.Principal, error) {
	return m.read().getPrincipal(id), nil
}

func (m *Memory) GetPrincipalByUsername(_ context.Context, username string) (*booking.Principal, error) {
	return m.read().getPrincipalByUsername(username), nil
}

// =============================================================================
// TRANSACTIONAL VIEW
// =============================================================================

type memTx struct {
	s *memState
}

func (t *memTx) GetResource(_ context.Context, id booking.ResourceID) (*booking.Resource, error) {
	return t.s.getResource(id), nil
}

func (t *memTx) GetResourceByName(_ context.Context, name string) (*booking.Resource, error) {
	return t.s.getResourceByName(name), nil
}

func (t *memTx) ListResources(_ context.Context) ([]booking.Resource, error) {
	return t.s.listResources(), nil
}

func (t *memTx) GetWindow(_ context.Context, id booking.WindowID) (*booking.Window, error) {
	return t.s.getWindow(id), nil
}

func (t *memTx) ListWindows(_ context.Context, activeOnly bool) ([]booking.Window, error) {
	return t.s.listWindows(activeOnly), nil
}

func (t *memTx) GetReservation(_ context.Context, id booking.ReservationID) (*booking.Reservation, error) {
	return t.s.getReservation(id), nil
}

func (t *memTx) GetReservationByReference(_ context.Context, ref string) (*booking.Reservation, error) {
	return t.s.getReservationByReference(ref), nil
}

func (t *memTx) FindReservations(_ context.Context, q booking.ReservationQuery) ([]booking.Reservation, error) {
	return t.s.findReservations(q), nil
}

func (t *memTx) CountReservations(_ context.Context, q booking.ReservationQuery) (int, error) {
	return t.s.countReservations(q), nil
}

func (t *memTx) GetPrincipal(_ context.Context, id booking.PrincipalID) (*booking.Principal, error) {
	return t.s.getPrincipal(id), nil
}

func (t *memTx) GetPrincipalByUsername(_ context.Context, username string) (*booking.Principal, error) {
	return t.s.getPrincipalByUsername(username), nil
}

func (t *memTx) InsertResource(_ context.Context, r *booking.Resource) error {
	if t.s.getResourceByName(r.Name) != nil {
		return booking.ErrDuplicateName
	}
	t.s.nextResource++
	r.ID = t.s.nextResource
	t.s.resources[r.ID] = *r
	return nil
}

func (t *memTx) UpdateResource(_ context.Context, r booking.Resource) error {
	if _, ok := t.s.resources[r.ID]; !ok {
		return booking.ErrNotFound
	}
	if other := t.s.getResourceByName(r.Name); other != nil && other.ID != r.ID {
		return booking.ErrDuplicateName
	}
	t.s.resources[r.ID] = r
	return nil
}

func (t *memTx) DeleteResource(_ context.Context, id booking.ResourceID) error {
	if _, ok := t.s.resources[id]; !ok {
		return booking.ErrNotFound
	}
	delete(t.s.resources, id)
	// ON DELETE SET NULL
	for rid, r := range t.s.reservations {
		if r.ResourceID == id {
			r.ResourceID = 0
			t.s.reservations[rid] = r
		}
	}
	return nil
}

func (t *memTx) InsertWindow(_ context.Context, w *booking.Window) error {
	t.s.nextWindow++
	w.ID = t.s.nextWindow
	t.s.windows[w.ID] = *w
	return nil
}

func (t *memTx) UpdateWindow(_ context.Context, w booking.Window) error {
	if _, ok := t.s.windows[w.ID]; !ok {
		return booking.ErrNotFound
	}
	t.s.windows[w.ID] = w
	return nil
}

func (t *memTx) DeleteWindow(_ context.Context, id booking.WindowID) error {
	if _, ok := t.s.windows[id]; !ok {
		return booking.ErrNotFound
	}
	// ON DELETE RESTRICT
	if t.s.countReservations(booking.ReservationQuery{WindowID: id}) > 0 {
		return booking.ErrConflictInUse
	}
	delete(t.s.windows, id)
	return nil
}

func (t *memTx) InsertReservation(_ context.Context, r *booking.Reservation) error {
	if err := t.s.checkSlot(*r); err != nil {
		return err
	}
	t.s.nextReservation++
	r.ID = t.s.nextReservation
	t.s.reservations[r.ID] = *r
	return nil
}

func (t *memTx) UpdateReservation(_ context.Context, r booking.Reservation) error {
	if _, ok := t.s.reservations[r.ID]; !ok {
		return booking.ErrNotFound
	}
	if err := t.s.checkSlot(r); err != nil {
		return err
	}
	t.s.reservations[r.ID] = r
	return nil
}

func (t *memTx) InsertPrincipal(_ context.Context, p *booking.Principal) error {
	if t.s.getPrincipalByUsername(p.Username) != nil {
		return booking.ErrDuplicateName
	}
	t.s.nextPrincipal++
	p.ID = t.s.nextPrincipal
	t.s.principals[p.ID] = *p
	return nil
}

// =============================================================================
// STATE OPERATIONS
// =============================================================================

func (s *memState) clone() *memState {
	c := *s
	c.resources = make(map[booking.ResourceID]booking.Resource, len(s.resources))
	for k, v := range s.resources {
		c.resources[k] = v
	}
	c.windows = make(map[booking.WindowID]booking.Window, len(s.windows))
	for k, v := range s.windows {
		c.windows[k] = v
	}
	c.reservations = make(map[booking.ReservationID]booking.Reservation, len(s.reservations))
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	c.principals = make(map[booking.PrincipalID]booking.Principal, len(s.principals))
	for k, v := range s.principals {
		c.principals[k] = v
	}
	return &c
}

// checkSlot emulates the partial unique index on active reservations.
func (s *memState) checkSlot(r booking.Reservation) error {
	if r.IsCancelled() {
		return nil
	}
	for _, other := range s.reservations {
		if other.ID == r.ID || other.IsCancelled() {
			continue
		}
		if other.ResourceID == r.ResourceID && other.WindowID == r.WindowID && other.Date.Equal(r.Date) {
			return booking.ErrSlotTaken
		}
	}
	return nil
}

func (s *memState) getResource(id booking.ResourceID) *booking.Resource {
	r, ok := s.resources[id]
	if !ok {
		return nil
	}
	return &r
}

func (s *memState) getResourceByName(name string) *booking.Resource {
	for _, r := range s.resources {
		if r.Name == name {
			return &r
		}
	}
	return nil
}

func (s *memState) listResources() []booking.Resource {
	out := make([]booking.Resource, 0, len(s.resources))
	for _, r := range s.resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *memState) getWindow(id booking.WindowID) *booking.Window {
	w, ok := s.windows[id]
	if !ok {
		return nil
	}
	return &w
}

func (s *memState) listWindows(activeOnly bool) []booking.Window {
	out := make([]booking.Window, 0, len(s.windows))
	for _, w := range s.windows {
		if activeOnly && !w.IsActive() {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *memState) getReservation(id booking.ReservationID) *booking.Reservation {
	r, ok := s.reservations[id]
	if !ok {
		return nil
	}
	return &r
}

func (s *memState) getReservationByReference(ref string) *booking.Reservation {
	for _, r := range s.reservations {
		if r.Reference == ref {
			return &r
		}
	}
	return nil
}

func (s *memState) findReservations(q booking.ReservationQuery) []booking.Reservation {
	var out []booking.Reservation
	for _, r := range s.reservations {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		as, bs := s.windowStart(a.WindowID), s.windowStart(b.WindowID)
		if as != bs {
			return as < bs
		}
		return a.ID < b.ID
	})

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out
}

func (s *memState) countReservations(q booking.ReservationQuery) int {
	n := 0
	for _, r := range s.reservations {
		if q.Matches(r) {
			n++
		}
	}
	return n
}

func (s *memState) windowStart(id booking.WindowID) booking.TimeOfDay {
	if w, ok := s.windows[id]; ok {
		return w.Start
	}
	return 0
}

func (s *memState) getPrincipal(id booking.PrincipalID) *booking.Principal {
	p, ok := s.principals[id]
	if !ok {
		return nil
	}
	return &p
}

func (s *memState) getPrincipalByUsername(username string) *booking.Principal {
	for _, p := range s.principals {
		if p.Username == username {
			return &p
		}
	}
	return nil
}
