package booking

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =============================================================================
// RESOURCE REGISTRY - Courts
// =============================================================================

// NewResource is the input to ResourceRegistry.Create.
type NewResource struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Status      ResourceStatus // empty = active
}

// ResourceUpdate is a partial update; nil fields are left unchanged.
type ResourceUpdate struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Status      *ResourceStatus
}

// ResourceRegistry manages courts.
type ResourceRegistry struct {
	base
	log       *zap.Logger
	observers catalogObservers
}

// List returns all resources ordered by name.
func (s *ResourceRegistry) List(ctx context.Context) ([]Resource, error) {
	return s.store.ListResources(ctx)
}

// Get returns the resource or a NotFound error.
func (s *ResourceRegistry) Get(ctx context.Context, id ResourceID) (*Resource, error) {
	r, err := s.store.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, notFound("resource", id)
	}
	return r, nil
}

// Create registers a resource with a unique name. Status defaults to active.
func (s *ResourceRegistry) Create(ctx context.Context, in NewResource) (*Resource, error) {
	if in.Status == "" {
		in.Status = ResourceActive
	}
	now := s.now()
	r := Resource{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Status:      in.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validateResource(r); err != nil {
		return nil, err
	}

	err := s.store.WithTx(ctx, func(tx Tx) error {
		if err := ensureUniqueName(ctx, tx, r.Name, 0); err != nil {
			return err
		}
		return tx.InsertResource(ctx, &r)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("resource created",
		zap.Int64("resource_id", int64(r.ID)),
		zap.String("name", r.Name),
		zap.String("price", r.Price.String()))
	s.observers.publish(ctx, CatalogEvent{Type: EventResourceCreated, ResourceID: r.ID, At: now})
	return &r, nil
}

// Update applies a partial change to a resource.
func (s *ResourceRegistry) Update(ctx context.Context, id ResourceID, upd ResourceUpdate) (*Resource, error) {
	var updated Resource
	err := s.store.WithTx(ctx, func(tx Tx) error {
		current, err := tx.GetResource(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return notFound("resource", id)
		}

		next := *current
		if upd.Name != nil {
			next.Name = strings.TrimSpace(*upd.Name)
		}
		if upd.Description != nil {
			next.Description = strings.TrimSpace(*upd.Description)
		}
		if upd.Price != nil {
			next.Price = *upd.Price
		}
		if upd.Status != nil {
			next.Status = *upd.Status
		}
		if err := validateResource(next); err != nil {
			return err
		}
		if next.Name != current.Name {
			if err := ensureUniqueName(ctx, tx, next.Name, id); err != nil {
				return err
			}
		}

		next.UpdatedAt = s.now()
		if err := tx.UpdateResource(ctx, next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("resource updated", zap.Int64("resource_id", int64(id)))
	s.observers.publish(ctx, CatalogEvent{Type: EventResourceUpdated, ResourceID: id, At: updated.UpdatedAt})
	return &updated, nil
}

// Delete removes a resource with no non-cancelled reservations. Cancelled
// history rows survive with their resource reference cleared.
func (s *ResourceRegistry) Delete(ctx context.Context, id ResourceID) error {
	err := s.store.WithTx(ctx, func(tx Tx) error {
		r, err := tx.GetResource(ctx, id)
		if err != nil {
			return err
		}
		if r == nil {
			return notFound("resource", id)
		}
		n, err := tx.CountReservations(ctx, ReservationQuery{}.ForResource(id).Active())
		if err != nil {
			return err
		}
		if n > 0 {
			return &InUseError{
				Entity:       "resource",
				ID:           int64(id),
				Reservations: n,
				Hint:         "cancel them or set the resource inactive",
			}
		}
		return tx.DeleteResource(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.Info("resource deleted", zap.Int64("resource_id", int64(id)))
	s.observers.publish(ctx, CatalogEvent{Type: EventResourceDeleted, ResourceID: id, At: s.now()})
	return nil
}

func validateResource(r Resource) error {
	if r.Name == "" {
		return fmt.Errorf("%w: resource name is required", ErrInvalidInput)
	}
	if r.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: unknown resource status %q", ErrInvalidInput, r.Status)
	}
	return nil
}

func ensureUniqueName(ctx context.Context, r Reader, name string, self ResourceID) error {
	existing, err := r.GetResourceByName(ctx, name)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != self {
		return fmt.Errorf("%w: resource %q", ErrDuplicateName, name)
	}
	return nil
}
