package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 6

// PrincipalDirectory registers and authenticates administrators.
type PrincipalDirectory struct {
	base
	cost int
	log  *zap.Logger
}

// Register creates an active principal with a bcrypt password hash.
func (d *PrincipalDirectory) Register(ctx context.Context, username, displayName, password string) (*Principal, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = username
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	p := Principal{
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Active:       true,
		CreatedAt:    d.now(),
	}
	err = d.store.WithTx(ctx, func(tx Tx) error {
		existing, err := tx.GetPrincipalByUsername(ctx, username)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: username %q", ErrDuplicateName, username)
		}
		return tx.InsertPrincipal(ctx, &p)
	})
	if err != nil {
		return nil, err
	}

	d.log.Info("principal registered", zap.Int64("principal_id", int64(p.ID)), zap.String("username", username))
	return &p, nil
}

// Authenticate verifies credentials. Unknown users, inactive users and wrong
// passwords all fail with ErrInvalidPrincipal.
func (d *PrincipalDirectory) Authenticate(ctx context.Context, username, password string) (*Principal, error) {
	p, err := d.store.GetPrincipalByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return nil, err
	}
	if p == nil || !p.Active {
		return nil, ErrInvalidPrincipal
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidPrincipal
		}
		return nil, fmt.Errorf("verify password: %w", err)
	}
	return p, nil
}

// Get returns the principal or a NotFound error.
func (d *PrincipalDirectory) Get(ctx context.Context, id PrincipalID) (*Principal, error) {
	p, err := d.store.GetPrincipal(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, notFound("principal", id)
	}
	return p, nil
}

// Verify resolves id to an active principal.
func (d *PrincipalDirectory) Verify(ctx context.Context, id PrincipalID) (*Principal, error) {
	return requirePrincipal(ctx, d.store, id)
}
