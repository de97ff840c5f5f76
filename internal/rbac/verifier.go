// Package rbac verifies caller identity claims against the analytics platform.
package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/dashgenie/internal/domain"
)

var (
	// ErrVerificationFailed is returned for any claim that cannot be confirmed.
	ErrVerificationFailed = errors.New("verification failed")
	// ErrUserNotFound is returned by a UserDirectory when no user matches.
	ErrUserNotFound = errors.New("user not found")
)

// UserDirectory is the authoritative identity store.
type UserDirectory interface {
	// FindUserID returns the id of the user with exactly this username.
	FindUserID(ctx context.Context, username string) (int, error)
}

// CatalogView exposes the administrator's catalog.
type CatalogView interface {
	Snapshot() domain.Catalog
}

// Verifier turns an unverified claim into a scoped identity.
type Verifier struct {
	users   UserDirectory
	catalog CatalogView
	logger  *slog.Logger
}

// NewVerifier creates a Verifier.
func NewVerifier(users UserDirectory, catalog CatalogView, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{users: users, catalog: catalog, logger: logger}
}

// Verify confirms the claimed user exists and keeps only the claimed
// datasets the catalog also knows by id. It never trusts the claim when the
// directory cannot be reached.
func (v *Verifier) Verify(ctx context.Context, claim *domain.UserContext) (*domain.VerifiedIdentity, error) {
	if claim == nil || claim.User == nil {
		return nil, fmt.Errorf("%w: no user in context", ErrVerificationFailed)
	}
	username := strings.TrimSpace(claim.User.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: no username in context", ErrVerificationFailed)
	}

	userID, err := v.users.FindUserID(ctx, username)
	if err != nil {
		v.logger.Warn("User verification failed", "username", username, "error", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrVerificationFailed, username, err)
	}

	admin := v.catalog.Snapshot()
	known := admin.IDs()
	scoped := make(domain.Catalog, len(claim.Datasets))
	for _, ds := range claim.Datasets {
		if _, ok := known[ds.ID]; !ok {
			v.logger.Warn("User claimed unknown dataset", "username", username, "dataset_id", ds.ID)
			continue
		}
		name := ds.TableName
		if name == "" {
			name, _ = admin.NameByID(ds.ID)
		}
		scoped[name] = domain.NewDatasetInfo(ds.ID, ds.Columns)
	}

	return &domain.VerifiedIdentity{
		ID:        userID,
		Username:  username,
		FirstName: claim.User.FirstName,
		LastName:  claim.User.LastName,
		Datasets:  scoped,
	}, nil
}
