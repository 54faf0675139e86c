// Package credentials persists the account identifier, bearer token and
// API base URL of the operator, and adapts a store to the API client's
// credential provider and invalidator interfaces.
package credentials

import (
	"context"
	"errors"

	"github.com/telhawk-systems/keyhawk/internal/api"
)

// ErrNotLoggedIn is returned when no account or token is stored.
var ErrNotLoggedIn = errors.New("not logged in: run 'khawk login' first")

// Store persists one credential record.
type Store interface {
	// Load returns the stored credentials. Missing values are empty, not
	// an error.
	Load(ctx context.Context) (api.Credentials, error)
	Save(ctx context.Context, creds api.Credentials) error
	// Clear removes the whole record.
	Clear(ctx context.Context) error
}
