package credentials

import (
	"context"

	"github.com/telhawk-systems/keyhawk/internal/api"
	"github.com/telhawk-systems/keyhawk/internal/logging"
)

// Provider serves credentials from a Store to the API client and clears the
// store when the client reports a rejected token.
type Provider struct {
	store     Store
	overrides api.Credentials
	baseURL   string
	logger    *logging.Logger
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithOverrides sets values (typically from the environment) that take
// precedence over the stored ones. Empty fields do not override.
func WithOverrides(c api.Credentials) ProviderOption {
	return func(p *Provider) {
		p.overrides = c
	}
}

// WithDefaultBaseURL sets the base URL used when neither the store nor the
// overrides carry one.
func WithDefaultBaseURL(u string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = u
	}
}

// WithProviderLogger sets the logger.
func WithProviderLogger(l *logging.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = l
	}
}

// NewProvider creates a provider backed by store.
func NewProvider(store Store, opts ...ProviderOption) *Provider {
	p := &Provider{
		store:  store,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Credentials implements api.CredentialProvider. It fails with
// ErrNotLoggedIn unless both account and token are known.
func (p *Provider) Credentials(ctx context.Context) (api.Credentials, error) {
	creds, err := p.Load(ctx)
	if err != nil {
		return creds, err
	}
	if creds.AccountID == "" || creds.Token == "" {
		return creds, ErrNotLoggedIn
	}
	return creds, nil
}

// Load returns the merged credentials without requiring a login.
func (p *Provider) Load(ctx context.Context) (api.Credentials, error) {
	creds, err := p.store.Load(ctx)
	if err != nil {
		return api.Credentials{}, err
	}
	if p.overrides.AccountID != "" {
		creds.AccountID = p.overrides.AccountID
	}
	if p.overrides.Token != "" {
		creds.Token = p.overrides.Token
	}
	if p.overrides.BaseURL != "" {
		creds.BaseURL = p.overrides.BaseURL
	}
	if creds.BaseURL == "" {
		creds.BaseURL = p.baseURL
	}
	return creds, nil
}

// Save stores creds.
func (p *Provider) Save(ctx context.Context, creds api.Credentials) error {
	return p.store.Save(ctx, creds)
}

// InvalidateCredentials implements api.CredentialInvalidator.
func (p *Provider) InvalidateCredentials(ctx context.Context) error {
	p.logger.WarnContext(ctx, "token rejected, clearing stored credentials")
	return p.store.Clear(ctx)
}

// Clear removes the stored credentials (logout).
func (p *Provider) Clear(ctx context.Context) error {
	return p.store.Clear(ctx)
}
