package api

import "context"

// Credentials authenticate calls against one licensing account.
type Credentials struct {
	AccountID string
	Token     string
	BaseURL   string
}

// CredentialProvider supplies credentials at call time. The client reads
// them once per logical call and never writes them.
type CredentialProvider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// CredentialProviderFunc adapts a function to CredentialProvider.
type CredentialProviderFunc func(ctx context.Context) (Credentials, error)

// Credentials implements CredentialProvider.
func (f CredentialProviderFunc) Credentials(ctx context.Context) (Credentials, error) {
	return f(ctx)
}

// StaticCredentials returns a provider that always yields creds.
func StaticCredentials(creds Credentials) CredentialProvider {
	return CredentialProviderFunc(func(context.Context) (Credentials, error) {
		return creds, nil
	})
}

// CredentialInvalidator is told when the server rejected the stored token
// on a first attempt, so the owner of the credential store can discard it.
type CredentialInvalidator interface {
	InvalidateCredentials(ctx context.Context) error
}
