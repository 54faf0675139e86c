package keygen

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/telhawk-systems/keyhawk/internal/api"
)

// Token is the attribute set of a token resource. The secret Token value is
// only present in the response that minted it.
type Token struct {
	Kind    string     `json:"kind"`
	Name    string     `json:"name,omitempty"`
	Token   string     `json:"token,omitempty"`
	Expiry  *time.Time `json:"expiry"`
	Created time.Time  `json:"created"`
}

// Profile is the authenticated bearer as returned by the me endpoint. Admins
// and users carry the user fields; product tokens carry Name.
type Profile struct {
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	Name     string `json:"name,omitempty"`
}

// ErrMissingToken is returned when a login response carries no token.
var ErrMissingToken = errors.New("login response contained no token")

// TokensService mints tokens and describes the current bearer.
type TokensService struct {
	api *api.Client
}

// Login exchanges email and password for a new bearer token via HTTP Basic.
// The underlying client must carry the account but no token, otherwise the
// stored bearer would replace the Basic credentials.
func (t *TokensService) Login(ctx context.Context, email, password string) (*Resource[Token], error) {
	basic := base64.StdEncoding.EncodeToString([]byte(email + ":" + password))
	resp, err := t.api.Do(ctx, api.Request{
		Method:   http.MethodPost,
		Endpoint: TypeTokens,
		Headers:  http.Header{"Authorization": {"Basic " + basic}},
	})
	if err != nil {
		return nil, err
	}
	tok, err := decodeOne[Token](resp)
	if err != nil {
		return nil, err
	}
	if tok.Attributes.Token == "" {
		return nil, ErrMissingToken
	}
	return tok, nil
}

// Me returns the resource the current token belongs to.
func (t *TokensService) Me(ctx context.Context) (*Resource[Profile], error) {
	resp, err := t.api.Get(ctx, "me", nil)
	if err != nil {
		return nil, err
	}
	return decodeOne[Profile](resp)
}
