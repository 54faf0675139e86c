package credentials

import (
	"context"

	"github.com/telhawk-systems/keyhawk/internal/api"
	"github.com/telhawk-systems/keyhawk/internal/config"
)

// ProfileStore keeps credentials in a profile of the CLI config file.
type ProfileStore struct {
	cfg     *config.Config
	profile string
}

// NewProfileStore creates a store for the named profile ("" = current).
func NewProfileStore(cfg *config.Config, profile string) *ProfileStore {
	return &ProfileStore{cfg: cfg, profile: cfg.ProfileName(profile)}
}

func (s *ProfileStore) Load(ctx context.Context) (api.Credentials, error) {
	creds := api.Credentials{BaseURL: s.cfg.BaseURL(s.profile)}
	p, err := s.cfg.GetProfile(s.profile)
	if err != nil {
		return creds, nil
	}
	creds.AccountID = p.AccountID
	creds.Token = p.Token
	return creds, nil
}

func (s *ProfileStore) Save(ctx context.Context, creds api.Credentials) error {
	return s.cfg.UpdateProfile(s.profile, func(p *config.Profile) {
		p.AccountID = creds.AccountID
		p.Token = creds.Token
		if creds.BaseURL != "" {
			p.BaseURL = creds.BaseURL
		}
	})
}

// Clear drops the stored token. The account ID stays so a new login only
// needs the password.
func (s *ProfileStore) Clear(ctx context.Context) error {
	if _, err := s.cfg.GetProfile(s.profile); err != nil {
		return nil
	}
	return s.cfg.ClearToken(s.profile)
}
