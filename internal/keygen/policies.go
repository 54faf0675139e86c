package keygen

import (
	"context"
	"errors"
	"time"

	"github.com/telhawk-systems/keyhawk/internal/api"
)

// Policy is the attribute set of a policy resource. Duration is in seconds;
// nil means licenses never expire.
type Policy struct {
	Name                   string         `json:"name"`
	Duration               *int           `json:"duration"`
	Strict                 bool           `json:"strict"`
	Floating               bool           `json:"floating"`
	Protected              bool           `json:"protected"`
	Scheme                 string         `json:"scheme,omitempty"`
	MaxMachines            *int           `json:"maxMachines"`
	MaxUses                *int           `json:"maxUses"`
	ExpirationStrategy     string         `json:"expirationStrategy,omitempty"`
	AuthenticationStrategy string         `json:"authenticationStrategy,omitempty"`
	Metadata               map[string]any `json:"metadata,omitempty"`
	Created                time.Time      `json:"created"`
	Updated                time.Time      `json:"updated"`
}

// SearchFields implements Searchable.
func (p Policy) SearchFields() []string {
	return []string{p.Name, p.Scheme}
}

// PolicyInput holds writable policy attributes.
type PolicyInput struct {
	Name                   string         `json:"name,omitempty"`
	Duration               *int           `json:"duration,omitempty"`
	Strict                 *bool          `json:"strict,omitempty"`
	Floating               *bool          `json:"floating,omitempty"`
	Protected              *bool          `json:"protected,omitempty"`
	Scheme                 string         `json:"scheme,omitempty"`
	MaxMachines            *int           `json:"maxMachines,omitempty"`
	MaxUses                *int           `json:"maxUses,omitempty"`
	ExpirationStrategy     string         `json:"expirationStrategy,omitempty"`
	AuthenticationStrategy string         `json:"authenticationStrategy,omitempty"`
	Metadata               map[string]any `json:"metadata,omitempty"`
}

// ErrProductRequired is returned when a policy is created without a product.
var ErrProductRequired = errors.New("product ID is required")

// PoliciesService manages policies.
type PoliciesService struct {
	s service[Policy]
}

// List lists policies; a non-empty productID filters by product.
func (p *PoliciesService) List(ctx context.Context, productID string, opts *ListOptions) (*List[Policy], error) {
	return p.s.list(ctx, withFilter(opts, "product", productID))
}

func (p *PoliciesService) Get(ctx context.Context, id string) (*Resource[Policy], error) {
	return p.s.get(ctx, id, "product")
}

func (p *PoliciesService) Create(ctx context.Context, productID string, in PolicyInput) (*Resource[Policy], error) {
	if productID == "" {
		return nil, ErrProductRequired
	}
	return p.s.create(ctx, in, map[string]api.Relationship{
		"product": api.ToOne(TypeProducts, productID),
	})
}

func (p *PoliciesService) Update(ctx context.Context, id string, in PolicyInput) (*Resource[Policy], error) {
	return p.s.update(ctx, id, in, nil)
}

func (p *PoliciesService) Delete(ctx context.Context, id string) error {
	return p.s.delete(ctx, id)
}

// withFilter returns a copy of opts with key=value added when value is set.
func withFilter(opts *ListOptions, key, value string) *ListOptions {
	if value == "" {
		return opts
	}
	out := ListOptions{}
	if opts != nil {
		out = *opts
	}
	filters := make(map[string]string, len(out.Filters)+1)
	for k, v := range out.Filters {
		filters[k] = v
	}
	filters[key] = value
	out.Filters = filters
	return &out
}
