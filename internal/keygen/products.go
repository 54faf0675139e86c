package keygen

import (
	"context"
	"time"
)

// Product is the attribute set of a product resource.
type Product struct {
	Name                 string         `json:"name"`
	Code                 string         `json:"code,omitempty"`
	URL                  string         `json:"url,omitempty"`
	DistributionStrategy string         `json:"distributionStrategy,omitempty"`
	Platforms            []string       `json:"platforms,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty"`
	Created              time.Time      `json:"created"`
	Updated              time.Time      `json:"updated"`
}

// SearchFields implements Searchable.
func (p Product) SearchFields() []string {
	return []string{p.Name, p.Code}
}

// ProductInput holds writable product attributes.
type ProductInput struct {
	Name                 string         `json:"name,omitempty"`
	Code                 string         `json:"code,omitempty"`
	URL                  string         `json:"url,omitempty"`
	DistributionStrategy string         `json:"distributionStrategy,omitempty"`
	Platforms            []string       `json:"platforms,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty"`
}

// ProductsService manages products.
type ProductsService struct {
	s service[Product]
}

func (p *ProductsService) List(ctx context.Context, opts *ListOptions) (*List[Product], error) {
	return p.s.list(ctx, opts)
}

func (p *ProductsService) Get(ctx context.Context, id string) (*Resource[Product], error) {
	return p.s.get(ctx, id)
}

func (p *ProductsService) Create(ctx context.Context, in ProductInput) (*Resource[Product], error) {
	return p.s.create(ctx, in, nil)
}

func (p *ProductsService) Update(ctx context.Context, id string, in ProductInput) (*Resource[Product], error) {
	return p.s.update(ctx, id, in, nil)
}

func (p *ProductsService) Delete(ctx context.Context, id string) error {
	return p.s.delete(ctx, id)
}
