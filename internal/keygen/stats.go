package keygen

import (
	"context"
	"net/url"

	"golang.org/x/sync/errgroup"
)

// Stats holds the total count of each resource type.
type Stats struct {
	Products int `json:"products"`
	Policies int `json:"policies"`
	Licenses int `json:"licenses"`
	Users    int `json:"users"`
	Machines int `json:"machines"`
}

// Stats counts every resource type concurrently with single-item pages.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	g, ctx := errgroup.WithContext(ctx)

	targets := map[string]*int{
		TypeProducts: &stats.Products,
		TypePolicies: &stats.Policies,
		TypeLicenses: &stats.Licenses,
		TypeUsers:    &stats.Users,
		TypeMachines: &stats.Machines,
	}
	for typ, dst := range targets {
		g.Go(func() error {
			n, err := c.count(ctx, typ)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) count(ctx context.Context, resourceType string) (int, error) {
	params := url.Values{"page[size]": {"1"}, "page[number]": {"1"}}
	resp, err := c.api.Get(ctx, resourceType, params)
	if err != nil {
		return 0, err
	}
	doc, err := resp.Document()
	if err != nil {
		return 0, err
	}
	if n, ok := doc.Count(); ok {
		return n, nil
	}
	items, err := doc.Many()
	if err != nil {
		return 0, err
	}
	return len(items), nil
}
