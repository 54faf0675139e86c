// Package keygen provides typed access to the licensing API resources
// (products, policies, licenses, users, machines and tokens) on top of the
// JSON:API client in internal/api.
package keygen

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/telhawk-systems/keyhawk/internal/api"
)

// Resource type names as used in JSON:API documents and URL paths.
const (
	TypeProducts = "products"
	TypePolicies = "policies"
	TypeLicenses = "licenses"
	TypeUsers    = "users"
	TypeMachines = "machines"
	TypeTokens   = "tokens"
)

// ResourceTypes lists the manageable resource types in display order.
var ResourceTypes = []string{TypeProducts, TypePolicies, TypeLicenses, TypeUsers, TypeMachines}

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// Client groups the resource services.
type Client struct {
	api *api.Client

	Products *ProductsService
	Policies *PoliciesService
	Licenses *LicensesService
	Users    *UsersService
	Machines *MachinesService
	Tokens   *TokensService
}

// New creates a resource client backed by c.
func New(c *api.Client) *Client {
	return &Client{
		api:      c,
		Products: &ProductsService{service[Product]{api: c, typ: TypeProducts}},
		Policies: &PoliciesService{service[Policy]{api: c, typ: TypePolicies}},
		Licenses: &LicensesService{service[License]{api: c, typ: TypeLicenses}},
		Users:    &UsersService{service[User]{api: c, typ: TypeUsers}},
		Machines: &MachinesService{service[Machine]{api: c, typ: TypeMachines}},
		Tokens:   &TokensService{api: c},
	}
}

// API returns the underlying API client.
func (c *Client) API() *api.Client {
	return c.api
}

// ListOptions controls pagination, filtering and sideloading of list calls.
type ListOptions struct {
	PageSize   int
	PageNumber int
	Filters    map[string]string
	Include    []string
}

// Params renders the options as query parameters. Page size defaults to 25
// and is clamped to 100.
func (o *ListOptions) Params() url.Values {
	params := url.Values{}
	size, number := DefaultPageSize, 1
	if o != nil {
		if o.PageSize > 0 {
			size = min(o.PageSize, MaxPageSize)
		}
		if o.PageNumber > 0 {
			number = o.PageNumber
		}
	}
	params.Set("page[size]", strconv.Itoa(size))
	params.Set("page[number]", strconv.Itoa(number))

	if o == nil {
		return params
	}
	keys := make([]string, 0, len(o.Filters))
	for k := range o.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := o.Filters[k]; v != "" {
			params.Set(k, v)
		}
	}
	if len(o.Include) > 0 {
		params.Set("include", strings.Join(o.Include, ","))
	}
	return params
}

// Resource is a decoded JSON:API resource with typed attributes.
type Resource[A any] struct {
	ID            string                      `json:"id"`
	Type          string                      `json:"type"`
	Attributes    A                           `json:"attributes"`
	Relationships map[string]api.Relationship `json:"relationships,omitempty"`
}

// RelatedID returns the ID of a to-one relationship, or "" when unset.
func (r *Resource[A]) RelatedID(name string) string {
	rel, ok := r.Relationships[name]
	if !ok {
		return ""
	}
	id, ok := rel.Identifier()
	if !ok {
		return ""
	}
	return id.ID
}

// List is one page of a resource collection.
type List[A any] struct {
	Items    []Resource[A]
	Meta     map[string]any
	Links    map[string]any
	Included []api.Resource
}

// FindIncluded looks up a sideloaded resource by type and ID.
func (l *List[A]) FindIncluded(resourceType, id string) (api.Resource, bool) {
	doc := api.Document{Included: l.Included}
	return doc.FindIncluded(resourceType, id)
}

// Count returns meta.count when reported, else the number of items.
func (l *List[A]) Count() int {
	doc := api.Document{Meta: l.Meta}
	if n, ok := doc.Count(); ok {
		return n
	}
	return len(l.Items)
}

// HasNext reports whether the server advertised a next page.
func (l *List[A]) HasNext() bool {
	next, ok := l.Links["next"]
	return ok && next != nil && next != ""
}

func decodeResource[A any](res api.Resource) (Resource[A], error) {
	out := Resource[A]{
		ID:            res.ID,
		Type:          res.Type,
		Relationships: res.Relationships,
	}
	if err := res.DecodeAttributes(&out.Attributes); err != nil {
		return out, fmt.Errorf("failed to decode %s attributes: %w", res.Type, err)
	}
	return out, nil
}

// service implements the CRUD calls shared by every resource type.
type service[A any] struct {
	api *api.Client
	typ string
}

func (s service[A]) path(id string, parts ...string) string {
	p := s.typ
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func (s service[A]) list(ctx context.Context, opts *ListOptions) (*List[A], error) {
	resp, err := s.api.Get(ctx, s.path(""), opts.Params())
	if err != nil {
		return nil, err
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, err
	}
	items, err := doc.Many()
	if err != nil {
		return nil, err
	}

	list := &List[A]{
		Items:    make([]Resource[A], 0, len(items)),
		Meta:     doc.Meta,
		Links:    doc.Links,
		Included: doc.Included,
	}
	for _, item := range items {
		r, err := decodeResource[A](item)
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, r)
	}
	return list, nil
}

func (s service[A]) get(ctx context.Context, id string, include ...string) (*Resource[A], error) {
	var params url.Values
	if len(include) > 0 {
		params = url.Values{"include": {strings.Join(include, ",")}}
	}
	resp, err := s.api.Get(ctx, s.path(id), params)
	if err != nil {
		return nil, err
	}
	return decodeOne[A](resp)
}

func (s service[A]) create(ctx context.Context, attrs any, rels map[string]api.Relationship) (*Resource[A], error) {
	doc, err := api.NewResourceDocument(s.typ, "", attrs, rels)
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Do(ctx, api.Request{Method: http.MethodPost, Endpoint: s.path(""), Body: doc})
	if err != nil {
		return nil, err
	}
	return decodeOne[A](resp)
}

func (s service[A]) update(ctx context.Context, id string, attrs any, rels map[string]api.Relationship) (*Resource[A], error) {
	doc, err := api.NewResourceDocument(s.typ, id, attrs, rels)
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Do(ctx, api.Request{Method: http.MethodPatch, Endpoint: s.path(id), Body: doc})
	if err != nil {
		return nil, err
	}
	return decodeOne[A](resp)
}

func (s service[A]) delete(ctx context.Context, id string) error {
	_, err := s.api.Do(ctx, api.Request{Method: http.MethodDelete, Endpoint: s.path(id)})
	return err
}

// action invokes POST/DELETE {type}/{id}/actions/{name}. A 204 yields a nil
// resource.
func (s service[A]) action(ctx context.Context, method, id, name string, body any) (*Resource[A], *api.Document, error) {
	resp, err := s.api.Do(ctx, api.Request{Method: method, Endpoint: s.path(id, "actions", name), Body: body})
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode == http.StatusNoContent || len(resp.Body) == 0 {
		return nil, &api.Document{}, nil
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, nil, err
	}
	if len(doc.Data) == 0 || string(doc.Data) == "null" {
		return nil, doc, nil
	}
	res, err := doc.One()
	if err != nil {
		return nil, nil, err
	}
	r, err := decodeResource[A](res)
	if err != nil {
		return nil, nil, err
	}
	return &r, doc, nil
}

func decodeOne[A any](resp *api.Response) (*Resource[A], error) {
	doc, err := resp.Document()
	if err != nil {
		return nil, err
	}
	res, err := doc.One()
	if err != nil {
		return nil, err
	}
	r, err := decodeResource[A](res)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
