package keygen

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/telhawk-systems/keyhawk/internal/api"
)

// License is the attribute set of a license resource.
type License struct {
	Name          string         `json:"name,omitempty"`
	Key           string         `json:"key"`
	Expiry        *time.Time     `json:"expiry"`
	Status        string         `json:"status"`
	Uses          int            `json:"uses"`
	Suspended     bool           `json:"suspended"`
	Protected     bool           `json:"protected"`
	MaxMachines   *int           `json:"maxMachines"`
	MaxUses       *int           `json:"maxUses"`
	LastValidated *time.Time     `json:"lastValidated"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Created       time.Time      `json:"created"`
	Updated       time.Time      `json:"updated"`
}

// SearchFields implements Searchable.
func (l License) SearchFields() []string {
	return []string{l.Name, l.Key}
}

// LicenseInput holds writable license attributes.
type LicenseInput struct {
	Name        string         `json:"name,omitempty"`
	Key         string         `json:"key,omitempty"`
	Expiry      *time.Time     `json:"expiry,omitempty"`
	Protected   *bool          `json:"protected,omitempty"`
	MaxMachines *int           `json:"maxMachines,omitempty"`
	MaxUses     *int           `json:"maxUses,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// LicenseFilter narrows license listings.
type LicenseFilter struct {
	ProductID string
	PolicyID  string
	UserID    string
	Status    string
}

// Validation is the outcome of a license validation.
type Validation struct {
	Valid   bool
	Detail  string
	Code    string
	License *Resource[License]
}

// ErrPolicyRequired is returned when a license is created without a policy.
var ErrPolicyRequired = errors.New("policy ID is required")

// LicensesService manages licenses and their lifecycle actions.
type LicensesService struct {
	s service[License]
}

func (l *LicensesService) List(ctx context.Context, f LicenseFilter, opts *ListOptions) (*List[License], error) {
	opts = withFilter(opts, "product", f.ProductID)
	opts = withFilter(opts, "policy", f.PolicyID)
	opts = withFilter(opts, "user", f.UserID)
	opts = withFilter(opts, "status", f.Status)
	return l.s.list(ctx, opts)
}

func (l *LicensesService) Get(ctx context.Context, id string) (*Resource[License], error) {
	return l.s.get(ctx, id, "policy", "product")
}

// Create creates a license under policyID, optionally owned by userID.
func (l *LicensesService) Create(ctx context.Context, policyID, userID string, in LicenseInput) (*Resource[License], error) {
	if policyID == "" {
		return nil, ErrPolicyRequired
	}
	rels := map[string]api.Relationship{
		"policy": api.ToOne(TypePolicies, policyID),
	}
	if userID != "" {
		rels["user"] = api.ToOne(TypeUsers, userID)
	}
	return l.s.create(ctx, in, rels)
}

func (l *LicensesService) Update(ctx context.Context, id string, in LicenseInput) (*Resource[License], error) {
	return l.s.update(ctx, id, in, nil)
}

func (l *LicensesService) Delete(ctx context.Context, id string) error {
	return l.s.delete(ctx, id)
}

// Validate validates a license by ID.
func (l *LicensesService) Validate(ctx context.Context, id string) (*Validation, error) {
	res, doc, err := l.s.action(ctx, http.MethodPost, id, "validate", nil)
	if err != nil {
		return nil, err
	}
	v := &Validation{License: res}
	if valid, ok := doc.Meta["valid"].(bool); ok {
		v.Valid = valid
	}
	v.Detail, _ = doc.Meta["detail"].(string)
	v.Code, _ = doc.Meta["code"].(string)
	return v, nil
}

func (l *LicensesService) Suspend(ctx context.Context, id string) (*Resource[License], error) {
	res, _, err := l.s.action(ctx, http.MethodPost, id, "suspend", nil)
	return res, err
}

func (l *LicensesService) Reinstate(ctx context.Context, id string) (*Resource[License], error) {
	res, _, err := l.s.action(ctx, http.MethodPost, id, "reinstate", nil)
	return res, err
}

// Renew extends the expiry by the policy duration.
func (l *LicensesService) Renew(ctx context.Context, id string) (*Resource[License], error) {
	res, _, err := l.s.action(ctx, http.MethodPost, id, "renew", nil)
	return res, err
}

// Revoke permanently revokes the license.
func (l *LicensesService) Revoke(ctx context.Context, id string) error {
	_, _, err := l.s.action(ctx, http.MethodDelete, id, "revoke", nil)
	return err
}

func (l *LicensesService) IncrementUsage(ctx context.Context, id string, n int) (*Resource[License], error) {
	res, _, err := l.s.action(ctx, http.MethodPost, id, "increment-usage", usageBody("increment", n))
	return res, err
}

func (l *LicensesService) DecrementUsage(ctx context.Context, id string, n int) (*Resource[License], error) {
	res, _, err := l.s.action(ctx, http.MethodPost, id, "decrement-usage", usageBody("decrement", n))
	return res, err
}

func (l *LicensesService) ResetUsage(ctx context.Context, id string) (*Resource[License], error) {
	res, _, err := l.s.action(ctx, http.MethodPost, id, "reset-usage", nil)
	return res, err
}

func usageBody(key string, n int) any {
	if n <= 0 {
		n = 1
	}
	return map[string]any{"meta": map[string]int{key: n}}
}
