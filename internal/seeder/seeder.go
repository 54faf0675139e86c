// Package seeder fills a licensing account with fake demo data.
package seeder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/telhawk-systems/keyhawk/internal/keygen"
	"github.com/telhawk-systems/keyhawk/internal/logging"
)

// Config controls how much data is generated.
type Config struct {
	Products           int
	PoliciesPerProduct int
	Users              int
	LicensesPerPolicy  int
	MachinesPerLicense int
	Seed               int64
}

// DefaultConfig returns a small demo dataset.
func DefaultConfig() Config {
	return Config{
		Products:           2,
		PoliciesPerProduct: 2,
		Users:              5,
		LicensesPerPolicy:  3,
		MachinesPerLicense: 1,
		Seed:               time.Now().UnixNano(),
	}
}

// Plan is the full set of resources to create.
type Plan struct {
	Users    []keygen.UserInput `json:"users"`
	Products []ProductPlan      `json:"products"`
}

type ProductPlan struct {
	Product  keygen.ProductInput `json:"product"`
	Policies []PolicyPlan        `json:"policies"`
}

type PolicyPlan struct {
	Policy   keygen.PolicyInput `json:"policy"`
	Licenses []LicensePlan      `json:"licenses"`
}

type LicensePlan struct {
	License keygen.LicenseInput `json:"license"`
	// User indexes Plan.Users; -1 leaves the license unassigned.
	User     int                   `json:"user"`
	Machines []keygen.MachineInput `json:"machines,omitempty"`
}

// Counts tallies resources by type.
type Counts struct {
	Products int `json:"products"`
	Policies int `json:"policies"`
	Users    int `json:"users"`
	Licenses int `json:"licenses"`
	Machines int `json:"machines"`
}

func (c Counts) Total() int {
	return c.Products + c.Policies + c.Users + c.Licenses + c.Machines
}

// Counts returns how many resources the plan creates.
func (p Plan) Counts() Counts {
	c := Counts{Users: len(p.Users), Products: len(p.Products)}
	for _, prod := range p.Products {
		c.Policies += len(prod.Policies)
		for _, pol := range prod.Policies {
			c.Licenses += len(pol.Licenses)
			for _, lic := range pol.Licenses {
				c.Machines += len(lic.Machines)
			}
		}
	}
	return c
}

var (
	platforms  = []string{"linux", "macos", "windows"}
	schemes    = []string{"", "ED25519_SIGN", "RSA_2048_PKCS1_SIGN_V2"}
	strategies = []string{"RESTRICT_ACCESS", "REVOKE_ACCESS", "MAINTAIN_ACCESS"}
)

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func seededMetadata() map[string]any {
	return map[string]any{"seeded": true}
}

// Generate builds a plan. The same Config always yields the same plan.
func Generate(cfg Config) Plan {
	f := gofakeit.New(cfg.Seed)
	var plan Plan

	for i := 0; i < cfg.Users; i++ {
		first, last := f.FirstName(), f.LastName()
		plan.Users = append(plan.Users, keygen.UserInput{
			FirstName: first,
			LastName:  last,
			Email:     strings.ToLower(fmt.Sprintf("%s.%s.%d@%s", first, last, i, f.DomainName())),
			Password:  f.Password(true, true, true, false, false, 16),
			Role:      "user",
			Metadata:  seededMetadata(),
		})
	}

	for i := 0; i < cfg.Products; i++ {
		name := f.AppName()
		prod := ProductPlan{Product: keygen.ProductInput{
			Name:                 name,
			Code:                 fmt.Sprintf("%s-%d", strings.ToLower(strings.ReplaceAll(name, " ", "-")), i),
			URL:                  f.URL(),
			DistributionStrategy: "LICENSED",
			Platforms:            []string{f.RandomString(platforms)},
			Metadata:             seededMetadata(),
		}}

		for j := 0; j < cfg.PoliciesPerProduct; j++ {
			duration := f.IntRange(30, 365) * 24 * 60 * 60
			maxMachines := f.IntRange(1, 10)
			floating := maxMachines > 1
			pol := PolicyPlan{Policy: keygen.PolicyInput{
				Name:               capitalize(f.HackerAdjective()) + " Plan",
				Duration:           &duration,
				Floating:           &floating,
				MaxMachines:        &maxMachines,
				Scheme:             f.RandomString(schemes),
				ExpirationStrategy: f.RandomString(strategies),
				Metadata:           seededMetadata(),
			}}

			for k := 0; k < cfg.LicensesPerPolicy; k++ {
				user := -1
				if len(plan.Users) > 0 && f.Bool() {
					user = f.IntRange(0, len(plan.Users)-1)
				}
				lic := LicensePlan{
					License: keygen.LicenseInput{
						Name:     fmt.Sprintf("%s license", f.Company()),
						Metadata: seededMetadata(),
					},
					User: user,
				}
				for m := 0; m < cfg.MachinesPerLicense && m < maxMachines; m++ {
					cores := f.RandomInt([]int{2, 4, 8, 16})
					lic.Machines = append(lic.Machines, keygen.MachineInput{
						Fingerprint: f.UUID(),
						Name:        f.Username() + "-workstation",
						IP:          f.IPv4Address(),
						Hostname:    strings.ToLower(f.Username()) + ".local",
						Platform:    f.RandomString(platforms),
						Cores:       &cores,
						Metadata:    seededMetadata(),
					})
				}
				pol.Licenses = append(pol.Licenses, lic)
			}
			prod.Policies = append(prod.Policies, pol)
		}
		plan.Products = append(plan.Products, prod)
	}

	return plan
}

// Runner creates a plan through the licensing API.
type Runner struct {
	client *keygen.Client
	logger *logging.Logger
}

func NewRunner(client *keygen.Client, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Runner{client: client, logger: logger}
}

// Run creates parents before children and stops at the first failure,
// returning what was created so far.
func (r *Runner) Run(ctx context.Context, plan Plan) (Counts, error) {
	var created Counts

	userIDs := make([]string, len(plan.Users))
	for i, in := range plan.Users {
		u, err := r.client.Users.Create(ctx, in)
		if err != nil {
			return created, fmt.Errorf("failed to create user %s: %w", in.Email, err)
		}
		userIDs[i] = u.ID
		created.Users++
	}

	for _, prod := range plan.Products {
		p, err := r.client.Products.Create(ctx, prod.Product)
		if err != nil {
			return created, fmt.Errorf("failed to create product %s: %w", prod.Product.Name, err)
		}
		created.Products++
		r.logger.DebugContext(ctx, "seeded product", logging.Resource(keygen.TypeProducts), "id", p.ID)

		for _, pol := range prod.Policies {
			policy, err := r.client.Policies.Create(ctx, p.ID, pol.Policy)
			if err != nil {
				return created, fmt.Errorf("failed to create policy %s: %w", pol.Policy.Name, err)
			}
			created.Policies++

			for _, lic := range pol.Licenses {
				userID := ""
				if lic.User >= 0 && lic.User < len(userIDs) {
					userID = userIDs[lic.User]
				}
				license, err := r.client.Licenses.Create(ctx, policy.ID, userID, lic.License)
				if err != nil {
					return created, fmt.Errorf("failed to create license: %w", err)
				}
				created.Licenses++

				for _, m := range lic.Machines {
					if _, err := r.client.Machines.Create(ctx, license.ID, m); err != nil {
						return created, fmt.Errorf("failed to create machine %s: %w", m.Fingerprint, err)
					}
					created.Machines++
				}
			}
		}
	}

	r.logger.InfoContext(ctx, "seeding complete", "created", created.Total())
	return created, nil
}
