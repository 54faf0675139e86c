package keygen

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/telhawk-systems/keyhawk/internal/api"
)

// Machine is the attribute set of a machine (activation) resource.
type Machine struct {
	Fingerprint     string         `json:"fingerprint"`
	Name            string         `json:"name,omitempty"`
	IP              string         `json:"ip,omitempty"`
	Hostname        string         `json:"hostname,omitempty"`
	Platform        string         `json:"platform,omitempty"`
	Cores           *int           `json:"cores"`
	HeartbeatStatus string         `json:"heartbeatStatus,omitempty"`
	LastHeartbeat   *time.Time     `json:"lastHeartbeat"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	Created         time.Time      `json:"created"`
	Updated         time.Time      `json:"updated"`
}

// SearchFields implements Searchable.
func (m Machine) SearchFields() []string {
	return []string{m.Fingerprint, m.Name, m.Hostname}
}

// MachineInput holds writable machine attributes.
type MachineInput struct {
	Fingerprint string         `json:"fingerprint,omitempty"`
	Name        string         `json:"name,omitempty"`
	IP          string         `json:"ip,omitempty"`
	Hostname    string         `json:"hostname,omitempty"`
	Platform    string         `json:"platform,omitempty"`
	Cores       *int           `json:"cores,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// MachineFilter narrows machine listings.
type MachineFilter struct {
	LicenseID   string
	UserID      string
	Fingerprint string
}

var (
	ErrLicenseRequired     = errors.New("license ID is required")
	ErrFingerprintRequired = errors.New("fingerprint is required")
)

// MachinesService manages machine activations.
type MachinesService struct {
	s service[Machine]
}

func (m *MachinesService) List(ctx context.Context, f MachineFilter, opts *ListOptions) (*List[Machine], error) {
	opts = withFilter(opts, "license", f.LicenseID)
	opts = withFilter(opts, "user", f.UserID)
	opts = withFilter(opts, "fingerprint", f.Fingerprint)
	return m.s.list(ctx, opts)
}

func (m *MachinesService) Get(ctx context.Context, id string) (*Resource[Machine], error) {
	return m.s.get(ctx, id, "license")
}

// Create activates a machine for licenseID.
func (m *MachinesService) Create(ctx context.Context, licenseID string, in MachineInput) (*Resource[Machine], error) {
	if licenseID == "" {
		return nil, ErrLicenseRequired
	}
	if in.Fingerprint == "" {
		return nil, ErrFingerprintRequired
	}
	return m.s.create(ctx, in, map[string]api.Relationship{
		"license": api.ToOne(TypeLicenses, licenseID),
	})
}

func (m *MachinesService) Update(ctx context.Context, id string, in MachineInput) (*Resource[Machine], error) {
	return m.s.update(ctx, id, in, nil)
}

// Delete deactivates the machine.
func (m *MachinesService) Delete(ctx context.Context, id string) error {
	return m.s.delete(ctx, id)
}

// ResetHeartbeat resets the heartbeat monitor of the machine.
func (m *MachinesService) ResetHeartbeat(ctx context.Context, id string) (*Resource[Machine], error) {
	res, _, err := m.s.action(ctx, http.MethodPost, id, "reset", nil)
	return res, err
}
