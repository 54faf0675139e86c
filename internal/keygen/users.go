package keygen

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// User is the attribute set of a user resource.
type User struct {
	FullName  string         `json:"fullName,omitempty"`
	FirstName string         `json:"firstName,omitempty"`
	LastName  string         `json:"lastName,omitempty"`
	Email     string         `json:"email"`
	Status    string         `json:"status,omitempty"`
	Role      string         `json:"role,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Created   time.Time      `json:"created"`
	Updated   time.Time      `json:"updated"`
}

// DisplayName returns the full name, falling back to the email.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return u.Email
}

// SearchFields implements Searchable.
func (u User) SearchFields() []string {
	return []string{u.DisplayName(), u.Email}
}

// UserInput holds writable user attributes.
type UserInput struct {
	FirstName string         `json:"firstName,omitempty"`
	LastName  string         `json:"lastName,omitempty"`
	Email     string         `json:"email,omitempty"`
	Password  string         `json:"password,omitempty"`
	Role      string         `json:"role,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// UsersService manages users.
type UsersService struct {
	s service[User]
}

// List lists users filtered by status and role when set.
func (u *UsersService) List(ctx context.Context, status, role string, opts *ListOptions) (*List[User], error) {
	opts = withFilter(opts, "status", status)
	opts = withFilter(opts, "roles[]", role)
	return u.s.list(ctx, opts)
}

func (u *UsersService) Get(ctx context.Context, id string) (*Resource[User], error) {
	return u.s.get(ctx, id)
}

func (u *UsersService) Create(ctx context.Context, in UserInput) (*Resource[User], error) {
	return u.s.create(ctx, in, nil)
}

func (u *UsersService) Update(ctx context.Context, id string, in UserInput) (*Resource[User], error) {
	return u.s.update(ctx, id, in, nil)
}

func (u *UsersService) Delete(ctx context.Context, id string) error {
	return u.s.delete(ctx, id)
}

func (u *UsersService) Ban(ctx context.Context, id string) (*Resource[User], error) {
	res, _, err := u.s.action(ctx, http.MethodPost, id, "ban", nil)
	return res, err
}

func (u *UsersService) Unban(ctx context.Context, id string) (*Resource[User], error) {
	res, _, err := u.s.action(ctx, http.MethodPost, id, "unban", nil)
	return res, err
}
