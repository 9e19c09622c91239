package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	apiWhoamiPath = "/auth/me"
	apiLogoutPath = "/auth/logout"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Identity is the authenticated principal returned by whoami.
type Identity struct {
	ID       string `json:"id" mapstructure:"id"`
	Email    string `json:"email" mapstructure:"email"`
	FullName string `json:"full_name,omitempty" mapstructure:"full_name"`
	Role     Role   `json:"role,omitempty" mapstructure:"role"`
	Status   Status `json:"status,omitempty" mapstructure:"status"`
}

// OwnerKey is the value profiles are filtered by: the email, or the id for
// principals that have none.
func (i *Identity) OwnerKey() string {
	if i == nil {
		return ""
	}
	if email := strings.TrimSpace(i.Email); email != "" {
		return email
	}
	return strings.TrimSpace(i.ID)
}

// Inactive reports whether the account was switched off. A missing status
// counts as active.
func (i *Identity) Inactive() bool {
	return i != nil && Status(strings.ToLower(string(i.Status))) == StatusInactive
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

func (c *Client) whoami(ctx context.Context) (*Identity, error) {
	apiURLWhoami := fmt.Sprintf("%s%s", c.APIURL, apiWhoamiPath)

	var identity *Identity
	if err := c.getJSON(ctx, apiURLWhoami, nil, &identity); err != nil {
		return nil, err
	}

	if identity == nil || strings.TrimSpace(identity.ID) == "" {
		return nil, nil
	}

	return identity, nil
}

func (c *Client) logout(ctx context.Context) error {
	apiURLLogout := fmt.Sprintf("%s%s", c.APIURL, apiLogoutPath)

	err := c.sendJSON(ctx, http.MethodPost, apiURLLogout, nil, nil)
	if err != nil && !errors.Is(err, ErrUnauthenticated) {
		return fmt.Errorf("logout: %w", err)
	}

	return nil
}
