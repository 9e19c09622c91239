package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mitchellh/mapstructure"
)

const (
	apiProfilesPath = "/entities/UserProfile"
	ownerField      = "created_by"
)

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPro     Plan = "pro"
	PlanPremium Plan = "premium"
)

// Profile is the product specific onboarding and subscription record of an identity.
type Profile struct {
	ID         string   `json:"id" mapstructure:"id"`
	CreatedBy  string   `json:"created_by" mapstructure:"created_by"`
	Onboarded  *bool    `json:"onboarded,omitempty" mapstructure:"onboarded"`
	Plan       Plan     `json:"plan,omitempty" mapstructure:"plan"`
	Credits    int      `json:"credits" mapstructure:"credits"`
	TargetRole string   `json:"target_role,omitempty" mapstructure:"target_role"`
	Experience string   `json:"experience,omitempty" mapstructure:"experience"`
	Goals      []string `json:"goals,omitempty" mapstructure:"goals"`
}

// IsOnboarded reports false both for an explicit false and an unknown flag.
func (p *Profile) IsOnboarded() bool {
	return p != nil && p.Onboarded != nil && *p.Onboarded
}

// ProfileData is a partial profile used for create and update calls. Nil
// fields are left out of the request.
type ProfileData struct {
	CreatedBy  string   `json:"created_by,omitempty"`
	Onboarded  *bool    `json:"onboarded,omitempty"`
	Plan       Plan     `json:"plan,omitempty"`
	Credits    *int     `json:"credits,omitempty"`
	TargetRole string   `json:"target_role,omitempty"`
	Experience string   `json:"experience,omitempty"`
	Goals      []string `json:"goals,omitempty"`
}

func (c *Client) findProfiles(ctx context.Context, owner string) ([]*Profile, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, errors.New("owner key is required")
	}

	apiURLProfiles := fmt.Sprintf("%s%s", c.APIURL, apiProfilesPath)

	q := url.Values{}
	q.Set(ownerField, owner)
	q.Set("per_page", perPage)

	items, err := c.GetItems(ctx, apiURLProfiles, q)
	if err != nil {
		return nil, err
	}

	var profiles []*Profile
	if err := mapstructure.Decode(items, &profiles); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}

	return profiles, nil
}

func (c *Client) createProfile(ctx context.Context, data ProfileData) (*Profile, error) {
	apiURLProfiles := fmt.Sprintf("%s%s", c.APIURL, apiProfilesPath)

	var profile *Profile
	if err := c.sendJSON(ctx, http.MethodPost, apiURLProfiles, data, &profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	return profile, nil
}

func (c *Client) updateProfile(ctx context.Context, id string, data ProfileData) (*Profile, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("profile id is required")
	}

	apiURLProfile := fmt.Sprintf("%s%s/%s", c.APIURL, apiProfilesPath, url.PathEscape(id))

	var profile *Profile
	if err := c.sendJSON(ctx, http.MethodPut, apiURLProfile, data, &profile); err != nil {
		return nil, fmt.Errorf("update profile %s: %w", id, err)
	}

	return profile, nil
}
