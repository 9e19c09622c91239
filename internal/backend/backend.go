package backend

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL    = "https://app.profilespike.com/api"
	userAgent = "profilespike/spike-session"
	// Max value for entity listing per page.
	perPage = "100"

	defaultTimeout = 10 * time.Second
)

// Client talks to the ProfileSpike backend: the auth endpoints and the
// entities API.
type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func New(logger *zap.Logger, token string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		token:  token,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

func (c *Client) Whoami(ctx context.Context) (*Identity, error) {
	return c.whoami(ctx)
}

func (c *Client) FindProfilesByOwner(ctx context.Context, owner string) ([]*Profile, error) {
	return c.findProfiles(ctx, owner)
}

func (c *Client) CreateProfile(ctx context.Context, data ProfileData) (*Profile, error) {
	return c.createProfile(ctx, data)
}

func (c *Client) UpdateProfile(ctx context.Context, id string, data ProfileData) (*Profile, error) {
	return c.updateProfile(ctx, id, data)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.logout(ctx)
}
