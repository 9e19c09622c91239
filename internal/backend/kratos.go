package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	kratos "github.com/ory/kratos-client-go"
	"go.uber.org/zap"
)

const kratosInactiveState = "inactive"

// KratosIdentity resolves the current principal through an Ory Kratos
// frontend API instead of the backend's own whoami endpoint.
type KratosIdentity struct {
	client       *kratos.APIClient
	logger       *zap.Logger
	sessionToken string
	cookie       string
	timeout      time.Duration
}

type KratosOption func(*KratosIdentity)

// WithSessionToken authenticates with an X-Session-Token (API flows).
func WithSessionToken(token string) KratosOption {
	return func(k *KratosIdentity) { k.sessionToken = strings.TrimSpace(token) }
}

// WithSessionCookie authenticates with a browser session cookie.
func WithSessionCookie(cookie string) KratosOption {
	return func(k *KratosIdentity) { k.cookie = strings.TrimSpace(cookie) }
}

func NewKratosIdentity(logger *zap.Logger, baseURL string, opts ...KratosOption) *KratosIdentity {
	if logger == nil {
		logger = zap.NewNop()
	}

	configuration := kratos.NewConfiguration()
	configuration.Servers = []kratos.ServerConfiguration{
		{URL: strings.TrimRight(baseURL, "/")},
	}
	configuration.HTTPClient = &http.Client{Timeout: defaultTimeout}

	k := &KratosIdentity{
		client:  kratos.NewAPIClient(configuration),
		logger:  logger,
		timeout: defaultTimeout,
	}

	for _, opt := range opts {
		opt(k)
	}

	return k
}

// Whoami returns nil identity with ErrUnauthenticated when Kratos has no
// active session for the configured credentials.
func (k *KratosIdentity) Whoami(ctx context.Context) (*Identity, error) {
	if k.sessionToken == "" && k.cookie == "" {
		return nil, ErrUnauthenticated
	}

	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	req := k.client.FrontendAPI.ToSession(ctx)
	if k.sessionToken != "" {
		req = req.XSessionToken(k.sessionToken)
	}
	if k.cookie != "" {
		req = req.Cookie(k.cookie)
	}

	session, resp, err := req.Execute()
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				return nil, ErrUnauthenticated
			}
			return nil, fmt.Errorf("%w: kratos returned %s", ErrBadStatus, resp.Status)
		}
		return nil, fmt.Errorf("kratos whoami: %w", err)
	}

	if session == nil || !session.GetActive() || session.Identity == nil {
		k.logger.Debug("kratos session is not usable", zap.Bool("has_session", session != nil))
		return nil, ErrUnauthenticated
	}

	return identityFromKratos(session.Identity), nil
}

func identityFromKratos(ki *kratos.Identity) *Identity {
	identity := &Identity{
		ID:     ki.Id,
		Role:   RoleUser,
		Status: StatusActive,
	}

	if strings.EqualFold(string(ki.GetState()), kratosInactiveState) {
		identity.Status = StatusInactive
	}

	traits, ok := ki.GetTraits().(map[string]interface{})
	if !ok {
		return identity
	}

	identity.Email = valueAsString(traits["email"])
	if role := valueAsString(traits["role"]); role != "" {
		identity.Role = Role(strings.ToLower(role))
	}

	switch name := traits["name"].(type) {
	case string:
		identity.FullName = strings.TrimSpace(name)
	case map[string]interface{}:
		identity.FullName = strings.TrimSpace(valueAsString(name["first"]) + " " + valueAsString(name["last"]))
	}

	return identity
}

func valueAsString(v any) string {
	if v == nil {
		return ""
	}

	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed)
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
