package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/profilespike/spike-session/internal/backend"
	"github.com/profilespike/spike-session/internal/gate"
	"github.com/profilespike/spike-session/internal/logger"
	"github.com/profilespike/spike-session/internal/secrets"
	"github.com/profilespike/spike-session/internal/session"
)

const (
	providerAPI    = "api"
	providerKratos = "kratos"
)

// application is everything a command needs, wired once per invocation.
type application struct {
	config  *Config
	logger  *zap.Logger
	client  *backend.Client
	session *session.Controller
	shell   *gate.Shell
}

func newApplication() (*application, error) {
	config, err := getConfig()
	if err != nil {
		return nil, fmt.Errorf("getting a config: %w", err)
	}

	provider := strings.ToLower(strings.TrimSpace(config.Identity.Provider))
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"), provider)
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	token, err := secrets.LoadOptional(secrets.Source{
		Name: "backend token",
		File: config.TokenFile,
		Env:  "SPIKE_TOKEN",
	})
	if err != nil {
		return nil, err
	}

	client := backend.New(l, token)
	if config.APIURL != "" {
		client.APIURL = strings.TrimRight(config.APIURL, "/")
	}
	if config.UserAgent != "" {
		client.UserAgent = config.UserAgent
	}

	lookup, err := newLookup(config, client, l)
	if err != nil {
		return nil, err
	}

	controller := session.New(lookup,
		session.WithLogger(l),
		session.WithTimeout(config.Timeout),
	)

	return &application{
		config:  config,
		logger:  l,
		client:  client,
		session: controller,
		shell:   gate.NewShell(config.PublicPaths),
	}, nil
}

func newLookup(config *Config, client *backend.Client, l *zap.Logger) (session.Lookup, error) {
	identity := config.Identity

	switch strings.ToLower(strings.TrimSpace(identity.Provider)) {
	case "", providerAPI:
		return client, nil
	case providerKratos:
		if strings.TrimSpace(identity.KratosURL) == "" {
			return nil, fmt.Errorf("identity.kratos-url is required for the kratos provider")
		}

		token, err := secrets.LoadOptional(secrets.Source{Name: "kratos session token", File: identity.SessionTokenFile})
		if err != nil {
			return nil, err
		}
		cookie, err := secrets.LoadOptional(secrets.Source{Name: "kratos session cookie", File: identity.SessionCookieFile})
		if err != nil {
			return nil, err
		}

		kratos := backend.NewKratosIdentity(l, identity.KratosURL,
			backend.WithSessionToken(token),
			backend.WithSessionCookie(cookie),
		)

		return &backend.Composite{Identities: kratos, Profiles: client}, nil
	default:
		return nil, fmt.Errorf("unsupported identity provider: %s", identity.Provider)
	}
}

// provide runs the initial fetch and installs the controller in ctx.
func (a *application) provide(ctx context.Context) context.Context {
	a.session.Initialize(ctx)
	return session.NewContext(ctx, a.session)
}

type snapshotView struct {
	LoadState string            `json:"load_state"`
	Identity  *backend.Identity `json:"identity"`
	Profile   *backend.Profile  `json:"profile"`
	Overlay   string            `json:"overlay"`
}

func printSnapshot(w io.Writer, s session.State) error {
	view := snapshotView{
		LoadState: s.LoadState.String(),
		Identity:  s.Identity,
		Profile:   s.Profile,
		Overlay:   gate.LoginOrOnboard(s.Identity, s.Profile).String(),
	}

	pretty, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(pretty))
	return err
}
