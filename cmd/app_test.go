package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"go.uber.org/zap"

	"github.com/profilespike/spike-session/internal/backend"
	"github.com/profilespike/spike-session/internal/session"
)

func TestNewLookup(t *testing.T) {
	client := backend.New(zap.NewNop(), "")

	tests := []struct {
		name          string
		identity      IdentityConfig
		wantComposite bool
		wantErr       bool
	}{
		{name: "empty provider uses the api", identity: IdentityConfig{}},
		{name: "api provider", identity: IdentityConfig{Provider: "API"}},
		{name: "kratos provider", identity: IdentityConfig{Provider: "kratos", KratosURL: "http://127.0.0.1:4433"}, wantComposite: true},
		{name: "kratos without url", identity: IdentityConfig{Provider: "kratos"}, wantErr: true},
		{name: "unknown provider", identity: IdentityConfig{Provider: "ldap"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			identity := tt.identity
			lookup, err := newLookup(&Config{Identity: &identity}, client, zap.NewNop())
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got lookup %T", lookup)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			composite, ok := lookup.(*backend.Composite)
			if ok != tt.wantComposite {
				t.Fatalf("expected composite=%v, got %T", tt.wantComposite, lookup)
			}
			if ok && composite.Profiles != client {
				t.Fatalf("expected profiles to come from the backend client")
			}
			if !ok && lookup != session.Lookup(client) {
				t.Fatalf("expected the backend client itself, got %T", lookup)
			}
		})
	}
}

func TestPrintSnapshot(t *testing.T) {
	onboarded := false
	state := session.State{
		Identity:  &backend.Identity{ID: "u-1", Email: "jane@example.com", Status: backend.StatusActive},
		Profile:   &backend.Profile{ID: "p-1", Onboarded: &onboarded},
		LoadState: session.Ready,
	}

	var out bytes.Buffer
	if err := printSnapshot(&out, state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var view struct {
		LoadState string `json:"load_state"`
		Overlay   string `json:"overlay"`
	}
	if err := json.Unmarshal(out.Bytes(), &view); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if view.LoadState != "ready" {
		t.Fatalf("expected ready, got %q", view.LoadState)
	}
	if view.Overlay != "prompt-onboard" {
		t.Fatalf("expected prompt-onboard overlay, got %q", view.Overlay)
	}
}
