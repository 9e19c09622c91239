package cmd

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "spike-session"
)

type Config struct {
	APIURL      string          `mapstructure:"api-url"`
	TokenFile   string          `mapstructure:"token-file"`
	UserAgent   string          `mapstructure:"user-agent"`
	Timeout     time.Duration   `mapstructure:"timeout"`
	Identity    *IdentityConfig `mapstructure:"identity"`
	PublicPaths []string        `mapstructure:"public-paths"`
}

type IdentityConfig struct {
	// Provider is either "api" (backend whoami) or "kratos".
	Provider          string `mapstructure:"provider"`
	KratosURL         string `mapstructure:"kratos-url"`
	SessionTokenFile  string `mapstructure:"session-token-file"`
	SessionCookieFile string `mapstructure:"session-cookie-file"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "spike-session resolves and inspects the ProfileSpike session of the current user",
	}
)

// Execute executes the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	envs := map[string]string{
		"token-file":                   "SPIKE_TOKEN_FILE",
		"api-url":                      "SPIKE_API_URL",
		"identity.provider":            "SPIKE_IDENTITY_PROVIDER",
		"identity.kratos-url":          "SPIKE_KRATOS_URL",
		"identity.session-token-file":  "SPIKE_SESSION_TOKEN_FILE",
		"identity.session-cookie-file": "SPIKE_SESSION_COOKIE_FILE",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("timeout", "10s")
	viper.SetDefault("identity.provider", "api")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is spike-session.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("api-url", "", "ProfileSpike backend base url")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("api-url", rootCmd.PersistentFlags().Lookup("api-url"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// A missing default config is fine, everything has defaults or env vars.
	// A broken or explicitly requested one is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}

	if config.Identity == nil {
		config.Identity = &IdentityConfig{Provider: "api"}
	}

	return config, nil
}
