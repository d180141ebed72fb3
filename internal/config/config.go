// Package config builds the process-wide Config value type from defaults,
// environment variables and an optional config file, via viper. The
// dynamic-dispatch configuration singleton in the original controller
// becomes this explicit value, constructed once at startup and passed
// to each component constructor.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is every setting named in spec §6, resolved once at startup.
type Config struct {
	Server ServerConfig

	RepositoryBackend RepositoryConfig
	CI                CIConfig
	Badge             BadgeConfig

	StateFilePath string
	LogLevel      string
	LogFormat     string
}

// ServerConfig is the HTTP listener configuration.
type ServerConfig struct {
	Host string
	Port int
}

// RepositoryConfig selects and authenticates the Repository Gateway backend.
type RepositoryConfig struct {
	// Backend is "github" or "gitlab".
	Backend          string
	ControlledOrg    string
	AccessTokenPath  string
	GitLabBaseURL    string
}

// CIConfig authenticates the CI Gateway.
type CIConfig struct {
	Endpoint      string
	User          string
	TokenPath     string
	HostingOrg    string
}

// BadgeConfig authenticates the Badge Gateway and names the issuer/class
// to resolve assertions against.
type BadgeConfig struct {
	Endpoint         string
	User             string
	PasswordPath     string
	IssuerName       string
	BadgeClassName   string
}

// Load resolves Config from (in increasing priority) defaults, an
// optional config file, and SQAAAS_-prefixed environment variables.
// configFile may be empty, in which case only defaults and env vars
// apply.
func Load(configFile string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SQAAAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	cfg := Config{
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetInt("server.port"),
		},
		RepositoryBackend: RepositoryConfig{
			Backend:         v.GetString("repository.backend"),
			ControlledOrg:   v.GetString("repository.controlled_org"),
			AccessTokenPath: v.GetString("repository.access_token_path"),
			GitLabBaseURL:   v.GetString("repository.gitlab_base_url"),
		},
		CI: CIConfig{
			Endpoint:   v.GetString("ci.endpoint"),
			User:       v.GetString("ci.user"),
			TokenPath:  v.GetString("ci.token_path"),
			HostingOrg: v.GetString("ci.hosting_org"),
		},
		Badge: BadgeConfig{
			Endpoint:       v.GetString("badge.endpoint"),
			User:           v.GetString("badge.user"),
			PasswordPath:   v.GetString("badge.password_path"),
			IssuerName:     v.GetString("badge.issuer_name"),
			BadgeClassName: v.GetString("badge.class_name"),
		},
		StateFilePath: v.GetString("state_file_path"),
		LogLevel:      v.GetString("log_level"),
		LogFormat:     v.GetString("log_format"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("repository.backend", "github")
	v.SetDefault("state_file_path", "/var/lib/sqaaas/pipelines.yaml")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

func (c Config) validate() error {
	switch c.RepositoryBackend.Backend {
	case "github", "gitlab":
	default:
		return fmt.Errorf("repository.backend must be github or gitlab, got %q", c.RepositoryBackend.Backend)
	}
	if c.RepositoryBackend.ControlledOrg == "" {
		return fmt.Errorf("repository.controlled_org is required")
	}
	return nil
}

// ReadSecret reads a credential from a file path, trimming trailing
// whitespace. Credentials are never accepted directly as config values
// so they never end up in a dumped config or a process listing.
func ReadSecret(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading secret %s: %w", path, err)
	}
	return strings.TrimSpace(string(b)), nil
}
