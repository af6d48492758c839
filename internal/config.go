// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/ferrows/mnemo/internal/models"
	"github.com/ferrows/mnemo/internal/relevance"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Embedding providers.
const (
	EmbeddingNone   = "none"
	EmbeddingOpenAI = "openai"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Scope     ScopeConfig       `yaml:"scope"`
	Embedding EmbeddingConfig   `yaml:"embedding"`
	Relevance RelevanceConfig   `yaml:"relevance"`
	Keyword   KeywordConfig     `yaml:"keyword"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Scope.Validate(); err != nil {
		return err
	}
	if err := c.Embedding.Validate(); err != nil {
		return err
	}
	if err := c.Relevance.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// ScopeConfig selects which storage tier the engine serves.
//
// Dir is the working directory used for tier inference and project/local
// roots. Tier forces a specific tier; when empty the tier is inferred from
// Dir (project when a VCS root is found, global otherwise). GlobalRoot
// overrides the per-user global scope location (default ~/.mnemo).
type ScopeConfig struct {
	Dir        string           `yaml:"dir"`
	Tier       models.Tier      `yaml:"tier"`
	GlobalRoot string           `yaml:"global_root"`
	Enterprise EnterpriseConfig `yaml:"enterprise"`
}

// Validate validates the scope configuration.
func (c *ScopeConfig) Validate() error {
	if c.Tier != "" && !c.Tier.Valid() {
		return fmt.Errorf("scope: unknown tier %q", c.Tier)
	}
	if c.Enterprise.Enabled && c.Enterprise.Path == "" {
		return fmt.Errorf("scope: enterprise is enabled but path is empty")
	}
	return nil
}

// EnterpriseConfig holds the optional organization-wide scope.
type EnterpriseConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// EmbeddingConfig holds embedding provider configuration. Provider "none"
// (the default) disables semantic search and context injection; keyword
// search and the record store keep working.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Dimensions int    `yaml:"dimensions"`
}

// Enabled returns true when an embedding provider is configured.
func (c *EmbeddingConfig) Enabled() bool {
	return c.Provider != "" && c.Provider != EmbeddingNone
}

// Validate validates the embedding configuration.
func (c *EmbeddingConfig) Validate() error {
	if c.Provider == "" {
		c.Provider = EmbeddingNone
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.In(EmbeddingNone, EmbeddingOpenAI)),
		validation.Field(&c.Dimensions, validation.Min(0)),
	); err != nil {
		return err
	}
	if c.Provider == EmbeddingOpenAI && c.APIKey == "" {
		return fmt.Errorf("embedding: provider is %q but api_key is empty", EmbeddingOpenAI)
	}
	return nil
}

// RelevanceTypeOverride tunes one record type's selection rules. Nil fields
// keep the built-in default.
type RelevanceTypeOverride struct {
	Enabled   *bool    `yaml:"enabled"`
	Threshold *float64 `yaml:"threshold"`
	Limit     *int     `yaml:"limit"`
}

// RelevanceConfig holds per-type overrides for the context injection engine.
type RelevanceConfig struct {
	Types map[string]RelevanceTypeOverride `yaml:"types"`
}

// Validate validates the relevance configuration.
func (c *RelevanceConfig) Validate() error {
	for name, ov := range c.Types {
		if !models.RecordType(name).Valid() {
			return fmt.Errorf("relevance: unknown record type %q", name)
		}
		if ov.Threshold != nil && (*ov.Threshold < 0 || *ov.Threshold > 1) {
			return fmt.Errorf("relevance: %s threshold must be in [0, 1]", name)
		}
		if ov.Limit != nil && *ov.Limit < 0 {
			return fmt.Errorf("relevance: %s limit must not be negative", name)
		}
	}
	return nil
}

// Build merges the overrides over the engine defaults.
func (c *RelevanceConfig) Build() relevance.Config {
	cfg := relevance.DefaultConfig()
	for name, ov := range c.Types {
		tc := cfg.Types[models.RecordType(name)]
		if ov.Enabled != nil {
			tc.Enabled = *ov.Enabled
		}
		if ov.Threshold != nil {
			tc.Threshold = *ov.Threshold
		}
		if ov.Limit != nil {
			tc.Limit = *ov.Limit
		}
		cfg.Types[models.RecordType(name)] = tc
	}
	return cfg
}

// KeywordConfig holds the SQLite keyword mirror configuration. An empty
// path disables the mirror.
type KeywordConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Scope: ScopeConfig{
			Dir: ".",
		},
		Embedding: EmbeddingConfig{
			Provider: EmbeddingNone,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
