package internal

import (
	"testing"

	"github.com/ferrows/mnemo/internal/models"
	"github.com/ferrows/mnemo/internal/relevance"
)

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Auth.AuthEnabled() {
		t.Error("auth enabled by default")
	}
	if cfg.Embedding.Enabled() {
		t.Error("embedding enabled by default")
	}
}

func TestHTTPConfig_PortBounds(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		cfg := NewDefaultConfig()
		cfg.App.HTTP.Port = port
		if err := cfg.Validate(); err == nil {
			t.Errorf("port %d accepted", port)
		}
	}
}

func TestAuthConfig_TokenModeRequiresToken(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = AuthModeToken
	if err := cfg.Validate(); err == nil {
		t.Fatal("token mode without token accepted")
	}
	cfg.Auth.Token = "secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token rejected: %v", err)
	}
	if !cfg.Auth.AuthEnabled() {
		t.Error("AuthEnabled = false in token mode")
	}
}

func TestEmbeddingConfig_OpenAIRequiresKey(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Embedding.Provider = EmbeddingOpenAI
	if err := cfg.Validate(); err == nil {
		t.Fatal("openai without api_key accepted")
	}
	cfg.Embedding.APIKey = "sk-test"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("openai with api_key rejected: %v", err)
	}
	if !cfg.Embedding.Enabled() {
		t.Error("Enabled = false with openai provider")
	}
}

func TestScopeConfig_Validation(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Scope.Tier = "workspace"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown tier accepted")
	}

	cfg = NewDefaultConfig()
	cfg.Scope.Enterprise.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Error("enterprise without path accepted")
	}
	cfg.Scope.Enterprise.Path = "/srv/org"
	if err := cfg.Validate(); err != nil {
		t.Errorf("enterprise with path rejected: %v", err)
	}
}

func TestRelevanceConfig_Build(t *testing.T) {
	enabled := true
	threshold := 0.9
	limit := 1
	rc := RelevanceConfig{
		Types: map[string]RelevanceTypeOverride{
			"breadcrumb": {Enabled: &enabled},
			"gotcha":     {Threshold: &threshold, Limit: &limit},
		},
	}
	if err := rc.Validate(); err != nil {
		t.Fatal(err)
	}

	cfg := rc.Build()
	if !cfg.Types[models.TypeBreadcrumb].Enabled {
		t.Error("breadcrumb override not applied")
	}
	g := cfg.Types[models.TypeGotcha]
	if g.Threshold != 0.9 || g.Limit != 1 || !g.Enabled {
		t.Errorf("gotcha = %+v", g)
	}
	// Untouched types keep their defaults.
	if cfg.Types[models.TypeDecision] != relevance.DefaultConfig().Types[models.TypeDecision] {
		t.Error("decision default changed")
	}
}

func TestRelevanceConfig_Validation(t *testing.T) {
	bad := 1.5
	rc := RelevanceConfig{Types: map[string]RelevanceTypeOverride{"gotcha": {Threshold: &bad}}}
	if err := rc.Validate(); err == nil {
		t.Error("threshold > 1 accepted")
	}

	rc = RelevanceConfig{Types: map[string]RelevanceTypeOverride{"memo": {}}}
	if err := rc.Validate(); err == nil {
		t.Error("unknown type accepted")
	}
}
