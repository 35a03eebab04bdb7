package internal

import (
	"strings"
	"testing"

	"github.com/starford/notebot/internal/storage"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestStoreConfig_EmptyBackendDefaultsFile(t *testing.T) {
	cfg := StoreConfig{Path: "./data"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty backend should default to file: %v", err)
	}
	if cfg.Backend != storage.BackendFile {
		t.Errorf("backend = %q, want %q", cfg.Backend, storage.BackendFile)
	}
}

func TestStoreConfig_UnknownBackend(t *testing.T) {
	cfg := StoreConfig{Backend: "redis", Path: "./data"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown backend should fail validation")
	}
}

func TestStoreConfig_MissingPath(t *testing.T) {
	cfg := StoreConfig{Backend: storage.BackendSQLite}
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing path should fail validation")
	}
}

func TestChatConfig_TemperatureBounds(t *testing.T) {
	cfg := NewDefaultConfig().Chat
	cfg.Temperature = 3.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("temperature above 2 should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestNewDefaultConfigIsValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
