package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("model = %q, want gpt-4o-mini", cfg.LLM.Model)
	}
	if cfg.Registry.CallSpacing != time.Second {
		t.Errorf("call spacing = %v, want 1s", cfg.Registry.CallSpacing)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("storage driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if cfg.Cache.Driver != "none" {
		t.Errorf("cache driver = %q, want none", cfg.Cache.Driver)
	}
}

func TestLoadAppliesFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9090
llm:
  model: gpt-4o
storage:
  driver: memory
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PORT", "7070")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("INFOSIMPLES_API_KEY", "tok-test")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Environment wins over the file.
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", cfg.LLM.Model)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("api key = %q", cfg.LLM.APIKey)
	}
	if cfg.Registry.Token != "tok-test" {
		t.Errorf("token = %q", cfg.Registry.Token)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.Observability.LogLevel)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("storage driver = %q, want memory", cfg.Storage.Driver)
	}
}

func TestLoadRejectsBadDrivers(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "oracle")
	if _, err := Load(""); err == nil {
		t.Error("expected error for unknown storage driver")
	}

	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("CACHE_DRIVER", "memcached")
	if _, err := Load(""); err == nil {
		t.Error("expected error for unknown cache driver")
	}
}

func TestLoadRequiresPostgresDSN(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "")
	if _, err := Load(""); err == nil {
		t.Error("expected error for postgres without DSN")
	}

	t.Setenv("DATABASE_DSN", "postgres://localhost/limpo")
	if _, err := Load(""); err != nil {
		t.Errorf("Load failed with DSN set: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}
