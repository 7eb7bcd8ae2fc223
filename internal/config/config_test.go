package config

import (
	"os"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if len(cfg.APIKeys) == 0 {
		t.Error("expected default API keys")
	}
	if cfg.APIKeys["openai"] != "${OPENAI_API_KEY}" {
		t.Error("expected openai API key placeholder")
	}
	if cfg.Integrate.PageSize != 100 {
		t.Errorf("expected default page size 100, got %d", cfg.Integrate.PageSize)
	}
	if cfg.Integrate.MaxExamples != 5 {
		t.Errorf("expected default example cap 5, got %d", cfg.Integrate.MaxExamples)
	}
	if cfg.Defra.ContainerName != "kotoba-defra" {
		t.Errorf("unexpected container name %s", cfg.Defra.ContainerName)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		os.Setenv("TEST_API_KEY", "secret123")
		defer os.Unsetenv("TEST_API_KEY")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestConfig_ResolveAPIKey(t *testing.T) {
	os.Setenv("TEST_OPENAI_KEY", "sk-123")
	defer os.Unsetenv("TEST_OPENAI_KEY")

	cfg := &Config{
		APIKeys: map[string]string{
			"openai":  "${TEST_OPENAI_KEY}",
			"literal": "direct-key",
		},
	}

	t.Run("resolves env var reference", func(t *testing.T) {
		if got := cfg.ResolveAPIKey("openai"); got != "sk-123" {
			t.Errorf("expected sk-123, got %s", got)
		}
	})

	t.Run("returns literal value", func(t *testing.T) {
		if got := cfg.ResolveAPIKey("literal"); got != "direct-key" {
			t.Errorf("expected direct-key, got %s", got)
		}
	})
}

func TestIntegrateCfg_Normalized(t *testing.T) {
	tests := []struct {
		name string
		in   IntegrateCfg
		want IntegrateCfg
	}{
		{
			name: "zero values get defaults",
			in:   IntegrateCfg{},
			want: IntegrateCfg{PageSize: 100, WriteBatchSize: 10, WriteBatchDelay: 0, MaxExamples: 5},
		},
		{
			name: "configured values preserved",
			in:   IntegrateCfg{PageSize: 50, WriteBatchSize: 5, WriteBatchDelay: 100, MaxExamples: 3},
			want: IntegrateCfg{PageSize: 50, WriteBatchSize: 5, WriteBatchDelay: 100, MaxExamples: 3},
		},
		{
			name: "negative delay clamped",
			in:   IntegrateCfg{PageSize: 50, WriteBatchSize: 5, WriteBatchDelay: -1, MaxExamples: 3},
			want: IntegrateCfg{PageSize: 50, WriteBatchSize: 5, WriteBatchDelay: 0, MaxExamples: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Normalized(); got != tt.want {
				t.Errorf("Normalized() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestWriteDefault(t *testing.T) {
	path := t.TempDir() + "/config.yaml"
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}
	if len(data) == 0 {
		t.Error("written config is empty")
	}
}
