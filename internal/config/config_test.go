package config

import "testing"

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = []string{}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_InvalidCompletionProvider(t *testing.T) {
	cfg := validConfig()
	cfg.Completion.Provider = "anthropic"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}

	expected := `completion.provider must be "openai" or "gemini", got "anthropic"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_Drivers(t *testing.T) {
	for _, driver := range []string{"valkey", "redis"} {
		t.Run("driver="+driver, func(t *testing.T) {
			cfg := validConfig()
			cfg.Database.Driver = driver
			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for driver %q: %v", driver, err)
			}
		})
	}

	cfg := validConfig()
	cfg.Database.Driver = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestValidate_OverlapNotLessThanSize(t *testing.T) {
	cfg := validConfig()
	cfg.Chunking.Size = 100
	cfg.Chunking.Overlap = 100

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for overlap >= size")
	}
	expected := "chunking.overlap (100) must be less than chunking.size (100)"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestValidate_MinRelevanceRange(t *testing.T) {
	cfg := validConfig()
	cfg.Retrieval.MinRelevance = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for min_relevance > 1")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Database.Driver != "valkey" {
		t.Errorf("expected Driver=valkey, got %q", cfg.Database.Driver)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("expected embedding model text-embedding-3-small, got %q", cfg.Embedding.Model)
	}
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("expected Dimensions=1536, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Completion.Model != "gpt-4o-2024-08-06" {
		t.Errorf("expected completion model gpt-4o-2024-08-06, got %q", cfg.Completion.Model)
	}
	if cfg.Retrieval.TopK != 4 {
		t.Errorf("expected TopK=4, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.MinRelevance != 0.5 {
		t.Errorf("expected MinRelevance=0.5, got %g", cfg.Retrieval.MinRelevance)
	}
	if cfg.Retrieval.HistoryWindow != 5 {
		t.Errorf("expected HistoryWindow=5, got %d", cfg.Retrieval.HistoryWindow)
	}
	if cfg.Chunking.Size != 1000 || cfg.Chunking.Overlap != 100 {
		t.Errorf("expected chunking 1000/100, got %d/%d", cfg.Chunking.Size, cfg.Chunking.Overlap)
	}
	if cfg.Storage.KeyPrefix != "docchat:" {
		t.Errorf("expected KeyPrefix='docchat:', got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Storage.UploadDir != "uploads" {
		t.Errorf("expected UploadDir='uploads', got %q", cfg.Storage.UploadDir)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{ReadTimeoutSec: 5},
		Retrieval: RetrievalConfig{TopK: 8, MinRelevance: 0.7},
		Storage:   StorageConfig{KeyPrefix: "custom:"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 5 {
		t.Errorf("expected ReadTimeoutSec=5, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Retrieval.TopK != 8 {
		t.Errorf("expected TopK=8, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.MinRelevance != 0.7 {
		t.Errorf("expected MinRelevance=0.7, got %g", cfg.Retrieval.MinRelevance)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("DOCCHAT_TEST_KEY", "sk-123")

	got := string(expandEnvVars([]byte("a: ${DOCCHAT_TEST_KEY}\nb: ${DOCCHAT_TEST_MISSING:-fallback}\nc: ${DOCCHAT_TEST_MISSING}")))
	want := "a: sk-123\nb: fallback\nc: "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
http:
  port: 9000
database:
  addrs: ["valkey:6379"]
completion:
  provider: gemini
  model: gemini-2.0-flash
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.HTTP.Port)
	}
	if cfg.Completion.Provider != "gemini" || cfg.Completion.Model != "gemini-2.0-flash" {
		t.Errorf("unexpected completion config: %+v", cfg.Completion)
	}
	if cfg.Retrieval.TopK != 4 {
		t.Errorf("defaults not applied, TopK=%d", cfg.Retrieval.TopK)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http:\n  port: 0\n")); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Fatal("expected parse error")
	}
}
