package config

import (
	"strings"
	"testing"
	"time"
)

const validYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
providers:
  llm:
    name: openai
    api_key: sk-test
    model: gpt-4o-mini
  llm_fallbacks:
    - name: ollama
      base_url: http://localhost:11434
      model: llama3.1
  stt:
    name: whisper
    model: models/ggml-base.en.bin
    options:
      language: en
  facial:
    name: remote
    base_url: http://localhost:8001/analyze
session:
  default_difficulty: intermediate
  feedback_interval: 5s
  idle_timeout: 2m
storage:
  postgres_dsn: postgres://localhost/podium
telemetry:
  service_name: podium-test
`

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != LogDebug {
		t.Errorf("log_level = %q", cfg.Server.LogLevel)
	}
	if cfg.Providers.LLM.Name != "openai" || cfg.Providers.LLM.Model != "gpt-4o-mini" {
		t.Errorf("llm entry = %+v", cfg.Providers.LLM)
	}
	if len(cfg.Providers.LLMFallbacks) != 1 || cfg.Providers.LLMFallbacks[0].Name != "ollama" {
		t.Errorf("fallbacks = %+v", cfg.Providers.LLMFallbacks)
	}
	if got := cfg.Providers.STT.Options["language"]; got != "en" {
		t.Errorf("stt language option = %v", got)
	}
	if cfg.Session.FeedbackInterval != 5*time.Second {
		t.Errorf("feedback_interval = %v", cfg.Session.FeedbackInterval)
	}
	if cfg.Session.IdleTimeout != 2*time.Minute {
		t.Errorf("idle_timeout = %v", cfg.Session.IdleTimeout)
	}
	if cfg.Telemetry.ServiceName != "podium-test" {
		t.Errorf("service_name = %q", cfg.Telemetry.ServiceName)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	yaml := `
server:
  listen_addr: ":8080"
  lsiten_typo: oops
`
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{LogLevel: "loud"},
		Providers: ProvidersConfig{
			LLMFallbacks: []ProviderEntry{{Name: "ollama"}},
			Facial:       ProviderEntry{Name: "remote"},
			STT:          ProviderEntry{Name: "whisper"},
		},
		Session: SessionConfig{
			DefaultDifficulty: "brutal",
			FeedbackInterval:  -time.Second,
		},
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{
		"server.log_level",
		"llm_fallbacks requires providers.llm",
		"facial.base_url is required",
		"stt.model",
		"default_difficulty",
		"feedback_interval",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestValidate_TLSRequiresBothFiles(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{TLS: &TLSConfig{CertFile: "cert.pem"}},
	}
	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "cert_file and key_file") {
		t.Errorf("err = %v, want TLS pairing error", err)
	}

	cfg.Server.TLS.KeyFile = "key.pem"
	if err := Validate(cfg); err != nil {
		t.Errorf("complete TLS config rejected: %v", err)
	}
}

func TestValidate_EmptyConfigIsAcceptable(t *testing.T) {
	// An empty config runs with defaults, warnings only.
	if err := Validate(&Config{}); err != nil {
		t.Errorf("Validate(empty) = %v, want nil", err)
	}
}
