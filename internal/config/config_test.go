package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/thurmanmarka/skyfix/internal/moon"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "skyfix.toml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Model() != moon.Meeus {
		t.Errorf("default model = %v, want meeus", cfg.Model())
	}
}

func TestLoad(t *testing.T) {
	p := writeFile(t, `
lunar_model = "abridged"
max_age = "1500ms"

[log]
level = "debug"

[server]
addr = ":9000"

[tracing]
enabled = true
sample_ratio = 0.5
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model() != moon.Abridged {
		t.Errorf("model = %v", cfg.Model())
	}
	if cfg.MaxAge.Duration != 1500*time.Millisecond {
		t.Errorf("max_age = %v", cfg.MaxAge)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Server.Addr != ":9000" || cfg.Server.MetricsPath != "/metrics" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.SampleRatio != 0.5 || cfg.Tracing.Exporter != "stdout" {
		t.Errorf("tracing = %+v", cfg.Tracing)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing file accepted")
	}
	if _, err := Load(writeFile(t, `max_age = "soon"`)); err == nil {
		t.Error("bad duration accepted")
	}
	if cfg, err := Load(""); err != nil || cfg.Server.Addr != Default().Server.Addr {
		t.Errorf("Load(\"\") = %+v, %v", cfg, err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SKYFIX_LUNAR_MODEL", "abridged")
	t.Setenv("SKYFIX_MAX_AGE", "3s")
	t.Setenv("SKYFIX_ADDR", ":1234")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Default().ApplyEnv()
	if err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.LunarModel != "abridged" || cfg.MaxAge.Duration != 3*time.Second || cfg.Server.Addr != ":1234" || cfg.Log.Format != "json" {
		t.Fatalf("unexpected config %+v", cfg)
	}

	t.Setenv("SKYFIX_MAX_AGE", "later")
	if _, err := Default().ApplyEnv(); err == nil {
		t.Fatal("bad SKYFIX_MAX_AGE accepted")
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.LunarModel = "ptolemy"
	cfg.MaxAge.Duration = -time.Second
	cfg.Tracing.SampleRatio = 2
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate accepted bad config")
	}
	for _, want := range []string{"ptolemy", "max_age", "sample_ratio", "log.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
