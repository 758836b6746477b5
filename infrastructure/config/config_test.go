package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.Upload.Concurrency != 3 {
		t.Fatalf("expected default concurrency 3, got %d", cfg.Upload.Concurrency)
	}
	if diff := cmp.Diff([]string{".pdf"}, cfg.Upload.AcceptedExt); diff != "" {
		t.Fatalf("accepted ext mismatch (-want +got):\n%s", diff)
	}
	if cfg.Backend.IdentityHeader != "X-User" {
		t.Fatalf("expected X-User identity header, got %q", cfg.Backend.IdentityHeader)
	}
	if cfg.S3.Enabled() {
		t.Fatalf("expected s3 disabled without credentials")
	}
}

func TestLoadYAMLThenEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geoportal.yaml")
	yamlText := `
addr: ":9090"
backend:
  base_url: "http://backend.internal:5000"
  timeout: 45s
upload:
  concurrency: 2
  accepted_ext: ["pdf", ".PDF", "docx"]
ocr:
  lookup_debounce: -1s
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(yamlText), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("GEOPORTAL_UPLOAD_CONCURRENCY", "4")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("expected yaml addr, got %q", cfg.Addr)
	}
	if cfg.Backend.Timeout != 45*time.Second {
		t.Fatalf("expected 45s timeout, got %s", cfg.Backend.Timeout)
	}
	if cfg.Upload.Concurrency != 4 {
		t.Fatalf("expected env override 4, got %d", cfg.Upload.Concurrency)
	}
	if diff := cmp.Diff([]string{".pdf", ".pdf", ".docx"}, cfg.Upload.AcceptedExt); diff != "" {
		t.Fatalf("accepted ext mismatch (-want +got):\n%s", diff)
	}
	if cfg.OCR.LookupDebounce != 0 {
		t.Fatalf("expected immediate lookups, got %s", cfg.OCR.LookupDebounce)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json logging, got %q", cfg.Logging.Format)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	yamlText := `
backend:
  base_url: "not a url"
logging:
  level: loud
`
	if err := os.WriteFile(path, []byte(yamlText), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"backend.base_url", "logging.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in error, got %v", want, err)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
