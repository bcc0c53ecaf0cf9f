package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigs(t *testing.T, public, private string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "public.yaml"), []byte(public), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "private.yaml"), []byte(private), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir
}

const validPublic = `api:
  addr: ":8080"
media:
  root_path: "/tmp/quill-media"
  chunk_size_bytes: 32768
presence:
  marker_ttl_seconds: 30
messaging:
  allowed_mime_types: ["image/jpeg", "image/png"]
  max_message_length: 4000
`

func TestMustLoad(t *testing.T) {
	dir := writeConfigs(t, validPublic, "pg_password: 'secret'\n")

	cfg := MustLoad(dir)

	if cfg.Public.Api.Addr != ":8080" {
		t.Errorf("unexpected api addr: %s", cfg.Public.Api.Addr)
	}
	if cfg.Public.Presence.MarkerTTL() != 30*time.Second {
		t.Errorf("unexpected marker ttl: %s", cfg.Public.Presence.MarkerTTL())
	}
	if len(cfg.Public.Messaging.AllowedMimeTypes) != 2 {
		t.Errorf("unexpected allow-list: %v", cfg.Public.Messaging.AllowedMimeTypes)
	}
	if cfg.PgPassword() != "secret" {
		t.Errorf("private config not loaded")
	}
}

func TestMustLoad_RequiredFields(t *testing.T) {
	// Missing media.root_path must make validation panic
	public := `api:
  addr: ":8080"
media:
  chunk_size_bytes: 32768
presence:
  marker_ttl_seconds: 30
messaging:
  allowed_mime_types: ["image/jpeg"]
  max_message_length: 4000
`
	dir := writeConfigs(t, public, "pg_password: 'k'\n")

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic due to missing required field, got none")
		}
	}()

	_ = MustLoad(dir)
}

func TestMustLoad_MissingFile(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic due to missing config file, got none")
		}
	}()

	_ = MustLoad(t.TempDir())
}
