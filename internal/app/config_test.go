package app

import (
	"testing"

	_ "github.com/clinicore/clinicore/internal/testing/guard"
)

func TestLoadConfigRequiresPlatformKeyHash(t *testing.T) {
	t.Setenv("PLATFORM_KEY_HASH", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error without platform key hash")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PLATFORM_KEY_HASH", "$2a$10$notarealhashbutpresent")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.AppAddr != ":8080" {
		t.Fatalf("addr = %q, want :8080", cfg.AppAddr)
	}
	if cfg.SessionCookie != "clinicore_session" {
		t.Fatalf("cookie = %q", cfg.SessionCookie)
	}
	if cfg.IsProduction() {
		t.Fatal("development config reported as production")
	}
}

func TestTestModeFlag(t *testing.T) {
	t.Setenv("CLINICORE_TEST_MODE", "1")
	RefreshTestMode()
	if !InTestMode() {
		t.Fatal("expected test mode on")
	}
	t.Setenv("CLINICORE_TEST_MODE", "")
	RefreshTestMode()
	if InTestMode() {
		t.Fatal("expected test mode off")
	}
}
