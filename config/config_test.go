package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"INTENTDECK_ENDPOINT", "INTENTDECK_FORMAT", "INTENTDECK_COUNTDOWN", "INTENTDECK_TICK", "INTENTDECK_UPLOAD_LIMIT_MB"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Countdown != 3 || cfg.Tick != time.Second || cfg.Format != "wav" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.UploadLimit() != 10<<20 {
		t.Errorf("upload limit = %d", cfg.UploadLimit())
	}
	if cfg.Endpoint == "" {
		t.Error("empty default endpoint")
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("INTENTDECK_FORMAT", "flac")
	t.Setenv("INTENTDECK_TICK", "50ms")
	t.Setenv("INTENTDECK_MUTE", "true")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Format != "flac" || cfg.Tick != 50*time.Millisecond || !cfg.Mute {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("INTENTDECK_DEVICE=usb\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("INTENTDECK_DEVICE", "")
	os.Unsetenv("INTENTDECK_DEVICE")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Device != "usb" {
		t.Errorf("device = %q, want usb", cfg.Device)
	}
}

func TestLoadRejectsFormat(t *testing.T) {
	t.Setenv("INTENTDECK_FORMAT", "mp3")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadServer(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("INTENTD_ALLOWED_ORIGINS", "http://a.test,http://b.test")
	cfg, err := LoadServer("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr() != ":9090" {
		t.Errorf("addr = %q", cfg.Addr())
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("origins = %v", cfg.AllowedOrigins)
	}
}
