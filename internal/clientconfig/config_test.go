package clientconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.BaseURL != "http://localhost:8080" {
		t.Errorf("baseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.Timeout() != 30*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout())
	}
	if cfg.Capture.Source != "mekane-share" {
		t.Errorf("source = %q", cfg.Capture.Source)
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  baseUrl: https://shots.example.com/upload/
  timeoutSeconds: 10
capture:
  retentionDays: 14
  source: laptop
  settleDelayMillis: 250
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.BaseURL != "https://shots.example.com" {
		t.Errorf("baseURL not normalized: %q", cfg.Server.BaseURL)
	}
	if cfg.Timeout() != 10*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout())
	}
	if cfg.Capture.RetentionDays != 14 || cfg.Capture.Source != "laptop" {
		t.Errorf("capture = %+v", cfg.Capture)
	}
	if cfg.SettleDelay() != 250*time.Millisecond {
		t.Errorf("settle delay = %v", cfg.SettleDelay())
	}
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  baseUrl: http://10.0.0.5:9000\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.BaseURL != "http://10.0.0.5:9000" {
		t.Errorf("baseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.Timeout() != 30*time.Second {
		t.Errorf("timeout default lost: %v", cfg.Timeout())
	}
	if cfg.Capture.Source != "mekane-share" {
		t.Errorf("source default lost: %q", cfg.Capture.Source)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"malformed yaml":     "server: [broken",
		"retention too high": "capture:\n  retentionDays: 31\n",
		"retention too low":  "capture:\n  retentionDays: -1\n",
		"negative settle":    "capture:\n  settleDelayMillis: -5\n",
	}
	for name, content := range cases {
		if _, err := Load(writeConfig(t, content)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
