package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/oraclespainpresales/chatboteventhandler/pkg/api"
)

func TestParse_Full(t *testing.T) {
	cfg, err := Parse([]byte(`
dbhost: db.example.com:443
eventserver: events.example.com
port: 8080
verbose: true
`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if cfg.DBHost != "db.example.com:443" {
		t.Errorf("DBHost = %q", cfg.DBHost)
	}
	if cfg.EventServer != "events.example.com" {
		t.Errorf("EventServer = %q", cfg.EventServer)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if !cfg.Verbose {
		t.Error("Verbose = false, want true")
	}
}

func TestParse_DefaultPort(t *testing.T) {
	cfg, err := Parse([]byte(`dbhost: db.example.com`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.Port != api.DefaultPort {
		t.Errorf("Port = %d, want default %d", cfg.Port, api.DefaultPort)
	}
}

func TestParse_InvalidPort(t *testing.T) {
	if _, err := Parse([]byte(`port: 99999`)); err == nil {
		t.Error("Parse() = nil error for port 99999")
	}
}

func TestParse_BadYAML(t *testing.T) {
	if _, err := Parse([]byte(`dbhost: [`)); err == nil {
		t.Error("Parse() = nil error for broken yaml")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() = nil error for missing file")
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("eventserver: localhost\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.EventServer != "localhost" {
		t.Errorf("EventServer = %q, want localhost", cfg.EventServer)
	}
}
