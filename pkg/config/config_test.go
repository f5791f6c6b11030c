package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Processing.SlicesPerChunk != 8 {
		t.Errorf("Expected default slices per chunk 8, got %d", cfg.Processing.SlicesPerChunk)
	}
	if cfg.Processing.Workers < 1 {
		t.Errorf("Expected at least one worker, got %d", cfg.Processing.Workers)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ndresample.yaml")
	text := `processing:
  workers: 3
transport:
  workerAddrs: ["node1:8870", "node2:8870"]
  requestTimeout: 90s
logging:
  logfile: /tmp/ndresample.log
  verbose: true
`
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Processing.Workers != 3 {
		t.Errorf("Expected 3 workers, got %d", cfg.Processing.Workers)
	}
	if cfg.Processing.SlicesPerChunk != 8 {
		t.Errorf("Expected unset field to keep its default, got %d", cfg.Processing.SlicesPerChunk)
	}
	if len(cfg.Transport.WorkerAddrs) != 2 || cfg.Transport.WorkerAddrs[1] != "node2:8870" {
		t.Errorf("Unexpected worker addresses %v", cfg.Transport.WorkerAddrs)
	}
	if time.Duration(cfg.Transport.RequestTimeout) != 90*time.Second {
		t.Errorf("Expected 90s timeout, got %v", time.Duration(cfg.Transport.RequestTimeout))
	}
	if cfg.Logging.Logfile != "/tmp/ndresample.log" || !cfg.Logging.Verbose {
		t.Errorf("Unexpected logging section %+v", cfg.Logging)
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ndresample.toml")
	text := `[processing]
slices_per_chunk = 12

[transport]
compress = true

[logging]
max_log_size = 5
`
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Processing.SlicesPerChunk != 12 {
		t.Errorf("Expected 12 slices per chunk, got %d", cfg.Processing.SlicesPerChunk)
	}
	if !cfg.Transport.Compress {
		t.Error("Expected compression enabled")
	}
	if cfg.Logging.MaxSize != 5 {
		t.Errorf("Expected max log size 5, got %d", cfg.Logging.MaxSize)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("processing:\n  slicesPerChunk: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for zero slices per chunk")
	}
}

func TestDefaultConfigFile(t *testing.T) {
	for _, name := range []string{"conf/ndresample.yaml", "conf/ndresample.toml"} {
		path := filepath.Join(t.TempDir(), name)
		if err := CreateDefaultConfigFile(path); err != nil {
			t.Fatalf("CreateDefaultConfigFile(%s) failed: %v", name, err)
		}
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig(%s) failed: %v", name, err)
		}
		if cfg.Output.ImageFormat != "png" || cfg.Transport.Listen != ":8870" {
			t.Errorf("%s: defaults not preserved: %+v", name, cfg)
		}
	}
}
