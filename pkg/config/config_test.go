package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"maurerdist/pkg/distance"
)

// TestLoadMissingConfig verifies that a missing file yields the defaults
func TestLoadMissingConfig(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("Expected default config, got %+v", cfg)
	}
}

// TestConfigRoundTrip saves and reloads a modified config in both formats
func TestConfigRoundTrip(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)

			cfg := DefaultConfig()
			cfg.Transform.ForegroundLabels = []uint32{3, 5}
			cfg.Transform.FullyConnected = true
			cfg.Transform.Degenerate = "error"
			cfg.Processing.NumWorkers = 3
			cfg.Output.Compress = true

			if err := SaveConfig(cfg, path); err != nil {
				t.Fatalf("SaveConfig failed: %v", err)
			}

			loaded, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}

			if !reflect.DeepEqual(loaded, cfg) {
				t.Errorf("Round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
			}
		})
	}
}

// TestPartialYAMLKeepsDefaults verifies that keys absent from the file keep their defaults
func TestPartialYAMLKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	content := "transform:\n  insideIsPositive: true\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if !cfg.Transform.InsideIsPositive {
		t.Error("Expected insideIsPositive to be set")
	}
	if !cfg.Transform.UseImageSpacing || !cfg.Transform.BorderIsBackground {
		t.Error("Expected unspecified booleans to keep their defaults")
	}
}

// TestInvalidDegeneratePolicy verifies that unknown policies are rejected on load
func TestInvalidDegeneratePolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	content := "[transform]\ndegenerate = \"ignore\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected an error for an unknown degenerate policy")
	}
}

// TestOptions verifies the conversion to engine options
func TestOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Transform.BackgroundLabel = 9
	cfg.Transform.SquaredDistance = true
	cfg.Transform.Degenerate = "error"
	cfg.Processing.NumWorkers = 2

	opts, err := cfg.Options()
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}

	if opts.BackgroundLabel != 9 || !opts.SquaredDistance || opts.Workers != 2 {
		t.Errorf("Unexpected options: %+v", opts)
	}
	if opts.Degenerate != distance.DegenerateError {
		t.Errorf("Expected error policy, got %v", opts.Degenerate)
	}
	if !opts.UseImageSpacing || !opts.BorderIsBackground {
		t.Errorf("Expected default spacing and border handling, got %+v", opts)
	}
}
