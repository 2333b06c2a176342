package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEnvDefaults(t *testing.T) {
	cfg := LoadEnv()
	if cfg.Data.Source != "json" || cfg.Translator.Timeout != 15*time.Second {
		t.Errorf("defaults = %+v %+v", cfg.Data, cfg.Translator)
	}
	if cfg.Simulation.Period != 2500*time.Millisecond {
		t.Errorf("period = %s", cfg.Simulation.Period)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("TRANSLATOR_TIMEOUT", "3s")
	t.Setenv("SIMULATION_PERIOD", "not-a-duration")
	t.Setenv("TRANSLATOR_TEMPERATURE", "0.2")

	cfg := LoadEnv()
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Translator.Timeout != 3*time.Second {
		t.Errorf("timeout = %s", cfg.Translator.Timeout)
	}
	if cfg.Simulation.Period != 2500*time.Millisecond {
		t.Errorf("bad duration should keep the default, got %s", cfg.Simulation.Period)
	}
	if cfg.Translator.Temperature != 0.2 {
		t.Errorf("temperature = %v", cfg.Translator.Temperature)
	}
}

func TestLoadLayout(t *testing.T) {
	layout, err := LoadLayout("")
	if err != nil || len(layout.Zones) != 3 {
		t.Fatalf("default layout = %+v, %v", layout, err)
	}

	path := filepath.Join(t.TempDir(), "layout.yaml")
	body := "zones: [a, d]\naisles_per_zone: 2\nlevels_per_bay: 3\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	layout, err = LoadLayout(path)
	if err != nil {
		t.Fatal(err)
	}
	if layout.Zones[0] != "A" || layout.Zones[1] != "D" || layout.AislesPerZone != 2 || layout.LevelsPerBay != 3 {
		t.Errorf("layout = %+v", layout)
	}
	if layout.BaysPerAisle != 12 {
		t.Errorf("missing field should keep default, got %d", layout.BaysPerAisle)
	}

	if err := os.WriteFile(path, []byte("aisles_per_zone: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadLayout(path); err == nil {
		t.Error("invalid layout accepted")
	}
}
