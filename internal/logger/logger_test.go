package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewZapLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewZapLogger(&ZapLoggerConfig{
		Encoding:          "json",
		Level:             "warn",
		DisableCaller:     true,
		DisableStacktrace: true,
		Output:            zapcore.AddSync(&buf),
	})

	log.Info("dropped")
	log.With(zap.String("zone", "B")).Warn("No free slot", zap.String("pallet_id", "PAL-00007"))
	_ = log.Sync()

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("want exactly one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "No free slot" || entry["level"] != "warn" {
		t.Errorf("entry = %v", entry)
	}
	if entry["zone"] != "B" || entry["pallet_id"] != "PAL-00007" {
		t.Errorf("fields = %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("missing time key")
	}
}

func TestNewZapLoggerBadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewZapLogger(&ZapLoggerConfig{Level: "loud", Output: zapcore.AddSync(&buf)})
	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug written at default level: %q", buf.String())
	}
}
