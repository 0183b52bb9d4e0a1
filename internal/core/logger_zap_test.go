package core

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerKeyValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewLogger(zap.New(core))
	log.Info("item added", "id", "a", "rfidTag", "RFID1")
	log.Warn("careful")
	log.Error("failed", "error", "boom")
	log.Debug("detail")

	if logs.Len() != 4 {
		t.Fatalf("expected 4 entries, got %d", logs.Len())
	}
	first := logs.All()[0]
	if first.Message != "item added" || first.ContextMap()["rfidTag"] != "RFID1" {
		t.Fatalf("unexpected entry %+v", first)
	}
	if logs.FilterLevelExact(zapcore.ErrorLevel).Len() != 1 {
		t.Fatalf("expected one error entry")
	}
	NewLogger(nil).Info("discarded")
}

func TestNewZapLoggerLevels(t *testing.T) {
	z, err := NewZapLogger("warn", false)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if z.Core().Enabled(zapcore.InfoLevel) || !z.Core().Enabled(zapcore.WarnLevel) {
		t.Fatalf("expected warn level")
	}
	if _, err := NewZapLogger("loud", false); err == nil {
		t.Fatalf("expected invalid level error")
	}
	dev, err := NewZapLogger("", true)
	if err != nil || !dev.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected development logger at debug, err=%v", err)
	}
}

func TestMigrationLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ml := NewMigrationLogger(zap.New(core), true)
	ml.Printf("applied %d\n", 1)
	if !ml.Verbose() {
		t.Fatalf("expected verbose")
	}
	if logs.Len() != 1 || logs.All()[0].Message != "db migration: applied 1" {
		t.Fatalf("unexpected migration log %+v", logs.All())
	}
}
