package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	// Test development mode
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize development logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	logger := Get()
	if logger == nil {
		t.Fatal("logger is nil after initialization")
	}

	// Test production mode
	err = Init()
	if err != nil {
		t.Fatalf("failed to initialize production logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	logger = Get()
	if logger == nil {
		t.Fatal("logger is nil after initialization")
	}
}

// Basic logging test (slog-backed; no Sugar)
func TestLoggerBasic(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	logger := Get()
	if logger == nil {
		t.Fatal("logger is nil")
	}

	ctx := context.Background()
	logger.Info(ctx, "test message", String("k", "v"))
}

func TestLoggerNamed(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	namedLogger := Named("test")
	if namedLogger == nil {
		t.Fatal("named logger is nil")
	}

	ctx := context.Background()
	namedLogger.Info(ctx, "test message")
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, FormatJSON)
	if err != nil {
		t.Fatalf("failed to build json logger: %v", err)
	}
	if err := SetLevelString("info"); err != nil {
		t.Fatalf("failed to set level: %v", err)
	}

	l.Named("journey").Info(context.Background(), "stage appended",
		String("customer_id", "c-1"), Bool("dedupe", false), Duration("elapsed", time.Second))

	out := buf.String()
	if !strings.Contains(out, `"msg":"stage appended"`) {
		t.Fatalf("expected json message, got %q", out)
	}
	if !strings.Contains(out, `"customer_id":"c-1"`) {
		t.Fatalf("expected grouped field, got %q", out)
	}
}

func TestLoggerUnknownFormat(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "xml"); err == nil {
		t.Fatal("expected an error for an unknown format")
	}
	if err := Init("xml"); err == nil {
		t.Fatal("expected Init to reject an unknown format")
	}
}

func TestLoggerNop(t *testing.T) {
	l := Nop()
	l.Error(context.Background(), "discarded", Error(errors.New("boom")))
	l.Named("x").Warn(context.Background(), "discarded")
}

func TestSetLevelString(t *testing.T) {
	for _, lvl := range []string{"debug", "INFO", "warning", "error", ""} {
		if err := SetLevelString(lvl); err != nil {
			t.Errorf("level %q: %v", lvl, err)
		}
	}
	if err := SetLevelString("verbose"); err == nil {
		t.Error("expected an error for an unknown level")
	}
}
