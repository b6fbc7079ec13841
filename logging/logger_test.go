package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// syncBuffer adapts bytes.Buffer to zapcore.WriteSyncer.
type syncBuffer struct {
	bytes.Buffer
}

func (s *syncBuffer) Sync() error { return nil }

func newTestLogger(t *testing.T) (*Logger, *syncBuffer) {
	t.Helper()
	var fileBuf syncBuffer
	var consoleBuf syncBuffer
	core := NewMultiCoreWithWriters(zapcore.DebugLevel, &consoleBuf, &fileBuf, false)
	z := zap.New(core)
	return &Logger{zap: z, sugar: z.Sugar()}, &fileBuf
}

func TestLogger_JSONFields(t *testing.T) {
	logger, buf := newTestLogger(t)
	logger.Info("job finished",
		zap.String("run_id", "run-42"),
		zap.Int("image_index", 3),
	)

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v\n%s", err, line)
	}
	if entry[FieldMessage] != "job finished" {
		t.Errorf("message = %v", entry[FieldMessage])
	}
	if entry["run_id"] != "run-42" {
		t.Errorf("run_id = %v", entry["run_id"])
	}
}

func TestLogger_RedactsTokenFields(t *testing.T) {
	logger, buf := newTestLogger(t)
	logger.Info("painter configured",
		zap.String("painter_token", "r8_abcdefghijklmnopqrstuvwxyz012345"),
	)

	out := buf.String()
	if strings.Contains(out, "r8_abcdefghijklmnop") {
		t.Errorf("token leaked into log output: %s", out)
	}
	if !strings.Contains(out, RedactedPlaceholder) {
		t.Errorf("expected redaction placeholder, got: %s", out)
	}
}

func TestLogger_WithCarriesFields(t *testing.T) {
	logger, buf := newTestLogger(t)
	child := logger.With(zap.String("run_id", "run-7"))
	child.Info("asset cache hit")

	if !strings.Contains(buf.String(), "run-7") {
		t.Errorf("child logger field missing: %s", buf.String())
	}
}

func TestNewNop_DoesNotPanic(t *testing.T) {
	l := NewNop()
	l.Info("ignored")
	l.Error("ignored")
	if err := l.Sync(); err != nil {
		t.Errorf("Sync() error: %v", err)
	}
}
