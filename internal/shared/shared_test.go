package shared

import (
	"bytes"
	"testing"
)

func TestGenerateID(t *testing.T) {
	a := GenerateID()
	b := GenerateID()

	if a == "" || b == "" {
		t.Fatal("generated IDs should not be empty")
	}

	if a == b {
		t.Errorf("expected unique IDs, got %s twice", a)
	}

	if len(a) != 36 {
		t.Errorf("expected uuid string length 36, got %d", len(a))
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := NewLogger(&buf)
	logger.Info("scan complete", "tracks", 42)

	if !bytes.Contains(buf.Bytes(), []byte("scan complete")) {
		t.Errorf("expected log output to contain message, got %q", buf.String())
	}

	child := WithLogger(logger, "component", "reconciler")
	child.Warn("unreadable file")

	if !bytes.Contains(buf.Bytes(), []byte("reconciler")) {
		t.Errorf("expected child logger to carry key-values, got %q", buf.String())
	}
}
