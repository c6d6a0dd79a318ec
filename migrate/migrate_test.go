package migrate

import (
	"strings"
	"testing"
)

func TestRunRequiresDriverAndDSN(t *testing.T) {
	if err := Run(Options{}); err == nil {
		t.Fatal("empty options should fail")
	}
	if err := Run(Options{Driver: "sqlite"}); err == nil {
		t.Fatal("missing DSN should fail")
	}
	if err := Run(Options{DSN: ":memory:"}); err == nil {
		t.Fatal("missing driver should fail")
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	err := Run(Options{Driver: "sqlite", DSN: ":memory:", Command: "sideways"})
	if err == nil {
		t.Fatal("unknown command should fail")
	}
	if !strings.Contains(err.Error(), "unknown migration command") {
		t.Fatalf("unexpected error: %v", err)
	}
}
