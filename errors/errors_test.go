package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewIncludesCallerLocation(t *testing.T) {
	err := New("boom %d", 42)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "errors_test.go") {
		t.Errorf("expected caller file in message, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "boom 42") {
		t.Errorf("expected formatted message, got %q", err.Error())
	}
}

func TestWrapfNilPassthrough(t *testing.T) {
	if err := Wrapf(nil, "context"); err != nil {
		t.Errorf("expected nil for nil input, got %v", err)
	}
}

func TestWrapfPreservesCause(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrapf(cause, "while doing %s", "work")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "while doing work") {
		t.Errorf("missing context in %q", err.Error())
	}
	if !strings.Contains(err.Error(), "root cause") {
		t.Errorf("missing cause in %q", err.Error())
	}
}
