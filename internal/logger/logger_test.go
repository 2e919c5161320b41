package logger

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(redact bool) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return &Logger{SugaredLogger: zap.New(core).Sugar(), redact: redact, salt: "pepper"}, logs
}

func TestRedaction(t *testing.T) {
	l, logs := newObserved(true)
	l.Info("login", "api_key", "sk-123", "learner", "kid-1", "note", "hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["api_key"] != "[REDACTED]" {
		t.Errorf("api_key = %v, want [REDACTED]", fields["api_key"])
	}
	learner, _ := fields["learner"].(string)
	if !strings.HasPrefix(learner, "hash:") || strings.Contains(learner, "kid-1") {
		t.Errorf("learner = %q, want hashed value", learner)
	}
	if fields["note"] != "hello" {
		t.Errorf("note = %v, want hello", fields["note"])
	}
}

func TestRedactionDisabled(t *testing.T) {
	l, logs := newObserved(false)
	l.Warn("plain", "token", "abc")

	if got := logs.All()[0].ContextMap()["token"]; got != "abc" {
		t.Errorf("token = %v, want abc", got)
	}
}

func TestWithKeepsSettings(t *testing.T) {
	l, logs := newObserved(true)
	l.With("component", "observer").Debug("x", "secret", "s")

	fields := logs.All()[0].ContextMap()
	if fields["component"] != "observer" {
		t.Errorf("component = %v, want observer", fields["component"])
	}
	if fields["secret"] != "[REDACTED]" {
		t.Errorf("secret = %v, want [REDACTED]", fields["secret"])
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
}
