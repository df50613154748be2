package gpu

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedHandler() (*DebugHandler, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core, zap.WithFatalHook(zapcore.WriteThenPanic))
	return NewDebugHandler(log), logs
}

func TestDebugHandlerWarnsBelowOther(t *testing.T) {
	h, logs := newObservedHandler()
	for _, typ := range []uint32{
		DebugTypeDeprecatedBehavior,
		DebugTypeUndefinedBehavior,
		DebugTypePortability,
		DebugTypePerformance,
	} {
		h.Handle(DebugMessage{Type: typ, Severity: DebugSeverityMedium, Text: "msg"})
	}
	if logs.Len() != 4 {
		t.Fatalf("entries: expected 4, got %d", logs.Len())
	}
	for _, e := range logs.All() {
		if e.Level != zapcore.WarnLevel {
			t.Errorf("level: expected warn, got %v", e.Level)
		}
		if e.LoggerName != "driver" {
			t.Errorf("logger: expected driver, got %q", e.LoggerName)
		}
	}
	if got := logs.All()[3].ContextMap()["type"]; got != "performance" {
		t.Errorf("type field: expected performance, got %v", got)
	}
}

func TestDebugHandlerIgnoresOtherAndMarkers(t *testing.T) {
	h, logs := newObservedHandler()
	for _, typ := range []uint32{DebugTypeOther, DebugTypeMarker, DebugTypePushGroup, DebugTypePopGroup} {
		h.Handle(DebugMessage{Type: typ, Severity: DebugSeverityNotification, Text: "noise"})
	}
	if logs.Len() != 0 {
		t.Errorf("expected no entries, got %d", logs.Len())
	}
}

func TestDebugHandlerErrorIsFatal(t *testing.T) {
	h, logs := newObservedHandler()
	defer func() {
		if recover() == nil {
			t.Fatal("expected fatal")
		}
		if logs.Len() != 1 || logs.All()[0].Level != zapcore.FatalLevel {
			t.Errorf("expected one fatal entry, got %v", logs.All())
		}
		if got := logs.All()[0].ContextMap()["severity"]; got != "high" {
			t.Errorf("severity: expected high, got %v", got)
		}
	}()
	h.Handle(DebugMessage{Type: DebugTypeError, Severity: DebugSeverityHigh, ID: 1280, Text: "GL_INVALID_ENUM"})
}
